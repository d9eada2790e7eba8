// Command categorizer runs one triage pass from the terminal: fetch
// messages, categorize them, and file them into category folders.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/alainbuyze/outlook-categorizer/internal/config"
	"github.com/alainbuyze/outlook-categorizer/internal/logger"
	"github.com/alainbuyze/outlook-categorizer/internal/model"
	"github.com/alainbuyze/outlook-categorizer/internal/service"
)

func main() {
	limit := flag.Int("limit", 0, "messages to process (default: EMAIL_BATCH_SIZE)")
	folderLabel := flag.String("folder-label", "", "folder to scan by path, e.g. Inbox/Newsletters")
	folderID := flag.String("folder-id", "", "folder to scan by provider id")
	account := flag.String("account", "", "account username (overrides OUTLOOK_ACCOUNT_USERNAME)")
	dryRun := flag.Bool("dry-run", false, "categorize only, move nothing")
	verbose := flag.Bool("verbose", false, "debug logging")
	logLevel := flag.String("log-level", "", "log level (overrides LOG_LEVEL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *account != "" {
		cfg.AccountUsername = *account
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	// The CLI always prompts on the terminal it runs in.
	cfg.DeviceCodePromptMode = "console"
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	ctx := context.Background()

	runner, err := service.NewFromConfig(ctx, cfg, log, nil)
	if err != nil {
		log.WithField("error", err).Error("failed to build workflow")
		os.Exit(1)
	}

	opts := service.RunOptions{
		Limit:       *limit,
		FolderLabel: *folderLabel,
		FolderID:    *folderID,
		DryRun:      *dryRun,
		RunID:       uuid.New().String(),
	}
	log.WithField("run_id", opts.RunID).Info("starting run")

	results, err := runner.Run(ctx, opts)
	if err != nil {
		log.WithFields(logrus.Fields{"run_id": opts.RunID, "error": err}).Error("run failed")
		os.Exit(1)
	}

	printResults(results, *dryRun)

	for _, result := range results {
		if !result.Success {
			os.Exit(1)
		}
	}
}

// printResults writes a grouped, human-readable report to stdout.
func printResults(results []*model.ProcessingResult, dryRun bool) {
	if len(results) == 0 {
		fmt.Println("No messages to process.")
		return
	}

	byCategory := make(map[string][]*model.ProcessingResult)
	for _, result := range results {
		byCategory[result.Category] = append(byCategory[result.Category], result)
	}
	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	successful := 0
	fmt.Println()
	for _, category := range categories {
		fmt.Printf("%s (%d)\n", category, len(byCategory[category]))
		for _, result := range byCategory[category] {
			marker := "+"
			if !result.Success {
				marker = "!"
			} else {
				successful++
			}
			line := fmt.Sprintf("  %s [%s] %-30s %s",
				marker,
				result.ReceivedDateTime.Format("01-02"),
				truncate(result.Sender, 30),
				truncate(result.Subject, 50))
			if result.SubCategory != "" {
				line += " -> " + result.SubCategory
			}
			if result.SenderGoal != "" {
				line += " - " + result.SenderGoal
			}
			fmt.Println(line)
			if !result.Success && result.Error != "" {
				fmt.Printf("      error: %s\n", result.Error)
			}
		}
		fmt.Println()
	}

	summary := fmt.Sprintf("%d processed, %d succeeded, %d failed", len(results), successful, len(results)-successful)
	if dryRun {
		summary += " (dry run)"
	}
	fmt.Println(summary)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max-3]) + "..."
}
