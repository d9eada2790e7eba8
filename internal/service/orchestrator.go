package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alainbuyze/outlook-categorizer/internal/config"
	"github.com/alainbuyze/outlook-categorizer/internal/graph"
	"github.com/alainbuyze/outlook-categorizer/internal/metrics"
	"github.com/alainbuyze/outlook-categorizer/internal/model"
)

const defaultFolderName = "inbox"

// RunOptions parameterize one triage run.
type RunOptions struct {
	// Limit caps messages processed; zero falls back to the configured
	// batch size.
	Limit int
	// FolderID scans a specific folder by provider ID.
	FolderID string
	// FolderLabel scans a folder by path, e.g. "Inbox/Newsletters".
	// Takes precedence over FolderID.
	FolderLabel string
	// DryRun stops after categorization; nothing in the mailbox is
	// tagged, moved, or created.
	DryRun bool
	// RunID correlates log lines and results; callers set it.
	RunID string
}

// Orchestrator wires the fetch, categorize, and file steps together.
type Orchestrator struct {
	cfg         *config.Config
	store       MailboxStore
	categorizer Categorizer
	dir         FolderDirectory
	logger      *logrus.Logger
	metrics     *metrics.Metrics
}

func NewOrchestrator(cfg *config.Config, store MailboxStore, categorizer Categorizer, dir FolderDirectory, logger *logrus.Logger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		store:       store,
		categorizer: categorizer,
		dir:         dir,
		logger:      logger,
		metrics:     m,
	}
}

// Run executes one triage pass and returns a result per processed message.
// Per-message failures are captured in the results; only setup problems
// (folder resolution, listing) abort the run.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) ([]*model.ProcessingResult, error) {
	start := time.Now()
	defer func() { o.metrics.RunCompleted(time.Since(start)) }()

	limit := opts.Limit
	if limit <= 0 {
		limit = o.cfg.BatchSize
	}

	log := o.logger.WithFields(logrus.Fields{
		"run_id":  opts.RunID,
		"limit":   limit,
		"dry_run": opts.DryRun,
	})

	if err := o.dir.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize folder directory: %w", err)
	}

	target, explicit, err := o.resolveTarget(opts)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"folder":    target.DisplayName,
		"folder_id": target.ID,
	}).Info("starting triage run")

	emails, err := o.collectMessages(ctx, target, limit, explicit)
	if err != nil {
		return nil, err
	}
	log.WithField("count", len(emails)).Info("fetched messages")

	results := make([]*model.ProcessingResult, 0, len(emails))
	for _, email := range emails {
		result := o.processMessage(ctx, email, opts.DryRun)
		o.metrics.MessageProcessed(result.Success)
		results = append(results, result)
	}

	log.WithFields(logrus.Fields{
		"total":      len(results),
		"successful": countSuccessful(results),
	}).Info("triage run finished")
	return results, nil
}

// resolveTarget picks the folder to scan: label, then explicit ID, then the
// configured default, then the inbox. An unresolvable label or ID is fatal
// rather than silently scanning the wrong folder. The second return reports
// whether a specific folder was requested; only such runs expand into
// subfolders, a bare inbox run leaves deliberately filed mail alone.
func (o *Orchestrator) resolveTarget(opts RunOptions) (*model.Folder, bool, error) {
	if opts.FolderLabel != "" {
		folder, err := o.dir.ResolveLabel(opts.FolderLabel)
		if err != nil {
			return nil, false, err
		}
		if folder == nil {
			return nil, false, fmt.Errorf("folder label %q not found", opts.FolderLabel)
		}
		return folder, true, nil
	}
	if opts.FolderID != "" {
		if folder := o.dir.FolderByID(opts.FolderID); folder != nil {
			return folder, true, nil
		}
		return nil, false, fmt.Errorf("folder id %q not found", opts.FolderID)
	}
	if o.cfg.InboxFolderID != "" {
		if folder := o.dir.FolderByID(o.cfg.InboxFolderID); folder != nil {
			return folder, true, nil
		}
		return nil, false, fmt.Errorf("configured folder id %q not found", o.cfg.InboxFolderID)
	}
	if folder := o.dir.FolderByName(defaultFolderName); folder != nil {
		return folder, false, nil
	}
	return nil, false, fmt.Errorf("inbox folder not found")
}

// collectMessages fetches from the target folder until the limit is
// reached; with includeDescendants the folder's subtree is scanned too.
// Messages are deduplicated by ID in case a message moves between fetches.
func (o *Orchestrator) collectMessages(ctx context.Context, target *model.Folder, limit int, includeDescendants bool) ([]*model.Email, error) {
	fetchOpts := graph.FetchOptions{SkipFlagged: true, SkipCategorized: true}

	scan := []*model.Folder{target}
	if includeDescendants {
		scan = append(scan, o.dir.Descendants(target.ID)...)
	}
	seen := make(map[string]bool, limit)
	var emails []*model.Email
	for _, folder := range scan {
		remaining := limit - len(emails)
		if remaining <= 0 {
			break
		}
		batch, err := o.store.FetchMessages(ctx, folder.ID, remaining, fetchOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch messages from %q: %w", folder.DisplayName, err)
		}
		for _, email := range batch {
			if seen[email.ID] {
				continue
			}
			seen[email.ID] = true
			emails = append(emails, email)
		}
	}
	return emails, nil
}

// processMessage categorizes one message and files it. Tagging happens
// before the move so an interrupted run leaves the message marked and the
// next fetch skips it.
func (o *Orchestrator) processMessage(ctx context.Context, email *model.Email, dryRun bool) *model.ProcessingResult {
	categorization := o.categorizer.Categorize(ctx, email)

	result := &model.ProcessingResult{
		EmailID:          email.ID,
		Subject:          email.Subject,
		Sender:           email.SenderEmail(),
		ReceivedDateTime: email.ReceivedDateTime,
		Category:         categorization.Category,
		SubCategory:      categorization.SubCategory,
		SenderGoal:       categorization.SenderGoal,
	}

	// Dry run stops at categorization: no tagging, no move, and no folder
	// creation through destination resolution.
	if dryRun {
		o.metrics.DryRunSkip()
		result.Success = true
		result.Error = "DRY RUN - not moved"
		return result
	}

	destination, err := o.dir.Destination(ctx, categorization.Category, categorization.SubCategory)
	if err != nil {
		result.Error = fmt.Sprintf("failed to resolve destination folder: %v", err)
		return result
	}
	result.FolderID = destination.ID

	if err := o.store.TagMessage(ctx, email.ID, []string{model.CategorizedTag}); err != nil {
		// A missed tag only costs a duplicate categorization next run.
		o.logger.WithFields(logrus.Fields{
			"email_id": email.ID,
			"error":    err,
		}).Warn("failed to tag message, moving anyway")
	}

	err = o.store.MoveMessage(ctx, email.ID, destination.ID, email.ParentFolderID)
	if errors.Is(err, graph.ErrNotFound) {
		o.logger.WithField("email_id", email.ID).Info("message not found during move, likely filed elsewhere already")
		result.Error = "failed to move message: not found"
		return result
	}
	if err != nil {
		result.Error = fmt.Sprintf("failed to move message: %v", err)
		return result
	}

	result.Success = true
	return result
}

func countSuccessful(results []*model.ProcessingResult) int {
	n := 0
	for _, result := range results {
		if result.Success {
			n++
		}
	}
	return n
}
