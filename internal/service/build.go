package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/alainbuyze/outlook-categorizer/internal/auth"
	"github.com/alainbuyze/outlook-categorizer/internal/categorizer"
	"github.com/alainbuyze/outlook-categorizer/internal/config"
	"github.com/alainbuyze/outlook-categorizer/internal/folders"
	"github.com/alainbuyze/outlook-categorizer/internal/graph"
	"github.com/alainbuyze/outlook-categorizer/internal/llm"
	"github.com/alainbuyze/outlook-categorizer/internal/metrics"
)

// NewFromConfig composes a ready-to-run Orchestrator: token cache,
// authenticator, mail client, model client, categorization engine, and
// folder directory.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) (*Orchestrator, error) {
	cache, err := newTokenCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	authenticator := auth.New(cfg, cache, logger)
	mailClient := graph.NewClient(authenticator, logger)
	modelClient := llm.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel, logger)
	engine := categorizer.New(cfg, modelClient, logger, m)
	directory := folders.NewDirectory(mailClient, logger)

	return NewOrchestrator(cfg, mailClient, engine, directory, logger, m), nil
}

func newTokenCache(ctx context.Context, cfg *config.Config) (auth.TokenCache, error) {
	switch cfg.TokenCacheBackend {
	case "gcs":
		cache, err := auth.NewBlobCache(ctx, cfg.TokenCacheBucket, cfg.TokenCacheObject)
		if err != nil {
			return nil, fmt.Errorf("failed to build gcs token cache: %w", err)
		}
		return cache, nil
	case "file", "":
		cache, err := auth.NewFileCache(cfg.AccountUsername)
		if err != nil {
			return nil, fmt.Errorf("failed to build file token cache: %w", err)
		}
		return cache, nil
	default:
		return nil, fmt.Errorf("unknown token cache backend %q", cfg.TokenCacheBackend)
	}
}
