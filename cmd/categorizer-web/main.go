// Command categorizer-web serves the triage workflow over HTTP: a small
// form UI, a JSON API, and Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alainbuyze/outlook-categorizer/internal/config"
	"github.com/alainbuyze/outlook-categorizer/internal/handler"
	"github.com/alainbuyze/outlook-categorizer/internal/logger"
	"github.com/alainbuyze/outlook-categorizer/internal/metrics"
	"github.com/alainbuyze/outlook-categorizer/internal/router"
	"github.com/alainbuyze/outlook-categorizer/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	// Server deployments surface the device-code prompt over HTTP unless
	// the operator explicitly asked for the console.
	if os.Getenv("DEVICE_CODE_PROMPT_MODE") == "" {
		cfg.DeviceCodePromptMode = "web"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	m := metrics.New()

	runner, err := service.NewFromConfig(context.Background(), cfg, log, m)
	if err != nil {
		log.WithField("error", err).Error("failed to build workflow")
		os.Exit(1)
	}

	e := router.New(handler.New(cfg, runner, log))
	log.WithField("port", cfg.Port).Info("starting server")
	if err := e.Start(":" + cfg.Port); err != nil {
		log.WithField("error", err).Error("server stopped")
		os.Exit(1)
	}
}
