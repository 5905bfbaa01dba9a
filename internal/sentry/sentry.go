// Package sentry initializes error reporting for the server process
package sentry

import (
	"context"
	"time"

	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/getsentry/sentry-go"
	"go.uber.org/fx"
)

const flushTimeout = 2 * time.Second

// Register initializes the sentry client when enabled and flushes buffered
// events on shutdown
func Register(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) error {
	if !cfg.Sentry.Enabled {
		log.Infow("sentry disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		EnableTracing:    cfg.Sentry.SampleRate > 0,
		TracesSampleRate: cfg.Sentry.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return err
	}
	log.Infow("sentry initialized", "environment", cfg.Sentry.Environment)

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sentry.Flush(flushTimeout)
			return nil
		},
	})
	return nil
}
