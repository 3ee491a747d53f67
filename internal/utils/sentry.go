package utils

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/config"
	"github.com/sirupsen/logrus"
)

// InitSentry initializes Sentry for error tracking. It does nothing when no DSN is configured.
func InitSentry(cfg config.SentryConfig) error {
	if cfg.DSN == "" {
		logrus.Warn("SENTRY_DSN not set, error reporting disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}

	logrus.Infof("Sentry initialized (environment: %s)", cfg.Environment)
	return nil
}

// CaptureError reports err to Sentry with the given tags. It is a no-op before InitSentry.
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// FlushSentry waits for buffered events to be sent
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}
