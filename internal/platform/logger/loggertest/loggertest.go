// Package loggertest provides an in-memory logger for assertions in tests.
package loggertest

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"negotiation-tutor/internal/platform/logger"
)

// NewObserved records every entry at debug level and above.
func NewObserved() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return logger.FromZap(zap.New(core), ""), logs
}
