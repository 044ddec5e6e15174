package service

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier reports mutation outcomes through structured logs so operators
// can trace what the scheduler applied or rolled back.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Success records a completed mutation.
func (n *LogNotifier) Success(_ context.Context, operation, message string) {
	n.logger.Info("scheduler mutation applied",
		zap.String("operation", operation),
		zap.String("message", message),
	)
}

// Failure records a rolled-back mutation.
func (n *LogNotifier) Failure(_ context.Context, operation, message string) {
	n.logger.Warn("scheduler mutation rolled back",
		zap.String("operation", operation),
		zap.String("message", message),
	)
}
