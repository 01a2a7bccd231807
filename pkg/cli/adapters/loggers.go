package adapters

import (
	"github.com/CodeMonkeyCybersecurity/verdict/internal/logger"
)

// ValidationLogger adapts internal logger.Logger for the validation package interface.
// This adapter uses the Infow/Debugw/Warnw/Errorw methods with key-value pairs.
type ValidationLogger struct {
	log *logger.Logger
}

// NewValidationLogger creates a new ValidationLogger adapter.
func NewValidationLogger(log *logger.Logger) *ValidationLogger {
	return &ValidationLogger{log: log}
}

func (v *ValidationLogger) Info(msg string, keysAndValues ...interface{}) {
	if v.log != nil {
		v.log.Infow(msg, keysAndValues...)
	}
}

func (v *ValidationLogger) Debug(msg string, keysAndValues ...interface{}) {
	if v.log != nil {
		v.log.Debugw(msg, keysAndValues...)
	}
}

func (v *ValidationLogger) Warn(msg string, keysAndValues ...interface{}) {
	if v.log != nil {
		v.log.Warnw(msg, keysAndValues...)
	}
}

func (v *ValidationLogger) Error(msg string, keysAndValues ...interface{}) {
	if v.log != nil {
		v.log.Errorw(msg, keysAndValues...)
	}
}
