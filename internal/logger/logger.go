package logger

import (
	"go.uber.org/zap"
)

// New builds the root logger. Debug mode switches to the human-readable
// development encoder and enables debug-level output.
func New(debug bool) *zap.Logger {
	if debug {
		return zap.Must(zap.NewDevelopment())
	}

	return zap.Must(zap.NewProduction())
}
