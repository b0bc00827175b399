package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/swdee/go-bciselect/config"
)

func TestNewLogger(t *testing.T) {

	tests := []struct {
		level string
		debug bool
		exp   slog.Level
	}{
		{"info", false, slog.LevelInfo},
		{"warn", false, slog.LevelWarn},
		{"error", true, slog.LevelDebug},
		{"", false, slog.LevelInfo},
	}

	for _, tc := range tests {
		logger := newLogger(config.LogConfig{Level: tc.level, Format: "text"}, tc.debug)
		ctx := context.Background()

		assert.Equal(t, tc.exp == slog.LevelDebug, logger.Enabled(ctx, slog.LevelDebug), tc.level)
		assert.Equal(t, tc.exp <= slog.LevelInfo, logger.Enabled(ctx, slog.LevelInfo), tc.level)
		assert.Equal(t, tc.exp <= slog.LevelWarn, logger.Enabled(ctx, slog.LevelWarn), tc.level)
	}
}
