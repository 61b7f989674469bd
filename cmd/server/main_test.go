package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"asyncq/internal/config"
)

func TestCurlHostForListenAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		listenAddr string
		want       string
	}{
		{":8080", "localhost:8080"},
		{"0.0.0.0:9000", "localhost:9000"},
		{"[::]:8080", "localhost:8080"},
		{"127.0.0.1:8080", "127.0.0.1:8080"},
		{"[::1]:8080", "[::1]:8080"},
		{"  admin.internal:443 ", "admin.internal:443"},
		{"", "localhost:8080"},
		{"   ", "localhost:8080"},
		{"localhost", "localhost"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.listenAddr, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, curlHostForListenAddr(tt.listenAddr))
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	dev := newLogger(&config.Config{Env: "development", LogLevel: "warn"})
	assert.IsType(t, &slog.TextHandler{}, dev.Handler())
	assert.False(t, dev.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, dev.Enabled(context.Background(), slog.LevelWarn))

	prod := newLogger(&config.Config{Env: "production", LogLevel: "debug"})
	assert.IsType(t, &slog.JSONHandler{}, prod.Handler())
	assert.True(t, prod.Enabled(context.Background(), slog.LevelDebug))
}
