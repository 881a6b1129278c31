package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	cfg := Load()

	req.Equal("dialog-backend", cfg.Service.Name)
	req.Equal(":8080", cfg.Service.Addr)
	req.Equal(200*time.Millisecond, cfg.Worker.PollInterval)
	req.Equal(64, cfg.Worker.BatchSize)
	req.Equal("info", cfg.Logger.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("SERVICE_ADDR", ":9090")
	t.Setenv("OUTBOX_POLL_INTERVAL", "1s")
	t.Setenv("OUTBOX_BATCH_SIZE", "8")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()

	req.Equal(":9090", cfg.Service.Addr)
	req.Equal(time.Second, cfg.Worker.PollInterval)
	req.Equal(8, cfg.Worker.BatchSize)
	req.Equal("s3cret", cfg.SecretToken)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	req := require.New(t)
	t.Setenv("OUTBOX_BATCH_SIZE", "lots")
	t.Setenv("OUTBOX_POLL_INTERVAL", "soon")

	cfg := Load()

	req.Equal(64, cfg.Worker.BatchSize)
	req.Equal(200*time.Millisecond, cfg.Worker.PollInterval)
}
