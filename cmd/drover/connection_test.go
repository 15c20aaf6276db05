// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/drover/client"
	"github.com/bureau-foundation/drover/transport"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drover.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestClientConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
endpoint: tcp://runner:5555
pattern: sync
server_id: prod-runner
request_timeout_secs: 45
connection_timeout_secs: 10
auto_reconnect: false
max_reconnect_attempts: 7
initial_reconnect_delay_ms: 250
max_reconnect_delay_secs: 60
max_queue_size: 50
heartbeat: false
heartbeat_interval_secs: 5
`)

	params := connectionParams{configPath: path}
	cfg, err := params.clientConfig(quietLogger())
	if err != nil {
		t.Fatalf("clientConfig() error: %v", err)
	}

	if cfg.Endpoint != "tcp://runner:5555" {
		t.Errorf("Endpoint = %q, want %q", cfg.Endpoint, "tcp://runner:5555")
	}
	if cfg.Pattern != transport.Sync {
		t.Errorf("Pattern = %v, want Sync", cfg.Pattern)
	}
	if cfg.ServerID != "prod-runner" {
		t.Errorf("ServerID = %q, want %q", cfg.ServerID, "prod-runner")
	}
	if cfg.RequestTimeout != 45*time.Second {
		t.Errorf("RequestTimeout = %v, want 45s", cfg.RequestTimeout)
	}
	if cfg.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %v, want 10s", cfg.ConnectTimeout)
	}
	if cfg.AutoReconnect {
		t.Error("AutoReconnect = true, want false")
	}
	if cfg.MaxReconnectAttempts != 7 {
		t.Errorf("MaxReconnectAttempts = %d, want 7", cfg.MaxReconnectAttempts)
	}
	if cfg.ReconnectInitialDelay != 250*time.Millisecond {
		t.Errorf("ReconnectInitialDelay = %v, want 250ms", cfg.ReconnectInitialDelay)
	}
	if cfg.ReconnectMaxDelay != 60*time.Second {
		t.Errorf("ReconnectMaxDelay = %v, want 60s", cfg.ReconnectMaxDelay)
	}
	if cfg.MaxQueueSize != 50 {
		t.Errorf("MaxQueueSize = %d, want 50", cfg.MaxQueueSize)
	}
	if cfg.EnableHeartbeat {
		t.Error("EnableHeartbeat = true, want false")
	}
	if cfg.HeartbeatInterval != 5*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 5s", cfg.HeartbeatInterval)
	}
}

func TestClientConfigDefaultsWhenFileSparse(t *testing.T) {
	path := writeConfig(t, "endpoint: tcp://runner:5555\n")

	params := connectionParams{configPath: path}
	cfg, err := params.clientConfig(quietLogger())
	if err != nil {
		t.Fatalf("clientConfig() error: %v", err)
	}

	// Absent keys leave the standard defaults intact, including the
	// booleans that default to on.
	if !cfg.AutoReconnect {
		t.Error("AutoReconnect = false, want default true")
	}
	if !cfg.EnableHeartbeat {
		t.Error("EnableHeartbeat = false, want default true")
	}
	if cfg.Pattern != transport.Async {
		t.Errorf("Pattern = %v, want default Async", cfg.Pattern)
	}
	if cfg.RequestTimeout != client.DefaultRequestTimeout {
		t.Errorf("RequestTimeout = %v, want default %v", cfg.RequestTimeout, client.DefaultRequestTimeout)
	}
	if cfg.MaxQueueSize != client.DefaultMaxQueueSize {
		t.Errorf("MaxQueueSize = %d, want default %d", cfg.MaxQueueSize, client.DefaultMaxQueueSize)
	}
}

func TestClientConfigFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
endpoint: tcp://from-file:5555
pattern: sync
request_timeout_secs: 45
`)

	params := connectionParams{
		configPath:     path,
		endpoint:       "tcp://from-flag:6666",
		pattern:        "async",
		requestTimeout: 5,
		noReconnect:    true,
	}
	cfg, err := params.clientConfig(quietLogger())
	if err != nil {
		t.Fatalf("clientConfig() error: %v", err)
	}

	if cfg.Endpoint != "tcp://from-flag:6666" {
		t.Errorf("Endpoint = %q, want flag value", cfg.Endpoint)
	}
	if cfg.Pattern != transport.Async {
		t.Errorf("Pattern = %v, want Async from flag", cfg.Pattern)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s from flag", cfg.RequestTimeout)
	}
	if cfg.AutoReconnect {
		t.Error("AutoReconnect = true, want false from --no-reconnect")
	}
}

func TestClientConfigEnvPath(t *testing.T) {
	path := writeConfig(t, "endpoint: tcp://from-env:5555\n")
	t.Setenv("DROVER_CONFIG", path)

	params := connectionParams{}
	cfg, err := params.clientConfig(quietLogger())
	if err != nil {
		t.Fatalf("clientConfig() error: %v", err)
	}
	if cfg.Endpoint != "tcp://from-env:5555" {
		t.Errorf("Endpoint = %q, want env config value", cfg.Endpoint)
	}
}

func TestClientConfigExplicitPathBeatsEnv(t *testing.T) {
	envPath := writeConfig(t, "endpoint: tcp://from-env:5555\n")
	flagPath := writeConfig(t, "endpoint: tcp://from-flag-file:5555\n")
	t.Setenv("DROVER_CONFIG", envPath)

	params := connectionParams{configPath: flagPath}
	cfg, err := params.clientConfig(quietLogger())
	if err != nil {
		t.Fatalf("clientConfig() error: %v", err)
	}
	if cfg.Endpoint != "tcp://from-flag-file:5555" {
		t.Errorf("Endpoint = %q, want --config file value", cfg.Endpoint)
	}
}

func TestClientConfigRequiresEndpoint(t *testing.T) {
	t.Setenv("DROVER_CONFIG", "")
	params := connectionParams{}
	if _, err := params.clientConfig(quietLogger()); err == nil {
		t.Fatal("clientConfig() = nil error, want missing-endpoint error")
	}
}

func TestClientConfigRejectsUnknownPattern(t *testing.T) {
	params := connectionParams{endpoint: "tcp://runner:5555", pattern: "carrier-pigeon"}
	if _, err := params.clientConfig(quietLogger()); err == nil {
		t.Fatal("clientConfig() = nil error, want pattern parse error")
	}
}

func TestClientConfigUnlimitedAttempts(t *testing.T) {
	path := writeConfig(t, `
endpoint: tcp://runner:5555
max_reconnect_attempts: -1
`)

	params := connectionParams{configPath: path}
	cfg, err := params.clientConfig(quietLogger())
	if err != nil {
		t.Fatalf("clientConfig() error: %v", err)
	}
	if cfg.MaxReconnectAttempts != client.UnlimitedAttempts {
		t.Errorf("MaxReconnectAttempts = %d, want UnlimitedAttempts", cfg.MaxReconnectAttempts)
	}
}

func TestClientConfigMissingFile(t *testing.T) {
	params := connectionParams{configPath: filepath.Join(t.TempDir(), "absent.yaml")}
	if _, err := params.clientConfig(quietLogger()); err == nil {
		t.Fatal("clientConfig() = nil error, want read error for missing file")
	}
}
