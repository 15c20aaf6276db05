// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/drover/client"
	"github.com/bureau-foundation/drover/transport"
)

// connectionParams is the flag surface shared by every command that
// talks to a runner. Flags override the config file; the config file
// overrides client defaults.
type connectionParams struct {
	configPath     string
	endpoint       string
	pattern        string
	serverID       string
	requestTimeout int // seconds, 0 means config/default
	noReconnect    bool
}

// AddFlags registers the shared connection flags on a command's flag
// set.
func (p *connectionParams) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&p.configPath, "config", "", "path to YAML config file (or set DROVER_CONFIG)")
	flagSet.StringVar(&p.endpoint, "endpoint", "", "runner endpoint, e.g. tcp://localhost:5555 or unix:///run/drover.sock")
	flagSet.StringVar(&p.pattern, "pattern", "", "socket pattern: async or sync (default async)")
	flagSet.StringVar(&p.serverID, "server-id", "", "runner name for log correlation")
	flagSet.IntVar(&p.requestTimeout, "request-timeout", 0, "per-request timeout in seconds (default 30)")
	flagSet.BoolVar(&p.noReconnect, "no-reconnect", false, "fail on connection loss instead of reconnecting")
}

// fileConfig is the YAML schema of the drover config file. Durations
// are plain integers with the unit in the field name. Booleans that
// default to on are pointers so an absent key is distinguishable from
// an explicit false.
type fileConfig struct {
	Endpoint                string `yaml:"endpoint"`
	Pattern                 string `yaml:"pattern"`
	ServerID                string `yaml:"server_id"`
	RequestTimeoutSecs      int    `yaml:"request_timeout_secs"`
	ConnectionTimeoutSecs   int    `yaml:"connection_timeout_secs"`
	AutoReconnect           *bool  `yaml:"auto_reconnect"`
	MaxReconnectAttempts    *int   `yaml:"max_reconnect_attempts"`
	InitialReconnectDelayMS int    `yaml:"initial_reconnect_delay_ms"`
	MaxReconnectDelaySecs   int    `yaml:"max_reconnect_delay_secs"`
	MaxQueueSize            int    `yaml:"max_queue_size"`
	MaxMessageSize          int    `yaml:"max_message_size"`
	Heartbeat               *bool  `yaml:"heartbeat"`
	HeartbeatIntervalSecs   int    `yaml:"heartbeat_interval_secs"`
}

// loadFileConfig reads the config file named by --config or the
// DROVER_CONFIG environment variable. No path means an empty config;
// there is no discovery chain.
func loadFileConfig(explicitPath string) (fileConfig, error) {
	var file fileConfig
	path := explicitPath
	if path == "" {
		path = os.Getenv("DROVER_CONFIG")
	}
	if path == "" {
		return file, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parse config %s: %w", path, err)
	}
	return file, nil
}

// apply maps the file fields onto a client config. Zero-valued fields
// leave the config untouched.
func (f fileConfig) apply(cfg *client.Config) error {
	if f.Endpoint != "" {
		cfg.Endpoint = f.Endpoint
	}
	if f.Pattern != "" {
		pattern, err := transport.ParsePattern(f.Pattern)
		if err != nil {
			return err
		}
		cfg.Pattern = pattern
	}
	if f.ServerID != "" {
		cfg.ServerID = f.ServerID
	}
	if f.RequestTimeoutSecs > 0 {
		cfg.RequestTimeout = time.Duration(f.RequestTimeoutSecs) * time.Second
	}
	if f.ConnectionTimeoutSecs > 0 {
		cfg.ConnectTimeout = time.Duration(f.ConnectionTimeoutSecs) * time.Second
	}
	if f.AutoReconnect != nil {
		cfg.AutoReconnect = *f.AutoReconnect
	}
	if f.MaxReconnectAttempts != nil {
		cfg.MaxReconnectAttempts = *f.MaxReconnectAttempts
	}
	if f.InitialReconnectDelayMS > 0 {
		cfg.ReconnectInitialDelay = time.Duration(f.InitialReconnectDelayMS) * time.Millisecond
	}
	if f.MaxReconnectDelaySecs > 0 {
		cfg.ReconnectMaxDelay = time.Duration(f.MaxReconnectDelaySecs) * time.Second
	}
	if f.MaxQueueSize > 0 {
		cfg.MaxQueueSize = f.MaxQueueSize
	}
	if f.MaxMessageSize > 0 {
		cfg.MaxMessageSize = f.MaxMessageSize
	}
	if f.Heartbeat != nil {
		cfg.EnableHeartbeat = *f.Heartbeat
	}
	if f.HeartbeatIntervalSecs > 0 {
		cfg.HeartbeatInterval = time.Duration(f.HeartbeatIntervalSecs) * time.Second
	}
	return nil
}

// clientConfig resolves the effective client configuration: defaults,
// then the config file, then flags.
func (p *connectionParams) clientConfig(logger *slog.Logger) (client.Config, error) {
	file, err := loadFileConfig(p.configPath)
	if err != nil {
		return client.Config{}, err
	}

	cfg := client.DefaultConfig("")
	if err := file.apply(&cfg); err != nil {
		return client.Config{}, err
	}

	if p.endpoint != "" {
		cfg.Endpoint = p.endpoint
	}
	if p.pattern != "" {
		pattern, err := transport.ParsePattern(p.pattern)
		if err != nil {
			return client.Config{}, err
		}
		cfg.Pattern = pattern
	}
	if p.serverID != "" {
		cfg.ServerID = p.serverID
	}
	if p.requestTimeout > 0 {
		cfg.RequestTimeout = time.Duration(p.requestTimeout) * time.Second
	}
	if p.noReconnect {
		cfg.AutoReconnect = false
	}

	if cfg.Endpoint == "" {
		return client.Config{}, fmt.Errorf("no endpoint configured: pass --endpoint or set one in the config file")
	}
	cfg.Logger = logger
	return cfg, nil
}

// dial builds a client from the resolved configuration and connects
// it. The caller owns the returned client and must Close it.
func (p *connectionParams) dial(ctx context.Context, logger *slog.Logger) (*client.Client, error) {
	cfg, err := p.clientConfig(logger)
	if err != nil {
		return nil, err
	}
	c, err := client.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
