// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/drover/client"
	"github.com/bureau-foundation/drover/cmd/drover/cli"
	"github.com/bureau-foundation/drover/lib/monitorui"
)

type monitorParams struct {
	connection connectionParams
	logOutput  string
}

func monitorCommand() *cli.Command {
	var params monitorParams

	return &cli.Command{
		Name:    "monitor",
		Summary: "Watch the herd live in a terminal UI",
		Description: `Open the live monitor: an agent table with status coloring, a
scrolling event log fed by the runner's status pushes, and pause,
resume, and stop keys for the selected agent. Requires the async
socket pattern.`,
		Usage: "drover monitor [flags]",
		Examples: []cli.Example{
			{
				Description: "Monitor the configured runner",
				Command:     "drover monitor",
			},
			{
				Description: "Keep a JSONL log of connection events for later",
				Command:     "drover monitor --log-output monitor.log",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("monitor", pflag.ContinueOnError)
			flagSet.StringVar(&params.logOutput, "log-output", "", "write JSON log records to this file")
			params.connection.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runMonitor(params)
		},
	}
}

func runMonitor(params monitorParams) error {
	// The alt-screen TUI owns the terminal; background logging goes to
	// a file when asked for, and is limited to errors on stderr
	// otherwise so reconnect chatter cannot corrupt the display.
	logger, cleanup, err := monitorLogger(params.logOutput)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := params.connection.clientConfig(logger)
	if err != nil {
		return err
	}
	c, err := client.New(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Connect(ctx); err != nil {
		return err
	}

	source, err := monitorui.NewClientSource(c)
	if err != nil {
		return err
	}
	defer source.Close()

	model := monitorui.NewModel(source, cfg.Endpoint)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// monitorLogger builds the background logger for the monitor session.
func monitorLogger(logOutput string) (*slog.Logger, func(), error) {
	if logOutput == "" {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})
		return slog.New(handler), func() {}, nil
	}
	file, err := os.Create(logOutput)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open log file %s: %w", logOutput, err)
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), func() { file.Close() }, nil
}
