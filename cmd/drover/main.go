// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// drover is the command-line controller for remote agent runners. It
// speaks the wire protocol over a resilient client connection: spawn
// agents, inspect and control their lifecycle, feed stdin, page and
// stream output, fan commands out to batches, and watch everything
// live in a terminal monitor.
//
// Connection parameters come from flags or from a YAML config file
// (--config or the DROVER_CONFIG environment variable; there is no
// discovery chain).
package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/drover/cmd/drover/cli"
	"github.com/bureau-foundation/drover/lib/version"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (like health) return an
		// ExitError with the desired exit code. Don't print a redundant
		// "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Handle --version before any flag parsing so it works regardless
	// of the subcommand tree.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("drover %s\n", version.Info())
		return nil
	}
	return rootCommand().Execute(os.Args[1:])
}

// rootCommand builds the complete drover command tree.
func rootCommand() *cli.Command {
	return &cli.Command{
		Name: "drover",
		Description: `drover: remote agent runner control.

Drive agent processes on a remote runner over asynchronous messaging:
spawn, pause, resume, stop, kill, feed stdin, page captured output,
stream live logs, and monitor the whole herd in a terminal UI. The
connection reconnects with exponential backoff and queues commands
issued while the runner is unreachable.`,
		Subcommands: []*cli.Command{
			spawnCommand(),
			listCommand(),
			statusCommand(),
			pauseCommand(),
			resumeCommand(),
			stopCommand(),
			killCommand(),
			signalCommand(),
			stdinCommand(),
			outputCommand(),
			streamCommand(),
			batchCommand(),
			actionCommand(),
			healthCommand(),
			monitorCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("drover %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Check that the runner is reachable",
				Command:     "drover health --endpoint tcp://localhost:5555",
			},
			{
				Description: "Spawn an agent from a spec file",
				Command:     "drover spawn --spec agent.json",
			},
			{
				Description: "List running agents",
				Command:     "drover list --status running",
			},
			{
				Description: "Pause several agents at once",
				Command:     "drover batch pause builder reviewer",
			},
			{
				Description: "Follow an agent's output live",
				Command:     "drover stream builder",
			},
			{
				Description: "Open the live monitor",
				Command:     "drover monitor",
			},
		},
	}
}
