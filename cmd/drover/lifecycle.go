// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/drover/client"
	"github.com/bureau-foundation/drover/cmd/drover/cli"
	"github.com/bureau-foundation/drover/wire"
)

// controlFunc is a single-agent control method on the client.
type controlFunc func(*client.Client, context.Context, uuid.UUID) error

func pauseCommand() *cli.Command {
	return newControlCommand("pause", "Pause a running agent", "paused", (*client.Client).Pause)
}

func resumeCommand() *cli.Command {
	return newControlCommand("resume", "Resume a paused agent", "resumed", (*client.Client).Resume)
}

func stopCommand() *cli.Command {
	return newControlCommand("stop", "Stop an agent cleanly", "stopped", (*client.Client).Stop)
}

func killCommand() *cli.Command {
	return newControlCommand("kill", "Terminate an agent immediately", "killed", (*client.Client).Kill)
}

// newControlCommand builds one single-agent lifecycle command around a
// client control method. past is the confirmation verb printed on
// success.
func newControlCommand(name, summary, past string, call controlFunc) *cli.Command {
	var connection connectionParams

	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   fmt.Sprintf("drover %s <agent>", name),
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
			connection.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: drover %s <agent>", name)
			}
			return runControl(connection, name, past, args[0], call)
		},
	}
}

func runControl(connection connectionParams, name, past, target string, call controlFunc) error {
	logger := cli.NewCommandLogger().With("command", name, "target", target)
	ctx := context.Background()

	c, err := connection.dial(ctx, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	agentID, err := resolveAgentID(ctx, c, target)
	if err != nil {
		return err
	}
	if err := call(c, ctx, agentID); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", past, shortID(agentID))
	return nil
}

type signalParams struct {
	connection connectionParams
}

func signalCommand() *cli.Command {
	var params signalParams

	return &cli.Command{
		Name:    "signal",
		Summary: "Deliver a POSIX signal to an agent process",
		Usage:   "drover signal <agent> <signal>",
		Examples: []cli.Example{
			{
				Description: "Interrupt an agent",
				Command:     "drover signal builder SIGINT",
			},
			{
				Description: "The SIG prefix is optional",
				Command:     "drover signal builder hup",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("signal", pflag.ContinueOnError)
			params.connection.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: drover signal <agent> <signal>")
			}
			return runSignal(params, args[0], args[1])
		},
	}
}

func runSignal(params signalParams, target, signalName string) error {
	signalName = strings.ToUpper(signalName)
	if !strings.HasPrefix(signalName, "SIG") {
		signalName = "SIG" + signalName
	}

	logger := cli.NewCommandLogger().With("command", "signal", "target", target, "signal", signalName)
	ctx := context.Background()

	c, err := params.connection.dial(ctx, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	agentID, err := resolveAgentID(ctx, c, target)
	if err != nil {
		return err
	}
	if err := c.Signal(ctx, agentID, signalName); err != nil {
		return err
	}
	fmt.Printf("sent %s to %s\n", signalName, shortID(agentID))
	return nil
}

type batchParams struct {
	connection connectionParams
	failFast   bool
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:    "batch",
		Summary: "Apply one command to many agents in a single request",
		Description: `Fan one control command out to several agents. The runner dispatches
server-side and reports a per-agent result; --fail-fast stops at the
first failure instead of attempting every target.`,
		Subcommands: []*cli.Command{
			newBatchCommand("pause", "Pause several agents", wire.ControlPause),
			newBatchCommand("resume", "Resume several agents", wire.ControlResume),
			newBatchCommand("stop", "Stop several agents", wire.ControlStop),
			newBatchCommand("kill", "Terminate several agents", wire.ControlKill),
		},
		Examples: []cli.Example{
			{
				Description: "Pause the whole herd",
				Command:     "drover batch pause builder reviewer tester",
			},
			{
				Description: "Stop agents, aborting on the first refusal",
				Command:     "drover batch stop --fail-fast builder reviewer",
			},
		},
	}
}

func newBatchCommand(name, summary string, command wire.ControlType) *cli.Command {
	var params batchParams

	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   fmt.Sprintf("drover batch %s [--fail-fast] <agent> [<agent>...]", name),
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("batch "+name, pflag.ContinueOnError)
			flagSet.BoolVar(&params.failFast, "fail-fast", false, "stop at the first failing agent")
			params.connection.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("usage: drover batch %s <agent> [<agent>...]", name)
			}
			return runBatch(params, command, args)
		},
	}
}

func runBatch(params batchParams, command wire.ControlType, targets []string) error {
	logger := cli.NewCommandLogger().With("command", "batch/"+string(command), "targets", len(targets))
	ctx := context.Background()

	c, err := params.connection.dial(ctx, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	agentIDs, err := resolveAgentIDs(ctx, c, targets)
	if err != nil {
		return err
	}

	resp, err := c.BatchControl(ctx, agentIDs, command, nil, params.failFast)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "AGENT\tRESULT\tSTATUS\tERROR")
	for _, result := range resp.Results {
		outcome := "ok"
		if !result.Success {
			outcome = "failed"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			shortID(result.AgentID), outcome, result.Status, result.Error)
	}
	writer.Flush()

	fmt.Printf("\n%d succeeded, %d failed\n", resp.Successful, resp.Failed)
	if skipped := len(agentIDs) - len(resp.Results); skipped > 0 {
		fmt.Printf("%d not attempted (fail-fast)\n", skipped)
	}
	if resp.Failed > 0 {
		return &cli.ExitError{Code: 1}
	}
	return nil
}

// resolveAgentIDs maps CLI agent references to IDs, listing the agent
// table at most once regardless of how many references need matching.
func resolveAgentIDs(ctx context.Context, c *client.Client, references []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(references))
	var agents []wire.AgentInfo
	for i, reference := range references {
		if id, err := uuid.Parse(reference); err == nil {
			ids[i] = id
			continue
		}
		if agents == nil {
			var err error
			agents, err = c.ListAgents(ctx, "", 0)
			if err != nil {
				return nil, err
			}
		}
		id, err := matchAgent(agents, reference)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
