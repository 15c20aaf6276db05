// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/drover/client"
	"github.com/bureau-foundation/drover/cmd/drover/cli"
	"github.com/bureau-foundation/drover/wire"
)

type listParams struct {
	connection connectionParams
	status     string
	limit      int
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List agents on the runner",
		Usage:   "drover list [--status <status>] [--limit <n>]",
		Examples: []cli.Example{
			{
				Description: "List every agent",
				Command:     "drover list",
			},
			{
				Description: "List only running agents",
				Command:     "drover list --status running",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.StringVar(&params.status, "status", "", "filter by status (idle, initializing, running, paused, completed, failed, terminated)")
			flagSet.IntVar(&params.limit, "limit", 0, "maximum agents to return (0 = all)")
			params.connection.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runList(params)
		},
	}
}

func runList(params listParams) error {
	logger := cli.NewCommandLogger().With("command", "list")
	ctx := context.Background()

	c, err := params.connection.dial(ctx, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	agents, err := c.ListAgents(ctx, wire.AgentStatus(params.status), params.limit)
	if err != nil {
		return err
	}

	if len(agents) == 0 {
		fmt.Fprintln(os.Stderr, "no agents")
		return nil
	}

	now := time.Now()
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tNAME\tSTATUS\tBACKEND\tUPTIME\tTASK")
	for _, agent := range agents {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(agent.ID), agent.Name, agent.Status, agent.Backend,
			formatUptime(now.Sub(agent.StartedAt)), agent.Task)
	}
	writer.Flush()
	return nil
}

type statusParams struct {
	connection connectionParams
}

func statusCommand() *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Show one agent's descriptor",
		Usage:   "drover status <agent>",
		Examples: []cli.Example{
			{
				Description: "Look up an agent by name",
				Command:     "drover status builder",
			},
			{
				Description: "Look up an agent by ID prefix",
				Command:     "drover status 0c6c787c",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			params.connection.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: drover status <agent>")
			}
			return runStatus(params, args[0])
		},
	}
}

func runStatus(params statusParams, target string) error {
	logger := cli.NewCommandLogger().With("command", "status", "target", target)
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
	agent, err := c.GetAgent(ctx, agentID)
	if err != nil {
		return err
	}

	now := time.Now()
	fmt.Printf("id:       %s\n", agent.ID)
	fmt.Printf("name:     %s\n", agent.Name)
	fmt.Printf("status:   %s\n", agent.Status)
	fmt.Printf("backend:  %s\n", agent.Backend)
	fmt.Printf("task:     %s\n", agent.Task)
	fmt.Printf("started:  %s\n", agent.StartedAt.Format(time.RFC3339))
	fmt.Printf("uptime:   %s\n", formatUptime(now.Sub(agent.StartedAt)))
	if agent.PausedAt != nil {
		fmt.Printf("paused:   %s (%s ago)\n",
			agent.PausedAt.Format(time.RFC3339), formatUptime(now.Sub(*agent.PausedAt)))
	}
	return nil
}

// resolveAgentID turns a CLI agent reference into an agent ID. A full
// UUID is used as-is; anything else is matched against agent names and
// ID prefixes, which costs a list round trip.
func resolveAgentID(ctx context.Context, c *client.Client, reference string) (uuid.UUID, error) {
	if id, err := uuid.Parse(reference); err == nil {
		return id, nil
	}
	agents, err := c.ListAgents(ctx, "", 0)
	if err != nil {
		return uuid.Nil, err
	}
	return matchAgent(agents, reference)
}

// matchAgent finds the one agent whose name equals reference or whose
// ID starts with it.
func matchAgent(agents []wire.AgentInfo, reference string) (uuid.UUID, error) {
	prefix := strings.ToLower(reference)
	var matches []wire.AgentInfo
	for _, agent := range agents {
		if agent.Name == reference || strings.HasPrefix(agent.ID.String(), prefix) {
			matches = append(matches, agent)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0].ID, nil
	case 0:
		return uuid.Nil, fmt.Errorf("no agent matches %q", reference)
	default:
		names := make([]string, len(matches))
		for i, agent := range matches {
			names[i] = fmt.Sprintf("%s (%s)", agent.Name, shortID(agent.ID))
		}
		return uuid.Nil, fmt.Errorf("%q is ambiguous: matches %s", reference, strings.Join(names, ", "))
	}
}

// shortID is the first UUID group, enough to disambiguate a herd.
func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

// formatUptime renders an elapsed duration at whole-unit granularity:
// "42s", "7m09s", "3h12m", "2d02h".
func formatUptime(elapsed time.Duration) string {
	if elapsed < time.Second {
		return "0s"
	}
	switch {
	case elapsed >= 24*time.Hour:
		days := int(elapsed.Hours()) / 24
		hours := int(elapsed.Hours()) % 24
		return fmt.Sprintf("%dd%02dh", days, hours)
	case elapsed >= time.Hour:
		hours := int(elapsed.Hours())
		minutes := int(elapsed.Minutes()) % 60
		return fmt.Sprintf("%dh%02dm", hours, minutes)
	case elapsed >= time.Minute:
		minutes := int(elapsed.Minutes())
		seconds := int(elapsed.Seconds()) % 60
		return fmt.Sprintf("%dm%02ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int(elapsed.Seconds()))
	}
}
