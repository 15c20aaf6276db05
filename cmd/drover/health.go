// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/drover/cmd/drover/cli"
)

type healthParams struct {
	connection connectionParams
}

func healthCommand() *cli.Command {
	var params healthParams

	return &cli.Command{
		Name:    "health",
		Summary: "Probe the runner and report its health",
		Description: `Probe the runner. Exits 0 when the runner answers and reports
healthy, 1 otherwise, so the command works as a scriptable liveness
check.`,
		Usage: "drover health [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("health", pflag.ContinueOnError)
			params.connection.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runHealth(params)
		},
	}
}

func runHealth(params healthParams) error {
	logger := cli.NewCommandLogger().With("command", "health")
	ctx := context.Background()

	c, err := params.connection.dial(ctx, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runner unreachable: %v\n", err)
		return &cli.ExitError{Code: 1}
	}
	defer c.Close()

	resp, err := c.HealthCheck(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
		return &cli.ExitError{Code: 1}
	}

	fmt.Printf("healthy:  %t\n", resp.Healthy)
	fmt.Printf("protocol: %s\n", resp.ProtocolVersion)
	if resp.UptimeSecs > 0 {
		fmt.Printf("uptime:   %s\n", formatUptime(time.Duration(resp.UptimeSecs)*time.Second))
	}
	fmt.Printf("agents:   %d\n", resp.ActiveAgents)
	if len(resp.Metadata) > 0 {
		keys := make([]string, 0, len(resp.Metadata))
		for key := range resp.Metadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Printf("%s: %s\n", key, resp.Metadata[key])
		}
	}

	if !resp.Healthy {
		return &cli.ExitError{Code: 1}
	}
	return nil
}
