// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/drover/cmd/drover/cli"
	"github.com/bureau-foundation/drover/wire"
)

type actionParams struct {
	connection connectionParams
	paramsPath string
	timeout    int
}

func actionCommand() *cli.Command {
	var params actionParams

	return &cli.Command{
		Name:    "action",
		Summary: "Invoke a runner-defined action on an agent",
		Description: `Invoke a custom action by name. Parameters come from a JSONC file;
the runner's reply document is printed as JSON.`,
		Usage: "drover action <agent> <action> [flags]",
		Examples: []cli.Example{
			{
				Description: "Parameterless action",
				Command:     "drover action builder checkpoint",
			},
			{
				Description: "Action with a parameter document and a long deadline",
				Command:     "drover action builder analyze --params analyze.jsonc --timeout 300",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("action", pflag.ContinueOnError)
			flagSet.StringVar(&params.paramsPath, "params", "", "path to a JSONC parameter document")
			flagSet.IntVar(&params.timeout, "timeout", 0, "action timeout in seconds (default: request timeout)")
			params.connection.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: drover action <agent> <action> [flags]")
			}
			return runAction(params, args[0], args[1])
		},
	}
}

func runAction(params actionParams, target, action string) error {
	var actionArgs any
	if params.paramsPath != "" {
		data, err := os.ReadFile(params.paramsPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", params.paramsPath, err)
		}
		if err := json.Unmarshal(jsonc.ToJSON(data), &actionArgs); err != nil {
			return fmt.Errorf("parsing %s: %w", params.paramsPath, err)
		}
	}

	logger := cli.NewCommandLogger().With("command", "action", "target", target, "action", action)
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
	result, err := c.CustomAction(ctx, agentID, action, actionArgs, time.Duration(params.timeout)*time.Second)
	if err != nil {
		return err
	}

	if len(result) == 0 {
		fmt.Println("ok")
		return nil
	}
	fmt.Println(renderReply(result))
	return nil
}

// renderReply formats an action's raw CBOR reply as indented JSON,
// falling back to CBOR diagnostic notation for documents JSON cannot
// express (binary strings, exotic keys).
func renderReply(raw wire.RawMessage) string {
	var decoded any
	if err := wire.Unmarshal(raw, &decoded); err == nil {
		if rendered, err := json.MarshalIndent(decoded, "", "  "); err == nil {
			return string(rendered)
		}
	}
	if diag, err := wire.Diagnose(raw); err == nil {
		return diag
	}
	return fmt.Sprintf("%x", []byte(raw))
}
