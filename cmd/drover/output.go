// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/drover/cmd/drover/cli"
	"github.com/bureau-foundation/drover/wire"
)

type stdinParams struct {
	connection connectionParams
}

func stdinCommand() *cli.Command {
	var params stdinParams

	return &cli.Command{
		Name:    "stdin",
		Summary: "Write to an agent's standard input",
		Description: `Feed data to an agent's stdin. Text arguments are joined with
spaces and terminated with a newline; with no text arguments, drover's
own stdin is forwarded until EOF.`,
		Usage: "drover stdin <agent> [text...]",
		Examples: []cli.Example{
			{
				Description: "Send a line of text",
				Command:     "drover stdin builder yes",
			},
			{
				Description: "Pipe a file in",
				Command:     "drover stdin builder < answers.txt",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("stdin", pflag.ContinueOnError)
			params.connection.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("usage: drover stdin <agent> [text...]")
			}
			return runStdin(params, args[0], args[1:])
		},
	}
}

func runStdin(params stdinParams, target string, text []string) error {
	var data []byte
	if len(text) > 0 {
		data = []byte(strings.Join(text, " ") + "\n")
	} else {
		piped, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		data = piped
	}
	if len(data) == 0 {
		return fmt.Errorf("nothing to write")
	}

	logger := cli.NewCommandLogger().With("command", "stdin", "target", target)
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
	if err := c.WriteStdin(ctx, agentID, data); err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes to %s\n", len(data), shortID(agentID))
	return nil
}

type outputParams struct {
	connection connectionParams
	stream     string
	filter     string
	limit      int
	offset     int
}

func outputCommand() *cli.Command {
	var params outputParams

	return &cli.Command{
		Name:    "output",
		Summary: "Page through an agent's captured output",
		Description: `Fetch lines from the runner's output buffer for one agent, with
optional filtering and pagination. When more lines match than the page
holds, the remainder and the next offset are reported on stderr.`,
		Usage: "drover output <agent> [flags]",
		Examples: []cli.Example{
			{
				Description: "Everything captured so far",
				Command:     "drover output builder",
			},
			{
				Description: "Only stderr lines mentioning a test failure",
				Command:     "drover output builder --stream stderr --filter FAIL",
			},
			{
				Description: "The next page of a long buffer",
				Command:     "drover output builder --limit 200 --offset 200",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("output", pflag.ContinueOnError)
			flagSet.StringVar(&params.stream, "stream", "both", "stream to read: stdout, stderr, or both")
			flagSet.StringVar(&params.filter, "filter", "", "return only lines containing this expression")
			flagSet.IntVar(&params.limit, "limit", 0, "maximum lines to return (0 = runner default)")
			flagSet.IntVar(&params.offset, "offset", 0, "skip this many matching lines")
			params.connection.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: drover output <agent> [flags]")
			}
			return runOutput(params, args[0])
		},
	}
}

func runOutput(params outputParams, target string) error {
	stream, err := wire.ParseStream(params.stream)
	if err != nil {
		return err
	}

	logger := cli.NewCommandLogger().With("command", "output", "target", target)
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
	resp, err := c.QueryOutput(ctx, wire.OutputQueryRequest{
		AgentID: agentID,
		Stream:  stream,
		Filter:  params.filter,
		Limit:   params.limit,
		Offset:  params.offset,
	})
	if err != nil {
		return err
	}

	for _, line := range resp.Lines {
		fmt.Println(line)
	}
	if resp.HasMore {
		fmt.Fprintf(os.Stderr, "%d more lines match; rerun with --offset %d\n",
			resp.TotalLines-params.offset-len(resp.Lines), params.offset+len(resp.Lines))
	}
	return nil
}

type streamParams struct {
	connection connectionParams
	stream     string
}

func streamCommand() *cli.Command {
	var params streamParams

	return &cli.Command{
		Name:    "stream",
		Summary: "Follow an agent's output live",
		Description: `Ask the runner to push the agent's output as it is produced and
print it until interrupted. Stdout records go to stdout and stderr
records to stderr, so the two can be redirected independently.
Requires the async socket pattern.`,
		Usage: "drover stream <agent> [flags]",
		Examples: []cli.Example{
			{
				Description: "Follow everything",
				Command:     "drover stream builder",
			},
			{
				Description: "Follow stderr only",
				Command:     "drover stream builder --stream stderr",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("stream", pflag.ContinueOnError)
			flagSet.StringVar(&params.stream, "stream", "both", "stream to follow: stdout, stderr, or both")
			params.connection.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: drover stream <agent> [flags]")
			}
			return runStream(params, args[0])
		},
	}
}

func runStream(params streamParams, target string) error {
	stream, err := wire.ParseStream(params.stream)
	if err != nil {
		return err
	}

	logger := cli.NewCommandLogger().With("command", "stream", "target", target)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := params.connection.dial(ctx, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	agentID, err := resolveAgentID(ctx, c, target)
	if err != nil {
		return err
	}
	logs, err := c.StreamLogs(ctx, agentID, stream)
	if err != nil {
		return err
	}
	defer logs.Close()

	for {
		select {
		case <-ctx.Done():
			if dropped := logs.Dropped(); dropped > 0 {
				fmt.Fprintf(os.Stderr, "dropped %d records\n", dropped)
			}
			return nil
		case record, ok := <-logs.Records():
			if !ok {
				if dropped := logs.Dropped(); dropped > 0 {
					fmt.Fprintf(os.Stderr, "dropped %d records\n", dropped)
				}
				return nil
			}
			if record.Stream == wire.StreamStderr {
				os.Stderr.Write(record.Data)
			} else {
				os.Stdout.Write(record.Data)
			}
		}
	}
}
