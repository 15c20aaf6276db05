// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "drover",
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(args []string) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "monitor",
				Run: func(args []string) error {
					called = "monitor"
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"monitor"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "monitor" {
		t.Errorf("dispatched to %q, want %q", called, "monitor")
	}
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "drover",
		Subcommands: []*Command{
			{
				Name: "batch",
				Subcommands: []*Command{
					{
						Name: "pause",
						Run: func(args []string) error {
							called = "batch pause"
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute([]string{"batch", "pause", "agent-1"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "batch pause" {
		t.Errorf("dispatched to %q, want %q", called, "batch pause")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "agent-1" {
		t.Errorf("args = %v, want [agent-1]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var status string
	var target string

	command := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.StringVar(&status, "status", "", "filter by status")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				target = args[0]
			}
			return nil
		},
	}

	if err := command.Execute([]string{"--status", "running", "extra"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if status != "running" {
		t.Errorf("status = %q, want %q", status, "running")
	}
	if target != "extra" {
		t.Errorf("target = %q, want %q", target, "extra")
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "output",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("output", pflag.ContinueOnError)
			flagSet.Bool("stream", false, "stream live output")
			flagSet.Int("limit", 0, "maximum records")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}

	err := command.Execute([]string{"--straem"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "did you mean --stream") {
		t.Errorf("error = %q, want suggestion for '--stream'", errStr)
	}
	// Suggestion should be on the same line as the error, not buried.
	if !strings.Contains(errStr, "straem") {
		t.Errorf("error = %q, should mention the bad flag", errStr)
	}
	// Should include a pointer to --help.
	if !strings.Contains(errStr, "--help") {
		t.Errorf("error = %q, should point to --help", errStr)
	}
}

func TestCommand_Execute_UnknownFlagNoSuggestion(t *testing.T) {
	command := &Command{
		Name: "output",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("output", pflag.ContinueOnError)
			flagSet.Bool("stream", false, "stream live output")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}

	err := command.Execute([]string{"--zzzzzzzzz"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not suggest for distant flag", err.Error())
	}
	if !strings.Contains(err.Error(), "--help") {
		t.Errorf("error = %q, should point to --help", err.Error())
	}
}

func TestCommand_Execute_UnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "drover",
		Subcommands: []*Command{
			{Name: "spawn"},
			{Name: "monitor"},
			{Name: "version"},
		},
	}

	err := root.Execute([]string{"montor"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), "did you mean \"monitor\"") {
		t.Errorf("error = %q, want suggestion for 'monitor'", err.Error())
	}
}

func TestCommand_Execute_UnknownSubcommandNoSuggestion(t *testing.T) {
	root := &Command{
		Name: "drover",
		Subcommands: []*Command{
			{Name: "spawn"},
			{Name: "monitor"},
		},
	}

	err := root.Execute([]string{"zzzzzzz"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not contain suggestion for distant input", err.Error())
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	for _, helpArg := range []string{"-h", "--help", "help"} {
		t.Run(helpArg, func(t *testing.T) {
			root := &Command{
				Name:    "drover",
				Summary: "Remote agent control",
				Subcommands: []*Command{
					{Name: "spawn", Summary: "Spawn an agent"},
				},
			}

			err := root.Execute([]string{helpArg})
			if err != nil {
				t.Errorf("Execute(%q) error: %v", helpArg, err)
			}
		})
	}
}

func TestCommand_Execute_NoArgsShowsHelp(t *testing.T) {
	root := &Command{
		Name: "drover",
		Subcommands: []*Command{
			{Name: "spawn", Summary: "Spawn an agent"},
		},
	}

	err := root.Execute([]string{})
	if err == nil {
		t.Fatal("Execute() = nil, want error for missing subcommand")
	}
	if !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %q, want 'subcommand required'", err.Error())
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	command := &Command{
		Name:        "drover",
		Description: "Remote agent control over asynchronous messaging.",
		Subcommands: []*Command{
			{Name: "spawn", Summary: "Spawn an agent on the server"},
			{Name: "list", Summary: "List agents"},
			{Name: "version", Summary: "Print version information"},
		},
		Examples: []Example{
			{
				Description: "Spawn an agent from a spec file",
				Command:     "drover spawn --spec agent.json",
			},
			{
				Description: "Pause several agents at once",
				Command:     "drover batch pause agent-1 agent-2",
			},
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	// Verify structural elements are present.
	for _, want := range []string{
		"Remote agent control over asynchronous messaging.",
		"Usage:",
		"drover <command> [flags]",
		"Commands:",
		"spawn",
		"Spawn an agent on the server",
		"list",
		"List agents",
		"Examples:",
		"drover spawn --spec agent.json",
		"drover batch pause",
		"Run 'drover <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_PrintHelp_WithFlags(t *testing.T) {
	command := &Command{
		Name:    "output",
		Summary: "Fetch buffered agent output",
		Usage:   "drover output <agent-id> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("output", pflag.ContinueOnError)
			flagSet.Int("limit", 100, "maximum records to return")
			flagSet.Bool("stream", false, "follow live output")
			return flagSet
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"drover output <agent-id> [flags]",
		"Flags:",
		"limit",
		"stream",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_FullName(t *testing.T) {
	root := &Command{Name: "drover"}
	batch := &Command{Name: "batch", parent: root}
	pause := &Command{Name: "pause", parent: batch}

	if got := root.fullName(); got != "drover" {
		t.Errorf("root.fullName() = %q, want %q", got, "drover")
	}
	if got := batch.fullName(); got != "drover batch" {
		t.Errorf("batch.fullName() = %q, want %q", got, "drover batch")
	}
	if got := pause.fullName(); got != "drover batch pause" {
		t.Errorf("pause.fullName() = %q, want %q", got, "drover batch pause")
	}
}
