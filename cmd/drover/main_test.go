// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"testing"

	"github.com/bureau-foundation/drover/cmd/drover/cli"
)

// TestCommandTreeShape walks the full production command tree and
// validates that every command is dispatchable: it has a name, a
// summary for the help listing, and either a Run function or
// subcommands to descend into.
func TestCommandTreeShape(t *testing.T) {
	root := rootCommand()
	walkCommands(root, nil, func(command *cli.Command, path []string) {
		name := strings.Join(path, " ")
		if command.Name == "" {
			t.Errorf("%s: command without a name", name)
		}
		if command != root && command.Summary == "" {
			t.Errorf("%s: command without a summary", name)
		}
		if command.Run == nil && len(command.Subcommands) == 0 {
			t.Errorf("%s: command with neither Run nor subcommands", name)
		}
	})
}

func TestCommandTreeUniqueNames(t *testing.T) {
	root := rootCommand()
	walkCommands(root, nil, func(command *cli.Command, path []string) {
		seen := make(map[string]bool)
		for _, sub := range command.Subcommands {
			if seen[sub.Name] {
				t.Errorf("%s: duplicate subcommand %q", strings.Join(path, " "), sub.Name)
			}
			seen[sub.Name] = true
		}
	})
}

// TestCommandTreeUsagePrefix checks that each command's usage line
// starts with its full dispatch path, so help text matches what the
// user actually types.
func TestCommandTreeUsagePrefix(t *testing.T) {
	root := rootCommand()
	walkCommands(root, nil, func(command *cli.Command, path []string) {
		if command.Usage == "" {
			return
		}
		prefix := strings.Join(path, " ")
		if !strings.HasPrefix(command.Usage, prefix) {
			t.Errorf("%s: usage %q does not start with dispatch path", prefix, command.Usage)
		}
	})
}

// walkCommands recursively visits every command in the tree,
// calling visit for each node with the accumulated command path.
func walkCommands(command *cli.Command, path []string, visit func(*cli.Command, []string)) {
	current := make([]string, len(path)+1)
	copy(current, path)
	current[len(path)] = command.Name
	visit(command, current)
	for _, sub := range command.Subcommands {
		walkCommands(sub, current, visit)
	}
}
