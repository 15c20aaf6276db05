// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/drover/cmd/drover/cli"
	"github.com/bureau-foundation/drover/wire"
)

// spawnSpecFile mirrors wire.AgentSpec with JSON tags. Spec files are
// JSONC documents on disk (JSON extended with comments and trailing
// commas); the wire format stays CBOR.
type spawnSpecFile struct {
	Name         string            `json:"name"`
	Backend      string            `json:"backend"`
	Task         string            `json:"task"`
	Context      string            `json:"context"`
	SystemPrompt string            `json:"system_prompt"`
	Environment  map[string]string `json:"environment"`
}

type spawnParams struct {
	connection   connectionParams
	specPath     string
	name         string
	backend      string
	task         string
	taskContext  string
	systemPrompt string
	env          []string
}

func spawnCommand() *cli.Command {
	var params spawnParams

	return &cli.Command{
		Name:    "spawn",
		Summary: "Spawn an agent on the runner",
		Description: `Spawn a new agent. The agent description comes from a JSONC spec
file (--spec), from flags, or both; flags override spec file fields.`,
		Usage: "drover spawn [--spec <file>] [flags]",
		Examples: []cli.Example{
			{
				Description: "Spawn from a spec file",
				Command:     "drover spawn --spec agents/builder.jsonc",
			},
			{
				Description: "Spawn from flags alone",
				Command:     `drover spawn --name builder --backend claude --task "fix the build"`,
			},
			{
				Description: "Override the spec file's task",
				Command:     `drover spawn --spec agents/builder.jsonc --task "run the test suite"`,
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("spawn", pflag.ContinueOnError)
			flagSet.StringVar(&params.specPath, "spec", "", "path to a JSONC agent spec file")
			flagSet.StringVar(&params.name, "name", "", "agent name (unique per runner)")
			flagSet.StringVar(&params.backend, "backend", "", "execution backend")
			flagSet.StringVar(&params.task, "task", "", "work assignment")
			flagSet.StringVar(&params.taskContext, "context", "", "startup context")
			flagSet.StringVar(&params.systemPrompt, "system-prompt", "", "system prompt override")
			flagSet.StringArrayVar(&params.env, "env", nil, "environment entry KEY=VALUE (repeatable)")
			params.connection.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runSpawn(params)
		},
	}
}

func runSpawn(params spawnParams) error {
	spec, err := buildSpawnSpec(params)
	if err != nil {
		return err
	}

	logger := cli.NewCommandLogger().With("command", "spawn", "agent", spec.Name)
	ctx := context.Background()

	c, err := params.connection.dial(ctx, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	agent, err := c.Spawn(ctx, spec)
	if err != nil {
		return err
	}

	fmt.Printf("spawned %s\n", agent.Name)
	fmt.Printf("  id:      %s\n", agent.ID)
	fmt.Printf("  status:  %s\n", agent.Status)
	fmt.Printf("  backend: %s\n", agent.Backend)
	return nil
}

// buildSpawnSpec merges the spec file and the flag values, flags
// winning, and validates the result.
func buildSpawnSpec(params spawnParams) (wire.AgentSpec, error) {
	var spec wire.AgentSpec
	if params.specPath != "" {
		loaded, err := loadSpawnSpec(params.specPath)
		if err != nil {
			return wire.AgentSpec{}, err
		}
		spec = loaded
	}

	if params.name != "" {
		spec.Name = params.name
	}
	if params.backend != "" {
		spec.Backend = params.backend
	}
	if params.task != "" {
		spec.Task = params.task
	}
	if params.taskContext != "" {
		spec.Context = params.taskContext
	}
	if params.systemPrompt != "" {
		spec.SystemPrompt = params.systemPrompt
	}
	if len(params.env) > 0 {
		env, err := parseEnvironment(params.env)
		if err != nil {
			return wire.AgentSpec{}, err
		}
		if spec.Environment == nil {
			spec.Environment = make(map[string]string, len(env))
		}
		for key, value := range env {
			spec.Environment[key] = value
		}
	}

	if spec.Name == "" {
		return wire.AgentSpec{}, fmt.Errorf("agent name required: pass --name or set it in the spec file")
	}
	if spec.Task == "" {
		return wire.AgentSpec{}, fmt.Errorf("agent task required: pass --task or set it in the spec file")
	}
	return spec, nil
}

// loadSpawnSpec reads a JSONC spec file from disk.
func loadSpawnSpec(path string) (wire.AgentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return wire.AgentSpec{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var file spawnSpecFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return wire.AgentSpec{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	return wire.AgentSpec{
		Name:         file.Name,
		Backend:      file.Backend,
		Task:         file.Task,
		Context:      file.Context,
		SystemPrompt: file.SystemPrompt,
		Environment:  file.Environment,
	}, nil
}

// parseEnvironment splits KEY=VALUE flag entries into a map.
func parseEnvironment(entries []string) (map[string]string, error) {
	env := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed --env entry %q: want KEY=VALUE", entry)
		}
		env[key] = value
	}
	return env, nil
}
