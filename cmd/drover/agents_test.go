// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/bureau-foundation/drover/wire"
)

func herd(t *testing.T) []wire.AgentInfo {
	t.Helper()
	return []wire.AgentInfo{
		{ID: uuid.MustParse("0c6c787c-96a3-4376-a316-bc9a2ae88f01"), Name: "builder", Status: wire.StatusRunning},
		{ID: uuid.MustParse("1a2b3c4d-0000-4000-8000-000000000002"), Name: "reviewer", Status: wire.StatusPaused},
		{ID: uuid.MustParse("1a994455-0000-4000-8000-000000000003"), Name: "triage", Status: wire.StatusRunning},
	}
}

func TestMatchAgentByName(t *testing.T) {
	id, err := matchAgent(herd(t), "builder")
	if err != nil {
		t.Fatalf("matchAgent() error: %v", err)
	}
	if want := uuid.MustParse("0c6c787c-96a3-4376-a316-bc9a2ae88f01"); id != want {
		t.Errorf("matchAgent() = %s, want %s", id, want)
	}
}

func TestMatchAgentByIDPrefix(t *testing.T) {
	id, err := matchAgent(herd(t), "1a2b")
	if err != nil {
		t.Fatalf("matchAgent() error: %v", err)
	}
	if want := uuid.MustParse("1a2b3c4d-0000-4000-8000-000000000002"); id != want {
		t.Errorf("matchAgent() = %s, want %s", id, want)
	}
}

func TestMatchAgentAmbiguousPrefix(t *testing.T) {
	// "1a" prefixes both reviewer and triage.
	_, err := matchAgent(herd(t), "1a")
	if err == nil {
		t.Fatal("matchAgent() = nil error, want ambiguity error")
	}
	if !strings.Contains(err.Error(), "reviewer") || !strings.Contains(err.Error(), "triage") {
		t.Errorf("ambiguity error %q should name both candidates", err)
	}
}

func TestMatchAgentNoMatch(t *testing.T) {
	_, err := matchAgent(herd(t), "ghost")
	if err == nil {
		t.Fatal("matchAgent() = nil error, want no-match error")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error %q should echo the reference", err)
	}
}

func TestMatchAgentEmptyHerd(t *testing.T) {
	_, err := matchAgent(nil, "builder")
	if err == nil {
		t.Fatal("matchAgent() = nil error, want no-match error")
	}
}

func TestShortID(t *testing.T) {
	id := uuid.MustParse("0c6c787c-96a3-4376-a316-bc9a2ae88f01")
	if got := shortID(id); got != "0c6c787c" {
		t.Errorf("shortID() = %q, want %q", got, "0c6c787c")
	}
}
