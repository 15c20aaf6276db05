// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitorui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/drover/client"
	"github.com/bureau-foundation/drover/wire"
)

// Theme defines the color palette for the agent monitor. All colors
// use lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected table row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Agent status colors.
	StatusIdle         lipgloss.Color
	StatusInitializing lipgloss.Color
	StatusRunning      lipgloss.Color
	StatusPaused       lipgloss.Color
	StatusCompleted    lipgloss.Color
	StatusFailed       lipgloss.Color
	StatusTerminated   lipgloss.Color

	// Connection state colors for the header badge.
	StateConnected    lipgloss.Color
	StateConnecting   lipgloss.Color
	StateReconnecting lipgloss.Color
	StateDisconnected lipgloss.Color
	StateFailed       lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Event log accents.
	EventError lipgloss.Color
}

// StatusColor returns the color for an agent status. Unknown values
// return FaintText.
func (theme Theme) StatusColor(status wire.AgentStatus) lipgloss.Color {
	switch status {
	case wire.StatusIdle:
		return theme.StatusIdle
	case wire.StatusInitializing:
		return theme.StatusInitializing
	case wire.StatusRunning:
		return theme.StatusRunning
	case wire.StatusPaused:
		return theme.StatusPaused
	case wire.StatusCompleted:
		return theme.StatusCompleted
	case wire.StatusFailed:
		return theme.StatusFailed
	case wire.StatusTerminated:
		return theme.StatusTerminated
	default:
		return theme.FaintText
	}
}

// StateColor returns the color for a connection state.
func (theme Theme) StateColor(state client.State) lipgloss.Color {
	switch state {
	case client.Connected:
		return theme.StateConnected
	case client.Connecting:
		return theme.StateConnecting
	case client.Reconnecting:
		return theme.StateReconnecting
	case client.Failed:
		return theme.StateFailed
	default:
		return theme.StateDisconnected
	}
}

// DefaultTheme is the built-in dark-terminal color scheme. Designed for
// 256-color terminals with a dark background (the common case for
// development environments and tmux sessions).
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	StatusIdle:         lipgloss.Color("245"), // gray
	StatusInitializing: lipgloss.Color("75"),  // blue
	StatusRunning:      lipgloss.Color("114"), // green
	StatusPaused:       lipgloss.Color("220"), // yellow/amber
	StatusCompleted:    lipgloss.Color("141"), // light purple
	StatusFailed:       lipgloss.Color("196"), // red
	StatusTerminated:   lipgloss.Color("240"), // dim gray

	StateConnected:    lipgloss.Color("114"), // green
	StateConnecting:   lipgloss.Color("220"), // amber
	StateReconnecting: lipgloss.Color("208"), // orange
	StateDisconnected: lipgloss.Color("245"), // gray
	StateFailed:       lipgloss.Color("196"), // red

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	EventError: lipgloss.Color("196"), // red
}
