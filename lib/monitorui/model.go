// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitorui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"

	"github.com/bureau-foundation/drover/client"
	"github.com/bureau-foundation/drover/wire"
)

// FocusRegion identifies which pane has keyboard focus.
type FocusRegion int

const (
	// FocusTable means navigation keys move the agent table cursor.
	FocusTable FocusRegion = iota
	// FocusEvents means navigation keys scroll the event log.
	FocusEvents
)

const (
	// pollInterval is how often the monitor re-reads connection state
	// and transport counters even when no status events arrive.
	pollInterval = 2 * time.Second

	// agentListTimeout bounds one table refresh round-trip.
	agentListTimeout = 10 * time.Second

	// eventLogLimit caps the retained event log. Older entries fall
	// off the front.
	eventLogLimit = 500

	// noticeFadeDelay is how long a control error stays visible in
	// the help bar.
	noticeFadeDelay = 4 * time.Second
)

// statusEventMsg wraps a live status update for delivery through the
// bubbletea message loop.
type statusEventMsg struct {
	update wire.StatusUpdate
}

// agentListMsg carries the result of an asynchronous table refresh.
type agentListMsg struct {
	agents []wire.AgentInfo
	err    error
}

// pollTickMsg drives the periodic header refresh. While the program
// runs, a new tick is scheduled after each one.
type pollTickMsg struct{}

// controlResultMsg is sent when an asynchronous control command
// (pause/resume/stop) completes.
type controlResultMsg struct {
	op  string
	err error
}

// noticeFadeMsg is sent after a delay to clear the control error
// notice from the help bar.
type noticeFadeMsg struct{}

// eventEntry is one line in the event log. Connection state changes
// use uuid.Nil as the agent ID.
type eventEntry struct {
	at      time.Time
	agentID uuid.UUID
	kind    string
	status  wire.AgentStatus
	message string
}

// Model is the top-level bubbletea model for the agent monitor.
type Model struct {
	source   Source
	theme    Theme
	keys     KeyMap
	endpoint string

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	// Agent table state. selectedID tracks the selection by agent ID
	// so it survives refreshes that reorder the table.
	agents       []wire.AgentInfo
	cursor       int
	scrollOffset int
	selectedID   uuid.UUID

	// Event log.
	focusRegion FocusRegion
	events      []eventEntry
	eventView   viewport.Model

	// Header data, refreshed on each poll tick.
	connState client.State
	stats     client.Stats

	// Transient notices.
	listError     string
	controlNotice string

	// Live update subscription; nil when the source cannot stream.
	eventChannel <-chan wire.StatusUpdate
}

// NewModel creates a Model connected to the given agent source. The
// endpoint string is display-only.
func NewModel(source Source, endpoint string) Model {
	return Model{
		source:       source,
		theme:        DefaultTheme,
		keys:         DefaultKeyMap,
		endpoint:     endpoint,
		connState:    source.ConnectionState(),
		stats:        source.Stats(),
		eventChannel: source.Subscribe(),
	}
}

// Init implements tea.Model. Kicks off the status event pump, the
// first table load, and the header poll ticker.
func (model Model) Init() tea.Cmd {
	commands := []tea.Cmd{
		model.refreshAgents(),
		pollTick(),
	}
	if model.eventChannel != nil {
		commands = append(commands, listenForStatusUpdate(model.eventChannel))
	}
	return tea.Batch(commands...)
}

// listenForStatusUpdate returns a tea.Cmd that blocks until an update
// arrives on the subscription channel, then delivers it as a
// statusEventMsg.
func listenForStatusUpdate(channel <-chan wire.StatusUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-channel
		if !ok {
			return nil
		}
		return statusEventMsg{update: update}
	}
}

// refreshAgents returns a tea.Cmd that fetches the agent table in the
// background and delivers it as an agentListMsg.
func (model Model) refreshAgents() tea.Cmd {
	source := model.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), agentListTimeout)
		defer cancel()
		agents, err := source.Agents(ctx)
		return agentListMsg{agents: agents, err: err}
	}
}

// pollTick schedules the next header refresh.
func pollTick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		return model.handleKeys(message)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.eventView.Width = model.width
		model.eventView.Height = model.eventHeight()
		model.rebuildEventView()
		model.clampTableScroll()

	case statusEventMsg:
		at := message.update.Timestamp
		if at.IsZero() {
			at = time.Now()
		}
		model.appendEvent(eventEntry{
			at:      at,
			agentID: message.update.AgentID,
			kind:    string(message.update.Type),
			status:  message.update.Status,
			message: message.update.Message,
		})
		commands := []tea.Cmd{listenForStatusUpdate(model.eventChannel)}
		if !model.applyStatusUpdate(message.update) {
			// Unknown agent — the table is stale, reload it.
			commands = append(commands, model.refreshAgents())
		}
		return model, tea.Batch(commands...)

	case agentListMsg:
		if message.err != nil {
			model.listError = message.err.Error()
			return model, nil
		}
		model.listError = ""
		model.agents = message.agents
		model.restoreSelection()
		model.clampTableScroll()

	case pollTickMsg:
		previous := model.connState
		model.connState = model.source.ConnectionState()
		model.stats = model.source.Stats()
		if model.connState != previous {
			model.appendEvent(eventEntry{
				at:      time.Now(),
				kind:    "connection",
				message: model.connState.String(),
			})
		}
		return model, pollTick()

	case controlResultMsg:
		if message.err != nil {
			model.controlNotice = fmt.Sprintf("%s failed: %s", message.op, message.err)
			return model, tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg {
				return noticeFadeMsg{}
			})
		}
		// Success: the status subscription delivers the resulting
		// state change, but refresh anyway for sources without one.
		return model, model.refreshAgents()

	case noticeFadeMsg:
		model.controlNotice = ""
	}
	return model, nil
}

// handleKeys routes keyboard input based on the current focus region.
func (model Model) handleKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.FocusToggle):
		if model.focusRegion == FocusTable {
			model.focusRegion = FocusEvents
		} else {
			model.focusRegion = FocusTable
		}

	case key.Matches(message, model.keys.Refresh):
		return model, model.refreshAgents()

	case key.Matches(message, model.keys.Pause):
		return model.dispatchControl("pause", Controller.Pause)

	case key.Matches(message, model.keys.Resume):
		return model.dispatchControl("resume", Controller.Resume)

	case key.Matches(message, model.keys.Stop):
		return model.dispatchControl("stop", Controller.Stop)

	default:
		if model.focusRegion == FocusTable {
			model.handleTableKeys(message)
		} else {
			model.handleEventKeys(message)
		}
	}
	return model, nil
}

// dispatchControl issues a control command against the selected agent
// in a background goroutine. No-op when the source is read-only or
// nothing is selected.
func (model Model) dispatchControl(op string, call func(Controller, context.Context, uuid.UUID) error) (tea.Model, tea.Cmd) {
	controller, ok := model.source.(Controller)
	if !ok {
		return model, nil
	}
	agent, ok := model.selectedAgent()
	if !ok {
		return model, nil
	}
	agentID := agent.ID
	return model, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), agentListTimeout)
		defer cancel()
		return controlResultMsg{op: op, err: call(controller, ctx, agentID)}
	}
}

// handleTableKeys processes navigation keys when the table has focus.
func (model *Model) handleTableKeys(message tea.KeyMsg) {
	switch {
	case key.Matches(message, model.keys.Up):
		if model.cursor > 0 {
			model.cursor--
		}
	case key.Matches(message, model.keys.Down):
		if model.cursor < len(model.agents)-1 {
			model.cursor++
		}
	case key.Matches(message, model.keys.PageUp):
		model.cursor -= model.tableHeight()
		if model.cursor < 0 {
			model.cursor = 0
		}
	case key.Matches(message, model.keys.PageDown):
		model.cursor += model.tableHeight()
		if model.cursor >= len(model.agents) {
			model.cursor = len(model.agents) - 1
		}
		if model.cursor < 0 {
			model.cursor = 0
		}
	case key.Matches(message, model.keys.Home):
		model.cursor = 0
	case key.Matches(message, model.keys.End):
		if len(model.agents) > 0 {
			model.cursor = len(model.agents) - 1
		}
	}

	if model.cursor < len(model.agents) {
		model.selectedID = model.agents[model.cursor].ID
	}
	model.clampTableScroll()
}

// handleEventKeys processes navigation keys when the event log has focus.
func (model *Model) handleEventKeys(message tea.KeyMsg) {
	switch {
	case key.Matches(message, model.keys.Up):
		model.eventView.LineUp(1)
	case key.Matches(message, model.keys.Down):
		model.eventView.LineDown(1)
	case key.Matches(message, model.keys.PageUp):
		model.eventView.HalfViewUp()
	case key.Matches(message, model.keys.PageDown):
		model.eventView.HalfViewDown()
	case key.Matches(message, model.keys.Home):
		model.eventView.GotoTop()
	case key.Matches(message, model.keys.End):
		model.eventView.GotoBottom()
	}
}

// appendEvent adds one entry to the event log, trimming the front when
// the log exceeds eventLogLimit, and re-renders the viewport. The view
// follows the tail unless the user has scrolled up.
func (model *Model) appendEvent(entry eventEntry) {
	model.events = append(model.events, entry)
	if len(model.events) > eventLogLimit {
		model.events = model.events[len(model.events)-eventLogLimit:]
	}
	follow := model.eventView.AtBottom()
	model.rebuildEventView()
	if follow {
		model.eventView.GotoBottom()
	}
}

// applyStatusUpdate patches the in-memory table row for the update's
// agent. Returns false when the agent is not in the table (the caller
// should schedule a refresh).
func (model *Model) applyStatusUpdate(update wire.StatusUpdate) bool {
	for index := range model.agents {
		if model.agents[index].ID == update.AgentID {
			if update.Status != "" {
				model.agents[index].Status = update.Status
			}
			return true
		}
	}
	return false
}

// restoreSelection finds the previously selected agent in a refreshed
// table and moves the cursor there. Falls back to clamping the cursor
// when the agent is gone.
func (model *Model) restoreSelection() {
	if model.selectedID != uuid.Nil {
		for index, agent := range model.agents {
			if agent.ID == model.selectedID {
				model.cursor = index
				return
			}
		}
	}
	if model.cursor >= len(model.agents) {
		model.cursor = len(model.agents) - 1
	}
	if model.cursor < 0 {
		model.cursor = 0
	}
	if model.cursor < len(model.agents) {
		model.selectedID = model.agents[model.cursor].ID
	}
}

// selectedAgent returns the agent under the cursor.
func (model Model) selectedAgent() (wire.AgentInfo, bool) {
	if model.cursor < 0 || model.cursor >= len(model.agents) {
		return wire.AgentInfo{}, false
	}
	return model.agents[model.cursor], true
}

// tableHeight returns the number of rows available for agent entries.
// The table takes the upper half of the space left after chrome lines
// (header, column titles, two separators, event log, help bar).
func (model Model) tableHeight() int {
	content := model.height - 6
	if content < 2 {
		content = 2
	}
	height := content / 2
	if height < 1 {
		height = 1
	}
	return height
}

// eventHeight returns the number of lines for the event log viewport.
func (model Model) eventHeight() int {
	content := model.height - 6
	if content < 2 {
		content = 2
	}
	height := content - content/2
	if height < 1 {
		height = 1
	}
	return height
}

// clampTableScroll keeps the cursor within the visible table window.
func (model *Model) clampTableScroll() {
	visible := model.tableHeight()
	if model.cursor < model.scrollOffset {
		model.scrollOffset = model.cursor
	}
	if model.cursor >= model.scrollOffset+visible {
		model.scrollOffset = model.cursor - visible + 1
	}
	if model.scrollOffset < 0 {
		model.scrollOffset = 0
	}
}

// View implements tea.Model. Renders the header, the agent table, the
// event log, and the help bar.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}

	separator := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor).
		Render(strings.Repeat("─", model.width))

	sections := []string{
		model.renderHeader(),
		separator,
		model.renderTable(),
		separator,
		model.eventView.View(),
		separator,
		model.renderHelp(),
	}
	return strings.Join(sections, "\n")
}

// renderHeader renders the top line: program name, endpoint, the
// connection state badge, and transport counters right-aligned.
func (model Model) renderHeader() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(model.theme.HeaderForeground)
	faintStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	stateStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(model.theme.StateColor(model.connState))

	left := " " + titleStyle.Render("drover") +
		"  " + faintStyle.Render(model.endpoint) +
		"  " + stateStyle.Render("● "+model.connState.String())

	right := faintStyle.Render(fmt.Sprintf("sent %d  recv %d  reconnects %d ",
		model.stats.MessagesSent, model.stats.MessagesReceived, model.stats.Reconnections))

	padding := model.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		return ansi.Truncate(left, model.width, "…")
	}
	return left + strings.Repeat(" ", padding) + right
}

// Column widths for the agent table. The task column fills remaining
// space; all others are fixed.
const (
	columnWidthID      = 10 // 8-char short ID + 2-space gutter
	columnWidthName    = 18
	columnWidthStatus  = 14 // longest status is "initializing"
	columnWidthBackend = 12
	columnWidthUptime  = 10
)

// renderTable renders the column header plus one row per visible agent.
func (model Model) renderTable() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(model.theme.HeaderForeground)

	lines := []string{headerStyle.Render(model.padRow(
		"ID", "NAME", "STATUS", "BACKEND", "UPTIME", "TASK"))}

	visible := model.tableHeight()
	now := time.Now()
	for index := model.scrollOffset; index < model.scrollOffset+visible && index < len(model.agents); index++ {
		lines = append(lines, model.renderAgentRow(model.agents[index], index == model.cursor, now))
	}

	// Pad empty rows so the event log stays anchored.
	for len(lines) < visible+1 {
		lines = append(lines, "")
	}

	if len(model.agents) == 0 {
		empty := "  no agents"
		if model.listError != "" {
			empty = "  list failed: " + ansi.Strip(model.listError)
		}
		lines[1] = lipgloss.NewStyle().
			Foreground(model.theme.FaintText).
			Render(ansi.Truncate(empty, model.width, "…"))
	}

	return strings.Join(lines, "\n")
}

// renderAgentRow renders one agent as a fixed-column table row. The
// selected row (while the table has focus) gets the full-width
// selection highlight; otherwise only the status cell is colored.
func (model Model) renderAgentRow(agent wire.AgentInfo, selected bool, now time.Time) string {
	shortID := agent.ID.String()
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	name := agent.Name
	if name == "" {
		name = "-"
	}

	prefix := "  " +
		padColumn(shortID, columnWidthID) +
		padColumn(name, columnWidthName)
	statusCell := padColumn(string(agent.Status), columnWidthStatus)
	suffix := padColumn(agent.Backend, columnWidthBackend) +
		padColumn(formatUptime(now.Sub(agent.StartedAt)), columnWidthUptime) +
		ansi.Truncate(ansi.Strip(agent.Task), model.taskWidth(), "…")

	if selected && model.focusRegion == FocusTable {
		return lipgloss.NewStyle().
			Background(model.theme.SelectedBackground).
			Foreground(model.theme.SelectedForeground).
			Width(model.width).
			MaxWidth(model.width).
			Render(prefix + statusCell + suffix)
	}

	statusStyle := lipgloss.NewStyle().Foreground(model.theme.StatusColor(agent.Status))
	return prefix + statusStyle.Render(statusCell) + suffix
}

// padRow lays out the six table columns at their fixed offsets, with
// the task column truncated to the remaining width.
func (model Model) padRow(id, name, status, backend, uptime, task string) string {
	return "  " +
		padColumn(id, columnWidthID) +
		padColumn(name, columnWidthName) +
		padColumn(status, columnWidthStatus) +
		padColumn(backend, columnWidthBackend) +
		padColumn(uptime, columnWidthUptime) +
		ansi.Truncate(task, model.taskWidth(), "…")
}

// taskWidth returns the width left for the task column after the
// fixed columns and the leading gutter.
func (model Model) taskWidth() int {
	fixed := 2 + columnWidthID + columnWidthName + columnWidthStatus +
		columnWidthBackend + columnWidthUptime
	width := model.width - fixed
	if width < 4 {
		width = 4
	}
	return width
}

// padColumn pads or truncates text to an exact column width, leaving
// at least a one-space gutter.
func padColumn(text string, width int) string {
	text = truncateColumn(text, width-1)
	return text + strings.Repeat(" ", width-ansi.StringWidth(text))
}

// truncateColumn truncates text to fit a column, appending an ellipsis
// when something was cut.
func truncateColumn(text string, width int) string {
	if ansi.StringWidth(text) <= width {
		return text
	}
	return ansi.Truncate(text, width, "…")
}

// rebuildEventView re-renders the event log into the viewport.
func (model *Model) rebuildEventView() {
	timeStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	idStyle := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	errorStyle := lipgloss.NewStyle().Foreground(model.theme.EventError)
	kindStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)

	width := model.eventView.Width
	if width <= 0 {
		width = 80
	}

	lines := make([]string, 0, len(model.events))
	for _, entry := range model.events {
		shortID := "--------"
		if entry.agentID != uuid.Nil {
			shortID = entry.agentID.String()[:8]
		}

		kind := kindStyle.Render(entry.kind)
		if entry.kind == string(wire.StatusError) {
			kind = errorStyle.Render(entry.kind)
		}

		var details []string
		if entry.status != "" {
			details = append(details, lipgloss.NewStyle().
				Foreground(model.theme.StatusColor(entry.status)).
				Render(string(entry.status)))
		}
		if entry.message != "" {
			details = append(details, ansi.Strip(entry.message))
		}

		line := fmt.Sprintf(" %s  %s  %s  %s",
			timeStyle.Render(entry.at.Format("15:04:05")),
			idStyle.Render(shortID),
			kind,
			strings.Join(details, "  "),
		)
		lines = append(lines, ansi.Truncate(line, width, "…"))
	}

	model.eventView.SetContent(strings.Join(lines, "\n"))
}

// renderHelp renders the bottom help bar with the focus indicator and
// active key bindings. A control error notice temporarily replaces
// the binding list.
func (model Model) renderHelp() string {
	style := lipgloss.NewStyle().Foreground(model.theme.HelpText)

	if model.controlNotice != "" {
		return lipgloss.NewStyle().
			Foreground(model.theme.EventError).
			Render(ansi.Truncate(" "+model.controlNotice, model.width, "…"))
	}

	focusIndicator := "AGENTS"
	if model.focusRegion == FocusEvents {
		focusIndicator = "EVENTS"
	}

	help := fmt.Sprintf(" [%s] q quit  ↑↓ navigate  Tab focus  r refresh", focusIndicator)
	if _, ok := model.source.(Controller); ok {
		help += "  p pause  u resume  s stop"
	}
	if model.listError != "" {
		help += "  (refresh failed)"
	}
	return style.Render(ansi.Truncate(help, model.width, "…"))
}

// formatUptime renders a duration in compact form: 42s, 7m09s, 3h12m,
// 2d05h. Sub-second and negative durations render as 0s.
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
