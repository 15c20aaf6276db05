// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is reported in health-check responses. Bump on any
// incompatible change to the envelope or payload schema.
const ProtocolVersion = "1.0.0"

// AgentStatus is the lifecycle state of a remote agent as reported by
// the runner.
type AgentStatus string

const (
	// StatusIdle: created but not yet started.
	StatusIdle AgentStatus = "idle"
	// StatusInitializing: loading context, setting up environment.
	StatusInitializing AgentStatus = "initializing"
	// StatusRunning: actively executing its task.
	StatusRunning AgentStatus = "running"
	// StatusPaused: suspended, resumable.
	StatusPaused AgentStatus = "paused"
	// StatusCompleted: finished successfully.
	StatusCompleted AgentStatus = "completed"
	// StatusFailed: stopped on error.
	StatusFailed AgentStatus = "failed"
	// StatusTerminated: externally killed.
	StatusTerminated AgentStatus = "terminated"
)

// AgentSpec describes the agent a spawn request asks the runner to
// start. The runner owns process creation; the client only ships the
// description.
type AgentSpec struct {
	// Name is the human-readable agent name, unique per runner.
	Name string `cbor:"name"`

	// Backend selects the execution backend the runner should use.
	Backend string `cbor:"backend"`

	// Task is the work assignment handed to the agent on startup.
	Task string `cbor:"task"`

	// Context is optional startup context made available to the agent.
	Context string `cbor:"context,omitempty"`

	// SystemPrompt optionally overrides the backend's default prompt.
	SystemPrompt string `cbor:"system_prompt,omitempty"`

	// Environment is injected into the agent process environment.
	Environment map[string]string `cbor:"environment,omitempty"`
}

// AgentInfo describes a live agent on the runner.
type AgentInfo struct {
	ID      uuid.UUID   `cbor:"id"`
	Name    string      `cbor:"name"`
	Status  AgentStatus `cbor:"status"`
	Backend string      `cbor:"backend"`
	Task    string      `cbor:"task"`

	// StartedAt is when the runner started the agent process.
	StartedAt time.Time `cbor:"started_at"`

	// PausedAt is set while the agent is paused.
	PausedAt *time.Time `cbor:"paused_at,omitempty"`
}

// SpawnRequest asks the runner to start a new agent.
type SpawnRequest struct {
	Agent AgentSpec `cbor:"agent"`

	// TimeoutSecs optionally bounds the spawn operation on the runner
	// side, independent of the client's own request timeout.
	TimeoutSecs int64 `cbor:"timeout_secs,omitempty"`

	// Metadata is opaque tracking information echoed into runner logs.
	Metadata map[string]string `cbor:"metadata,omitempty"`
}

// SpawnResponse answers a spawn request.
type SpawnResponse struct {
	Success bool `cbor:"success"`

	// AgentInfo describes the spawned agent when Success is true.
	AgentInfo *AgentInfo `cbor:"agent_info,omitempty"`

	// Error is the runner's failure description when Success is false.
	Error string `cbor:"error,omitempty"`

	// ServerID identifies the runner that handled the spawn, for
	// multi-runner deployments.
	ServerID string `cbor:"server_id,omitempty"`
}

// ControlType enumerates the operations a control command can carry.
type ControlType string

const (
	ControlPause        ControlType = "pause"
	ControlResume       ControlType = "resume"
	ControlStop         ControlType = "stop"
	ControlKill         ControlType = "kill"
	ControlWriteStdin   ControlType = "write_stdin"
	ControlReadStdout   ControlType = "read_stdout"
	ControlReadStderr   ControlType = "read_stderr"
	ControlGetStatus    ControlType = "get_status"
	ControlSignal       ControlType = "signal"
	ControlCustomAction ControlType = "custom_action"
	ControlQueryOutput  ControlType = "query_output"
	ControlStreamLogs   ControlType = "stream_logs"
)

// ParseControlType maps a string (CLI argument, config value) to a
// known control type.
func ParseControlType(s string) (ControlType, error) {
	switch t := ControlType(s); t {
	case ControlPause, ControlResume, ControlStop, ControlKill,
		ControlWriteStdin, ControlReadStdout, ControlReadStderr,
		ControlGetStatus, ControlSignal, ControlCustomAction,
		ControlQueryOutput, ControlStreamLogs:
		return t, nil
	}
	return "", fmt.Errorf("wire: unknown control type %q", s)
}

// ControlCommand directs the runner to act on one agent.
type ControlCommand struct {
	AgentID uuid.UUID   `cbor:"agent_id"`
	Command ControlType `cbor:"command_type"`

	// Payload carries command-specific arguments: StdinPayload for
	// write_stdin, ReadOutputPayload for read_stdout/read_stderr,
	// SignalPayload for signal, StreamLogsPayload for stream_logs.
	Payload RawMessage `cbor:"payload,omitempty"`
}

// CommandResponse answers a control command or custom action.
type CommandResponse struct {
	AgentID uuid.UUID `cbor:"agent_id"`
	Success bool      `cbor:"success"`

	// Status is the agent's state after the command, when known.
	Status AgentStatus `cbor:"status,omitempty"`

	// Data carries command-specific results, e.g. OutputData for
	// read_stdout/read_stderr or a custom action's reply document.
	Data RawMessage `cbor:"data,omitempty"`

	// Error is the runner's failure description when Success is false.
	Error string `cbor:"error,omitempty"`
}

// StdinPayload is the control payload for write_stdin.
type StdinPayload struct {
	Data []byte `cbor:"data"`
}

// ReadOutputPayload is the control payload for read_stdout and
// read_stderr.
type ReadOutputPayload struct {
	// MaxLines bounds the returned output; zero means runner default.
	MaxLines int `cbor:"max_lines,omitempty"`
}

// OutputData is the response data for read_stdout and read_stderr.
type OutputData struct {
	Data []byte `cbor:"data"`
}

// SignalPayload is the control payload for signal.
type SignalPayload struct {
	// Signal is a symbolic name such as "SIGINT" or "SIGTERM".
	Signal string `cbor:"signal"`
}

// StreamLogsPayload is the control payload for stream_logs.
type StreamLogsPayload struct {
	Stream Stream `cbor:"stream"`
}

// StatusType enumerates the event flavors a runner pushes.
type StatusType string

const (
	StatusChanged   StatusType = "status_changed"
	OutputAvailable StatusType = "output_available"
	StatusError     StatusType = "error"
	AgentCompleted  StatusType = "completed"
	AgentTerminated StatusType = "terminated"
	Heartbeat       StatusType = "heartbeat"
)

// StatusUpdate is pushed spontaneously by the runner; it answers no
// request and carries no request ID.
type StatusUpdate struct {
	AgentID uuid.UUID  `cbor:"agent_id"`
	Type    StatusType `cbor:"update_type"`

	// Status is the agent's current state, when the event implies one.
	Status AgentStatus `cbor:"status,omitempty"`

	// Message is a human-readable description.
	Message string `cbor:"message,omitempty"`

	// Data is event-specific detail.
	Data RawMessage `cbor:"data,omitempty"`

	// Timestamp is when the runner emitted the event.
	Timestamp time.Time `cbor:"timestamp"`
}

// Stream selects which output stream an operation applies to.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
	StreamBoth   Stream = "both"
)

// ParseStream maps a string (CLI argument, config value) to a stream
// selector.
func ParseStream(s string) (Stream, error) {
	switch v := Stream(s); v {
	case StreamStdout, StreamStderr, StreamBoth:
		return v, nil
	}
	return "", fmt.Errorf("wire: unknown stream %q", s)
}

// LogStreamRecord is one chunk of live agent output, pushed by the
// runner after stream_logs is enabled. Sequence numbers are
// monotonically increasing per agent and stream so consumers can
// detect gaps after reconnection.
type LogStreamRecord struct {
	AgentID uuid.UUID `cbor:"agent_id"`

	// Stream is stdout or stderr; never both.
	Stream Stream `cbor:"stream"`

	// Data is raw output bytes, typically UTF-8 text.
	Data []byte `cbor:"data"`

	// Timestamp is when the runner captured the output.
	Timestamp time.Time `cbor:"timestamp"`

	// Sequence orders records per agent and stream.
	Sequence uint64 `cbor:"sequence"`
}

// ListAgentsRequest asks the runner for its agent table.
type ListAgentsRequest struct {
	// FilterStatus restricts results to agents in one state.
	FilterStatus AgentStatus `cbor:"filter_status,omitempty"`

	// Limit bounds the number of agents returned; zero means all.
	Limit int `cbor:"limit,omitempty"`
}

// ListAgentsResponse answers a list request.
type ListAgentsResponse struct {
	Success bool        `cbor:"success"`
	Agents  []AgentInfo `cbor:"agents"`
	Error   string      `cbor:"error,omitempty"`
}

// HealthCheckRequest probes runner liveness. It has no fields; the
// envelope's request ID does the work.
type HealthCheckRequest struct{}

// HealthCheckResponse reports runner health.
type HealthCheckResponse struct {
	Healthy bool `cbor:"healthy"`

	// ProtocolVersion is the runner's protocol version string.
	ProtocolVersion string `cbor:"protocol_version"`

	// UptimeSecs is how long the runner has been up.
	UptimeSecs int64 `cbor:"uptime_secs,omitempty"`

	// ActiveAgents is the runner's current agent count.
	ActiveAgents int `cbor:"active_agents,omitempty"`

	// Metadata is runner-specific detail (build info, capacity).
	Metadata map[string]string `cbor:"metadata,omitempty"`
}

// CustomActionRequest invokes a named, runner-defined action on one
// agent. Answered by a CommandResponse.
type CustomActionRequest struct {
	AgentID uuid.UUID `cbor:"agent_id"`

	// Action is the runner-defined action name.
	Action string `cbor:"action"`

	// Params is an opaque parameter document passed through to the
	// action handler.
	Params RawMessage `cbor:"params,omitempty"`

	// TimeoutSecs optionally bounds the action on the runner side.
	TimeoutSecs int64 `cbor:"timeout_secs,omitempty"`
}

// BatchControlCommand applies one control operation to many agents in
// a single request. The runner fans out server-side.
type BatchControlCommand struct {
	AgentIDs []uuid.UUID `cbor:"agent_ids"`
	Command  ControlType `cbor:"command_type"`

	// Payload carries command-specific arguments shared by every
	// target.
	Payload RawMessage `cbor:"payload,omitempty"`

	// FailFast stops dispatch at the first failure and returns the
	// partial results; otherwise every target is attempted.
	FailFast bool `cbor:"fail_fast"`
}

// BatchControlResponse answers a batch command with per-target
// results and aggregate counts.
type BatchControlResponse struct {
	// Success is true only if every target succeeded.
	Success bool `cbor:"success"`

	// Results holds one entry per attempted target, in dispatch
	// order. Under FailFast this may be shorter than the target list.
	Results []BatchAgentResult `cbor:"results"`

	Successful int `cbor:"successful"`
	Failed     int `cbor:"failed"`
}

// BatchAgentResult is one target's outcome within a batch.
type BatchAgentResult struct {
	AgentID uuid.UUID   `cbor:"agent_id"`
	Success bool        `cbor:"success"`
	Status  AgentStatus `cbor:"status,omitempty"`
	Error   string      `cbor:"error,omitempty"`
}

// OutputQueryRequest pages through an agent's captured output.
type OutputQueryRequest struct {
	AgentID uuid.UUID `cbor:"agent_id"`

	// Stream selects stdout, stderr, or both interleaved.
	Stream Stream `cbor:"stream"`

	// Filter is an optional expression; only matching lines are
	// returned (and counted in TotalLines).
	Filter string `cbor:"filter,omitempty"`

	// Limit is the maximum number of lines to return; zero means
	// runner default.
	Limit int `cbor:"limit,omitempty"`

	// Offset skips that many matching lines, for pagination.
	Offset int `cbor:"offset,omitempty"`
}

// OutputQueryResponse answers an output query.
type OutputQueryResponse struct {
	AgentID uuid.UUID `cbor:"agent_id"`
	Success bool      `cbor:"success"`

	// Lines is the requested page of output.
	Lines []string `cbor:"lines"`

	// TotalLines counts all lines matching the query, not just this
	// page, so callers can size pagination.
	TotalLines int `cbor:"total_lines,omitempty"`

	// HasMore is true when lines beyond Offset+len(Lines) match.
	HasMore bool `cbor:"has_more"`

	// Error is the runner's failure description when Success is false.
	Error string `cbor:"error,omitempty"`
}
