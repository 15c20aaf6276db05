// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/drover/wire"
)

// Spawn asks the runner to start an agent and returns its descriptor.
func (c *Client) Spawn(ctx context.Context, spec wire.AgentSpec) (*wire.AgentInfo, error) {
	req := wire.SpawnRequest{Agent: spec}
	env, err := c.roundTrip(ctx, wire.KindSpawnRequest, req, c.cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	var resp wire.SpawnResponse
	if err := env.Decode(&resp); err != nil {
		return nil, fmt.Errorf("client: decode spawn response: %w", err)
	}
	if !resp.Success {
		return nil, &AgentError{Op: "spawn", Message: resp.Error}
	}
	if resp.AgentInfo == nil {
		return nil, fmt.Errorf("client: spawn succeeded but response carries no agent info")
	}
	return resp.AgentInfo, nil
}

// ListAgents returns the runner's agent table. A non-empty filter
// restricts results to agents in that state; limit bounds the count,
// zero meaning all.
func (c *Client) ListAgents(ctx context.Context, filter wire.AgentStatus, limit int) ([]wire.AgentInfo, error) {
	req := wire.ListAgentsRequest{FilterStatus: filter, Limit: limit}
	env, err := c.roundTrip(ctx, wire.KindListAgents, req, c.cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	var resp wire.ListAgentsResponse
	if err := env.Decode(&resp); err != nil {
		return nil, fmt.Errorf("client: decode list response: %w", err)
	}
	if !resp.Success {
		return nil, &AgentError{Op: "list_agents", Message: resp.Error}
	}
	return resp.Agents, nil
}

// GetAgent returns one agent's descriptor, or an *AgentError when the
// runner does not know the ID.
func (c *Client) GetAgent(ctx context.Context, agentID uuid.UUID) (*wire.AgentInfo, error) {
	agents, err := c.ListAgents(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	for i := range agents {
		if agents[i].ID == agentID {
			return &agents[i], nil
		}
	}
	return nil, &AgentError{Op: "get_agent", AgentID: agentID, Message: "agent not found"}
}

// control performs one control command round trip and maps a refusal
// to an *AgentError.
func (c *Client) control(ctx context.Context, agentID uuid.UUID, command wire.ControlType, payload any) (*wire.CommandResponse, error) {
	var raw wire.RawMessage
	if payload != nil {
		var err error
		raw, err = wire.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("client: encode %s payload: %w", command, err)
		}
	}
	cmd := wire.ControlCommand{AgentID: agentID, Command: command, Payload: raw}
	env, err := c.roundTrip(ctx, wire.KindControlCommand, cmd, c.cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	var resp wire.CommandResponse
	if err := env.Decode(&resp); err != nil {
		return nil, fmt.Errorf("client: decode command response: %w", err)
	}
	if !resp.Success {
		return nil, &AgentError{Op: string(command), AgentID: agentID, Message: resp.Error}
	}
	return &resp, nil
}

// Pause suspends a running agent. The agent keeps its state and can
// be resumed.
func (c *Client) Pause(ctx context.Context, agentID uuid.UUID) error {
	_, err := c.control(ctx, agentID, wire.ControlPause, nil)
	return err
}

// Resume continues a paused agent.
func (c *Client) Resume(ctx context.Context, agentID uuid.UUID) error {
	_, err := c.control(ctx, agentID, wire.ControlResume, nil)
	return err
}

// Stop asks the agent to shut down cleanly.
func (c *Client) Stop(ctx context.Context, agentID uuid.UUID) error {
	_, err := c.control(ctx, agentID, wire.ControlStop, nil)
	return err
}

// Kill terminates the agent immediately.
func (c *Client) Kill(ctx context.Context, agentID uuid.UUID) error {
	_, err := c.control(ctx, agentID, wire.ControlKill, nil)
	return err
}

// GetStatus returns the agent's current lifecycle state.
func (c *Client) GetStatus(ctx context.Context, agentID uuid.UUID) (wire.AgentStatus, error) {
	resp, err := c.control(ctx, agentID, wire.ControlGetStatus, nil)
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

// Signal delivers a named POSIX signal, e.g. "SIGINT", to the agent
// process.
func (c *Client) Signal(ctx context.Context, agentID uuid.UUID, signal string) error {
	_, err := c.control(ctx, agentID, wire.ControlSignal, wire.SignalPayload{Signal: signal})
	return err
}

// WriteStdin feeds data to the agent's standard input.
func (c *Client) WriteStdin(ctx context.Context, agentID uuid.UUID, data []byte) error {
	_, err := c.control(ctx, agentID, wire.ControlWriteStdin, wire.StdinPayload{Data: data})
	return err
}

// ReadStdout returns up to maxLines of the agent's buffered stdout.
// maxLines zero or negative means the runner's default.
func (c *Client) ReadStdout(ctx context.Context, agentID uuid.UUID, maxLines int) (string, error) {
	return c.readOutput(ctx, agentID, wire.ControlReadStdout, maxLines)
}

// ReadStderr returns up to maxLines of the agent's buffered stderr.
func (c *Client) ReadStderr(ctx context.Context, agentID uuid.UUID, maxLines int) (string, error) {
	return c.readOutput(ctx, agentID, wire.ControlReadStderr, maxLines)
}

func (c *Client) readOutput(ctx context.Context, agentID uuid.UUID, command wire.ControlType, maxLines int) (string, error) {
	payload := wire.ReadOutputPayload{}
	if maxLines > 0 {
		payload.MaxLines = maxLines
	}
	resp, err := c.control(ctx, agentID, command, payload)
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", nil
	}
	var out wire.OutputData
	if err := wire.Unmarshal(resp.Data, &out); err != nil {
		return "", fmt.Errorf("client: decode %s data: %w", command, err)
	}
	return string(out.Data), nil
}

// CustomAction invokes a runner-defined action on an agent. params may
// be nil; the result is the action's raw reply document. A zero
// timeout means the default request timeout.
func (c *Client) CustomAction(ctx context.Context, agentID uuid.UUID, action string, params any, timeout time.Duration) (wire.RawMessage, error) {
	if timeout <= 0 {
		timeout = c.cfg.RequestTimeout
	}
	var raw wire.RawMessage
	if params != nil {
		var err error
		raw, err = wire.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("client: encode %s params: %w", action, err)
		}
	}
	req := wire.CustomActionRequest{
		AgentID:     agentID,
		Action:      action,
		Params:      raw,
		TimeoutSecs: int64(timeout / time.Second),
	}
	env, err := c.roundTrip(ctx, wire.KindCustomAction, req, timeout)
	if err != nil {
		return nil, err
	}
	var resp wire.CommandResponse
	if err := env.Decode(&resp); err != nil {
		return nil, fmt.Errorf("client: decode %s response: %w", action, err)
	}
	if !resp.Success {
		return nil, &AgentError{Op: action, AgentID: agentID, Message: resp.Error}
	}
	return resp.Data, nil
}

// BatchControl applies one control command to many agents in a single
// request. The runner fans out server-side and reports per-agent
// results; with failFast it stops at the first failure. The round
// trip is given twice the usual timeout since the runner multiplies
// the work.
func (c *Client) BatchControl(ctx context.Context, agentIDs []uuid.UUID, command wire.ControlType, payload any, failFast bool) (*wire.BatchControlResponse, error) {
	if len(agentIDs) == 0 {
		return nil, fmt.Errorf("client: batch control requires at least one agent")
	}
	var raw wire.RawMessage
	if payload != nil {
		var err error
		raw, err = wire.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("client: encode batch %s payload: %w", command, err)
		}
	}
	req := wire.BatchControlCommand{
		AgentIDs: agentIDs,
		Command:  command,
		Payload:  raw,
		FailFast: failFast,
	}
	env, err := c.roundTrip(ctx, wire.KindBatchControl, req, 2*c.cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	var resp wire.BatchControlResponse
	if err := env.Decode(&resp); err != nil {
		return nil, fmt.Errorf("client: decode batch response: %w", err)
	}
	return &resp, nil
}

// QueryOutput pages through an agent's captured output with optional
// filtering. The response reports the total matching line count and
// whether lines remain past this page.
func (c *Client) QueryOutput(ctx context.Context, req wire.OutputQueryRequest) (*wire.OutputQueryResponse, error) {
	env, err := c.roundTrip(ctx, wire.KindOutputQuery, req, c.cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	var resp wire.OutputQueryResponse
	if err := env.Decode(&resp); err != nil {
		return nil, fmt.Errorf("client: decode output query response: %w", err)
	}
	if !resp.Success {
		return nil, &AgentError{Op: "query_output", AgentID: req.AgentID, Message: resp.Error}
	}
	return &resp, nil
}

// HealthCheck probes the runner and returns its health report.
func (c *Client) HealthCheck(ctx context.Context) (*wire.HealthCheckResponse, error) {
	env, err := c.roundTrip(ctx, wire.KindHealthCheck, wire.HealthCheckRequest{}, c.cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	var resp wire.HealthCheckResponse
	if err := env.Decode(&resp); err != nil {
		return nil, fmt.Errorf("client: decode health response: %w", err)
	}
	return &resp, nil
}

// StreamLogs asks the runner to push the agent's live output and
// returns the stream carrying it. Requires the async pattern; the
// lockstep socket has no channel for server-initiated frames. Closing
// the stream stops local delivery only.
func (c *Client) StreamLogs(ctx context.Context, agentID uuid.UUID, stream wire.Stream) (*LogStream, error) {
	if c.syncMode {
		return nil, fmt.Errorf("client: log streaming requires the async pattern")
	}
	ls, err := c.streams.add(agentID, stream)
	if err != nil {
		return nil, err
	}
	if _, err := c.control(ctx, agentID, wire.ControlStreamLogs, wire.StreamLogsPayload{Stream: stream}); err != nil {
		ls.Close()
		return nil, err
	}
	return ls, nil
}
