// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitorui

import (
	"context"

	"github.com/google/uuid"

	"github.com/bureau-foundation/drover/client"
	"github.com/bureau-foundation/drover/wire"
)

// Source abstracts the agent data the monitor displays. The live
// implementation is [ClientSource]; tests use an in-memory fake. The
// model code is identical regardless of backend.
type Source interface {
	// Agents returns a snapshot of every agent the runner knows
	// about, in the runner's listing order.
	Agents(ctx context.Context) ([]wire.AgentInfo, error)

	// ConnectionState reports the current transport connection state
	// for the header badge.
	ConnectionState() client.State

	// Stats reports cumulative transport counters for the header.
	Stats() client.Stats

	// Subscribe returns the channel carrying live status updates.
	// Returns nil if live updates are not supported (synchronous
	// socket pattern); the monitor then relies on manual refresh.
	Subscribe() <-chan wire.StatusUpdate
}

// Controller is an optional interface that Source implementations can
// provide to let the monitor issue control commands against the
// selected agent. The model checks for this via type assertion; when
// present, the pause/resume/stop keys are enabled. When absent the
// monitor is read-only.
//
// ClientSource implements this interface.
type Controller interface {
	Pause(ctx context.Context, agentID uuid.UUID) error
	Resume(ctx context.Context, agentID uuid.UUID) error
	Stop(ctx context.Context, agentID uuid.UUID) error
}

// ClientSource adapts a [client.Client] to the [Source] interface. It
// holds a wildcard status subscription and republishes updates on its
// own channel for the model's event pump.
type ClientSource struct {
	client       *client.Client
	subscription *client.Subscription
	events       chan wire.StatusUpdate
}

// NewClientSource creates a ClientSource over an established client.
// Fails if the client cannot accept subscriptions (synchronous socket
// pattern, or already closed).
func NewClientSource(c *client.Client) (*ClientSource, error) {
	source := &ClientSource{
		client: c,
		events: make(chan wire.StatusUpdate, 64),
	}
	subscription, err := c.SubscribeStatus(uuid.Nil, func(update wire.StatusUpdate) error {
		select {
		case source.events <- update:
		default:
			// Buffer full — drop. The next table refresh picks up
			// current agent state.
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	source.subscription = subscription
	return source, nil
}

// Agents lists all agents with no status filter.
func (source *ClientSource) Agents(ctx context.Context) ([]wire.AgentInfo, error) {
	return source.client.ListAgents(ctx, "", 0)
}

// ConnectionState reports the client's connection state.
func (source *ClientSource) ConnectionState() client.State {
	return source.client.State()
}

// Stats reports the client's transport counters.
func (source *ClientSource) Stats() client.Stats {
	return source.client.Stats()
}

// Subscribe returns the republished status update channel.
func (source *ClientSource) Subscribe() <-chan wire.StatusUpdate {
	return source.events
}

// Pause implements [Controller].
func (source *ClientSource) Pause(ctx context.Context, agentID uuid.UUID) error {
	return source.client.Pause(ctx, agentID)
}

// Resume implements [Controller].
func (source *ClientSource) Resume(ctx context.Context, agentID uuid.UUID) error {
	return source.client.Resume(ctx, agentID)
}

// Stop implements [Controller].
func (source *ClientSource) Stop(ctx context.Context, agentID uuid.UUID) error {
	return source.client.Stop(ctx, agentID)
}

// Close detaches the status subscription. The underlying client is
// not touched; the caller owns its lifecycle.
func (source *ClientSource) Close() {
	source.subscription.Close()
}
