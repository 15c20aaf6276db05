// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
)

// heartbeatLoop probes the runner at the configured interval for the
// life of one connection. A probe that times out is treated as a lost
// connection; the manager takes it from there.
func (c *Client) heartbeatLoop(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-c.closedCh:
			return
		case <-c.clock.After(c.cfg.HeartbeatInterval):
		}

		resp, err := c.HealthCheck(context.Background())
		if err != nil {
			if errors.Is(err, ErrClosed) || IsConnectionFailed(err) {
				return
			}
			if IsTimeout(err) {
				c.logger.Warn("heartbeat timed out", "error", err)
				c.manager.notifyError(err)
				return
			}
			c.logger.Warn("heartbeat failed", "error", err)
			continue
		}
		if !resp.Healthy {
			c.logger.Warn("runner reports unhealthy",
				"active_agents", resp.ActiveAgents,
				"uptime_secs", resp.UptimeSecs,
			)
		}
	}
}
