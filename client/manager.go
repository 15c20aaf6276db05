// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"

	"github.com/bureau-foundation/drover/transport"
)

// managerHooks are the client internals the manager drives on state
// changes. onConnected starts the receive machinery and replays the
// offline queue, onDown stops it and closes the queue gate, onFailed
// resolves everything still outstanding.
type managerHooks struct {
	onConnected func()
	onDown      func()
	onFailed    func(error)
}

// manager owns the connection lifecycle: it dials, watches for drops
// reported by the read and send paths, reconnects with exponential
// backoff, and declares the connection failed when attempts run out.
type manager struct {
	socket transport.Socket
	clock  clock.Clock
	logger *slog.Logger
	stats  *tracker
	hooks  managerHooks

	autoReconnect bool
	attempts      int
	initialDelay  time.Duration
	maxDelay      time.Duration
	onStateChange func(State)

	// runCtx ends when the client closes; it aborts backoff sleeps
	// and in-flight dials.
	runCtx    context.Context
	runCancel context.CancelFunc

	mu          sync.Mutex
	state       State
	closed      bool
	failedErr   error
	retryCancel context.CancelFunc
}

func newManager(cfg Config, socket transport.Socket, stats *tracker, hooks managerHooks, logger *slog.Logger) *manager {
	runCtx, runCancel := context.WithCancel(context.Background())
	return &manager{
		socket:        socket,
		clock:         cfg.Clock,
		logger:        logger,
		stats:         stats,
		hooks:         hooks,
		autoReconnect: cfg.AutoReconnect,
		attempts:      cfg.MaxReconnectAttempts,
		initialDelay:  cfg.ReconnectInitialDelay,
		maxDelay:      cfg.ReconnectMaxDelay,
		onStateChange: cfg.OnStateChange,
		runCtx:        runCtx,
		runCancel:     runCancel,
		state:         Disconnected,
	}
}

func (m *manager) currentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// failure returns the error that moved the manager to Failed.
func (m *manager) failure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failedErr != nil {
		return m.failedErr
	}
	return &ConnectionFailedError{}
}

// transition moves to next if the lifecycle allows it.
func (m *manager) transition(next State) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	prev := m.state
	if prev == next {
		m.mu.Unlock()
		return true
	}
	if !prev.canTransition(next) {
		m.mu.Unlock()
		m.logger.Error("rejecting illegal state transition", "from", prev, "to", next)
		return false
	}
	m.state = next
	m.mu.Unlock()

	m.logger.Info("connection state changed", "from", prev, "to", next)
	if m.onStateChange != nil {
		m.onStateChange(next)
	}
	return true
}

// tryTransition is transition restricted to a known starting state,
// checked atomically with the move.
func (m *manager) tryTransition(from, to State) bool {
	m.mu.Lock()
	if m.closed || m.state != from {
		m.mu.Unlock()
		return false
	}
	m.state = to
	m.mu.Unlock()

	m.logger.Info("connection state changed", "from", from, "to", to)
	if m.onStateChange != nil {
		m.onStateChange(to)
	}
	return true
}

// connect establishes the connection, blocking through the retry
// schedule when the first attempt fails and AutoReconnect is on. It
// returns once Connected, or with a *ConnectionFailedError after the
// last attempt, or early if ctx is cancelled or the client closes.
func (m *manager) connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	switch m.state {
	case Disconnected:
	case Failed:
		err := m.failedErr
		m.mu.Unlock()
		return err
	default:
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("client: connect called while %s", state)
	}
	m.state = Connecting
	dialCtx, cancel := context.WithCancel(ctx)
	m.retryCancel = cancel
	m.mu.Unlock()
	defer cancel()

	// Close must abort a connect in progress as well.
	stopWatch := context.AfterFunc(m.runCtx, cancel)
	defer stopWatch()

	m.logger.Info("connection state changed", "from", Disconnected, "to", Connecting)
	if m.onStateChange != nil {
		m.onStateChange(Connecting)
	}

	err := m.dialLoop(dialCtx)

	m.mu.Lock()
	m.retryCancel = nil
	m.mu.Unlock()

	switch {
	case err == nil:
		if !m.transition(Connected) {
			// Disconnect or Close raced the successful dial.
			_ = m.socket.Disconnect()
			if m.isClosed() {
				return ErrClosed
			}
			return fmt.Errorf("client: connect aborted")
		}
		m.stats.recordConnected(m.clock.Now())
		m.hooks.onConnected()
		return nil
	case m.isClosed():
		m.transition(Disconnected)
		return ErrClosed
	case dialCtx.Err() != nil:
		m.transition(Disconnected)
		if ctxErr := context.Cause(ctx); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("client: connect aborted")
	default:
		m.enterFailed(err)
		return err
	}
}

// disconnect tears the connection down without replaying or failing
// queued commands; they stay buffered for the next connect. Aborts a
// reconnect cycle in progress. No-op when already down.
func (m *manager) disconnect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	prev := m.state
	if prev == Disconnected || prev == Failed {
		m.mu.Unlock()
		return nil
	}
	m.state = Disconnected
	cancel := m.retryCancel
	m.retryCancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if prev == Connected {
		m.hooks.onDown()
		m.stats.recordDisconnected()
	}
	_ = m.socket.Disconnect()

	m.logger.Info("connection state changed", "from", prev, "to", Disconnected)
	if m.onStateChange != nil {
		m.onStateChange(Disconnected)
	}
	return nil
}

// notifyError reports a transport failure observed on the send or
// receive path. The first report after a connection is established
// tears the epoch down and starts recovery; later reports for the same
// outage are no-ops.
func (m *manager) notifyError(err error) {
	m.stats.recordError()
	if !m.tryTransition(Connected, Reconnecting) {
		return
	}
	m.stats.recordDisconnected()
	m.logger.Warn("connection lost", "error", err)
	m.hooks.onDown()
	_ = m.socket.Disconnect()

	if !m.autoReconnect {
		m.enterFailed(&ConnectionFailedError{Err: err})
		return
	}
	go m.reconnectLoop()
}

func (m *manager) reconnectLoop() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(m.runCtx)
	m.retryCancel = cancel
	m.mu.Unlock()
	defer cancel()

	err := m.dialLoop(ctx)

	m.mu.Lock()
	m.retryCancel = nil
	m.mu.Unlock()

	switch {
	case err == nil:
		if !m.transition(Connected) {
			_ = m.socket.Disconnect()
			return
		}
		m.stats.recordConnected(m.clock.Now())
		m.stats.recordReconnection()
		m.logger.Info("connection reestablished")
		m.hooks.onConnected()
	case ctx.Err() != nil || errors.Is(err, ErrClosed):
		// Disconnect or Close stopped the cycle; the stopper set the
		// state.
	default:
		m.enterFailed(err)
	}
}

// dialLoop runs the retry schedule: an immediate attempt, then
// exponentially backed-off retries until success, attempt exhaustion,
// or ctx cancellation.
func (m *manager) dialLoop(ctx context.Context) error {
	attempts := m.attempts
	if !m.autoReconnect {
		attempts = 1
	} else if attempts == UnlimitedAttempts {
		attempts = retry.UnlimitedAttempts
	}
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			return m.dialOnce(ctx)
		},
		IsFatalError: func(err error) bool {
			return errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled)
		},
		NotifyFunc: func(err error, attempt int) {
			m.stats.recordError()
			m.logger.Warn("connection attempt failed", "attempt", attempt, "error", err)
			m.transition(Reconnecting)
		},
		Attempts:    attempts,
		Delay:       m.initialDelay,
		MaxDelay:    m.maxDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       m.clock,
		Stop:        ctx.Done(),
	})
	if err == nil {
		return nil
	}
	if retry.IsAttemptsExceeded(err) {
		return &ConnectionFailedError{Attempts: attempts, Err: retry.LastError(err)}
	}
	return err
}

// dialOnce makes a single connection attempt, dropping any half-open
// state left by a previous one.
func (m *manager) dialOnce(ctx context.Context) error {
	if m.isClosed() {
		return ErrClosed
	}
	_ = m.socket.Disconnect()
	return m.socket.Connect(ctx)
}

// enterFailed moves to the terminal state and fails everything still
// queued or pending.
func (m *manager) enterFailed(err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.failedErr = err
	m.mu.Unlock()

	if !m.transition(Failed) {
		return
	}
	m.stats.recordDisconnected()
	m.logger.Error("connection permanently failed", "error", err)
	m.hooks.onFailed(err)
}

func (m *manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// close shuts the manager down: stops any reconnect cycle, closes the
// socket, and pins the state to Disconnected. Idempotent.
func (m *manager) close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	prev := m.state
	m.state = Disconnected
	cancel := m.retryCancel
	m.retryCancel = nil
	m.mu.Unlock()

	m.runCancel()
	if cancel != nil {
		cancel()
	}
	if prev == Connected {
		m.hooks.onDown()
		m.stats.recordDisconnected()
	}
	_ = m.socket.Disconnect()

	if prev != Disconnected {
		m.logger.Info("connection state changed", "from", prev, "to", Disconnected)
		if m.onStateChange != nil {
			m.onStateChange(Disconnected)
		}
	}
}
