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

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/bureau-foundation/drover/transport"
	"github.com/bureau-foundation/drover/wire"
)

// Client is a resilient agent-control connection. It correlates
// responses to concurrent requests, queues commands issued while the
// connection is down, reconnects with exponential backoff, and fans
// server-pushed status updates out to subscribers.
//
// All methods are safe for concurrent use.
type Client struct {
	cfg      Config
	logger   *slog.Logger
	clock    clock.Clock
	codec    *wire.Codec
	socket   transport.Socket
	syncMode bool

	correlator *correlator
	queue      *commandQueue
	manager    *manager
	stats      *tracker
	subs       *subscriptionRegistry
	streams    *logStreamRegistry

	// syncMu serializes send/receive exchanges in sync mode.
	syncMu sync.Mutex

	mu        sync.Mutex
	epochStop chan struct{}

	closeOnce sync.Once
	closedCh  chan struct{}
	wg        sync.WaitGroup
}

// New builds a Client for cfg. The connection is not established
// until Connect.
func New(cfg Config) (*Client, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	socket, err := transport.New(cfg.Pattern, cfg.Endpoint, transport.Options{
		MaxFrameSize:   cfg.MaxMessageSize,
		ConnectTimeout: cfg.ConnectTimeout,
		SendTimeout:    cfg.RequestTimeout,
		Logger:         cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	return newWithSocket(cfg, socket), nil
}

// newWithSocket wires a client around an existing socket. cfg must
// already have defaults applied. Tests use it to substitute fakes.
func newWithSocket(cfg Config, socket transport.Socket) *Client {
	logger := cfg.Logger.With("endpoint", cfg.Endpoint)
	if cfg.ServerID != "" {
		logger = logger.With("server_id", cfg.ServerID)
	}
	c := &Client{
		cfg:        cfg,
		logger:     logger,
		clock:      cfg.Clock,
		codec:      wire.NewCodec(cfg.MaxMessageSize),
		socket:     socket,
		syncMode:   cfg.Pattern == transport.Sync,
		correlator: newCorrelator(logger),
		queue:      newCommandQueue(cfg.MaxQueueSize),
		stats:      &tracker{},
		subs:       newSubscriptionRegistry(logger),
		streams:    newLogStreamRegistry(logger),
		closedCh:   make(chan struct{}),
	}
	c.manager = newManager(cfg, socket, c.stats, managerHooks{
		onConnected: c.startEpoch,
		onDown:      c.stopEpoch,
		onFailed:    c.failOutstanding,
	}, logger)
	return c
}

// Connect establishes the connection. With AutoReconnect it blocks
// through the backoff schedule until connected, the attempt budget is
// spent, or ctx is cancelled. Commands queued before Connect are
// replayed once connected.
func (c *Client) Connect(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	return c.manager.connect(ctx)
}

// Disconnect closes the connection without failing queued commands;
// they stay buffered and replay on the next Connect. Pending requests
// already on the wire expire on their own timeouts.
func (c *Client) Disconnect() error {
	if c.isClosed() {
		return ErrClosed
	}
	return c.manager.disconnect()
}

// Close releases the client. Queued and pending requests resolve with
// ErrClosed, subscriptions and log streams are closed, background
// goroutines are waited out. Idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closedCh)
		c.manager.close()
		c.failOutstanding(ErrClosed)
		c.subs.closeAll()
		c.streams.closeAll()
		c.wg.Wait()
		c.logger.Debug("client closed", "stats", c.stats.snapshot())
	})
	return nil
}

// State reports the connection state.
func (c *Client) State() State {
	return c.manager.currentState()
}

// Stats reports traffic counters accumulated since the client was
// created.
func (c *Client) Stats() Stats {
	return c.stats.snapshot()
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closedCh:
		return true
	default:
		return false
	}
}

// startEpoch runs once per established connection: it starts the read
// and heartbeat loops bound to this connection's lifetime, then
// replays the offline queue before the gate opens for direct sends.
func (c *Client) startEpoch() {
	stop := make(chan struct{})
	c.mu.Lock()
	c.epochStop = stop
	c.mu.Unlock()

	if !c.syncMode {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.readLoop(stop)
		}()
	}
	if c.cfg.EnableHeartbeat {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.heartbeatLoop(stop)
		}()
	}
	c.drainQueue()
}

// stopEpoch ends the current connection's loops and closes the queue
// gate so new commands buffer.
func (c *Client) stopEpoch() {
	c.mu.Lock()
	if c.epochStop != nil {
		close(c.epochStop)
		c.epochStop = nil
	}
	c.mu.Unlock()
	c.queue.startBuffering()
}

// failOutstanding resolves every queued and pending request with err.
func (c *Client) failOutstanding(err error) {
	queued := c.queue.failAll(err)
	pending := c.correlator.failAll(err)
	if queued+pending > 0 {
		c.logger.Warn("failing outstanding requests",
			"queued", queued,
			"pending", pending,
			"error", err,
		)
	}
}

// roundTrip is the request path shared by every operation: envelope,
// encode, then either a direct send or the offline queue, then a
// bounded wait for the correlated response.
func (c *Client) roundTrip(ctx context.Context, kind wire.Kind, payload any, timeout time.Duration) (*wire.Envelope, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	respKind, ok := kind.ResponseKind()
	if !ok {
		return nil, fmt.Errorf("client: kind %q is not a request", kind)
	}
	requestID := uuid.NewString()
	env, err := wire.NewEnvelope(kind, requestID, payload, c.clock.Now())
	if err != nil {
		return nil, err
	}
	frame, err := c.codec.Encode(env)
	if err != nil {
		return nil, err
	}
	w := newWaiter(requestID, respKind)
	w.frame = frame

	if c.manager.currentState() == Failed {
		return nil, c.manager.failure()
	}

	queued, err := c.queue.intercept(w, c.clock.Now())
	if err != nil {
		return nil, err
	}
	if !queued {
		if c.syncMode {
			if err := c.syncExchange(w, timeout); err != nil {
				qErr := c.queue.enqueue(w, c.clock.Now())
				c.manager.notifyError(err)
				if qErr != nil {
					return nil, qErr
				}
			}
		} else if err := c.sendRegistered(w); err != nil {
			return nil, err
		}
	}
	return c.await(ctx, w, timeout)
}

// sendRegistered registers w for correlation and writes its frame. A
// transport failure is absorbed: reconnection is triggered and the
// command joins the backlog for replay.
func (c *Client) sendRegistered(w *waiter) error {
	if err := c.correlator.register(w, c.clock.Now()); err != nil {
		return err
	}
	if err := c.socket.Send(w.frame); err != nil {
		c.correlator.expire(w.requestID)
		// Queue before reporting: once reconnection starts, a fast
		// recovery may replay the backlog at any moment, and this
		// command belongs in it.
		qErr := c.queue.enqueue(w, c.clock.Now())
		c.manager.notifyError(err)
		if qErr != nil {
			return qErr
		}
		c.logger.Debug("send failed, command queued for replay",
			"request_id", w.requestID,
			"error", err,
		)
		return nil
	}
	c.stats.recordSend(len(w.frame))
	return nil
}

// await blocks until w resolves, its timeout lapses, or ctx ends. For
// a command still in the offline queue the timeout runs from issue
// time; a cancelled entry is skipped at replay.
func (c *Client) await(ctx context.Context, w *waiter, timeout time.Duration) (*wire.Envelope, error) {
	select {
	case r := <-w.done:
		return r.envelope, r.err
	case <-c.clock.After(timeout):
		w.cancelled.Store(true)
		if c.correlator.expire(w.requestID) {
			return nil, &TimeoutError{RequestID: w.requestID, Timeout: timeout}
		}
		// The slot is gone: either a response raced the timer and is
		// already resolved, or the command never left the queue.
		select {
		case r := <-w.done:
			return r.envelope, r.err
		default:
			return nil, &TimeoutError{RequestID: w.requestID, Timeout: timeout}
		}
	case <-ctx.Done():
		w.cancelled.Store(true)
		c.correlator.expire(w.requestID)
		return nil, ctx.Err()
	case <-c.closedCh:
		return nil, ErrClosed
	}
}

// syncExchange performs one lockstep send/receive pair and resolves w
// with the outcome. Only one exchange runs at a time. When the frame
// never left the socket the send error is returned unresolved so the
// caller can queue w for replay before reconnection starts, keeping
// the replay order intact.
func (c *Client) syncExchange(w *waiter, timeout time.Duration) error {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	if err := c.socket.Send(w.frame); err != nil {
		return err
	}
	c.stats.recordSend(len(w.frame))

	data, err := c.socket.Receive(timeout)
	if err != nil {
		if errors.Is(err, transport.ErrReceiveTimeout) {
			w.resolve(result{err: &TimeoutError{RequestID: w.requestID, Timeout: timeout}})
			return nil
		}
		c.manager.notifyError(err)
		w.resolve(result{err: fmt.Errorf("client: receive: %w", err)})
		return nil
	}
	c.stats.recordReceive(len(data))

	env, err := c.codec.Decode(data)
	if err != nil {
		c.stats.recordError()
		w.resolve(result{err: fmt.Errorf("client: decode response: %w", err)})
		return nil
	}
	if env.RequestID != w.requestID || env.Kind != w.expectKind {
		c.stats.recordError()
		c.logger.Warn("dropping mismatched reply",
			"kind", env.Kind,
			"request_id", env.RequestID,
			"want", w.requestID,
		)
		w.resolve(result{err: &TimeoutError{RequestID: w.requestID, Timeout: timeout}})
		return nil
	}
	w.resolve(result{envelope: env})
	return nil
}

// drainQueue replays the offline backlog in FIFO order. The replay
// runs before the gate opens, so commands issued during it queue
// behind the backlog instead of overtaking it. A drop mid-replay puts
// the unsent command back at the head and leaves the rest for the
// next recovery.
func (c *Client) drainQueue() {
	replayed := 0
	for {
		w, ok := c.queue.next()
		if !ok {
			break
		}
		if w.cancelled.Load() {
			continue
		}
		if c.syncMode {
			if err := c.syncExchange(w, c.cfg.RequestTimeout); err != nil {
				c.queue.requeueFront(w)
				c.manager.notifyError(err)
				return
			}
			if c.manager.currentState() != Connected {
				return
			}
			replayed++
			continue
		}
		if err := c.correlator.register(w, c.clock.Now()); err != nil {
			w.resolve(result{err: err})
			continue
		}
		if w.cancelled.Load() {
			c.correlator.expire(w.requestID)
			continue
		}
		if err := c.socket.Send(w.frame); err != nil {
			c.correlator.expire(w.requestID)
			c.queue.requeueFront(w)
			c.manager.notifyError(err)
			return
		}
		c.stats.recordSend(len(w.frame))
		replayed++
	}
	if replayed > 0 {
		c.logger.Info("replayed queued commands", "count", replayed)
	}
}

// readLoop receives frames for the life of one connection, routing
// responses to their waiters and events to subscribers. It exits when
// the connection drops or the epoch stops.
func (c *Client) readLoop(stop <-chan struct{}) {
	for {
		data, err := c.socket.Receive(0)
		if err != nil {
			select {
			case <-stop:
				return
			default:
			}
			var sizeErr *transport.FrameSizeError
			if errors.As(err, &sizeErr) {
				// The stream is misaligned past an oversized frame;
				// only a fresh connection recovers it.
				c.logger.Error("peer sent oversized frame, dropping connection",
					"size", sizeErr.Length,
					"limit", sizeErr.Limit,
				)
			}
			c.manager.notifyError(err)
			return
		}
		c.stats.recordReceive(len(data))

		env, err := c.codec.Decode(data)
		if err != nil {
			c.stats.recordError()
			c.logger.Error("dropping undecodable frame", "bytes", len(data), "error", err)
			continue
		}
		c.dispatch(env)
	}
}

// dispatch routes one inbound envelope: events to the fan-out
// registries, responses to the correlator. Anything that fits neither
// is logged and dropped.
func (c *Client) dispatch(env *wire.Envelope) {
	switch env.Kind {
	case wire.KindStatusUpdate:
		var update wire.StatusUpdate
		if err := env.Decode(&update); err != nil {
			c.stats.recordError()
			c.logger.Error("dropping malformed status update", "error", err)
			return
		}
		c.subs.deliver(update)
	case wire.KindLogStream:
		var record wire.LogStreamRecord
		if err := env.Decode(&record); err != nil {
			c.stats.recordError()
			c.logger.Error("dropping malformed log record", "error", err)
			return
		}
		c.streams.deliver(record)
	default:
		if env.RequestID == "" {
			c.stats.recordError()
			c.logger.Warn("dropping frame without request ID", "kind", env.Kind)
			return
		}
		if !c.correlator.route(env) {
			c.stats.recordError()
		}
	}
}
