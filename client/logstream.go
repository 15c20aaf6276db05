// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bureau-foundation/drover/wire"
)

// logStreamBuffer bounds undelivered records per stream. A consumer
// that falls further behind loses records; the per-agent sequence
// numbers expose the gap.
const logStreamBuffer = 256

// LogStream carries live agent output pushed by the runner. Records
// arrive on Records until Close, client shutdown, or the runner stops
// sending; the channel is closed on the first two.
type LogStream struct {
	id       uint64
	agentID  uuid.UUID
	stream   wire.Stream
	ch       chan wire.LogStreamRecord
	dropped  atomic.Int64
	registry *logStreamRegistry
	once     sync.Once
}

// Records is the record channel. It closes when the stream closes, so
// ranging over it terminates.
func (s *LogStream) Records() <-chan wire.LogStreamRecord {
	return s.ch
}

// AgentID reports which agent this stream follows.
func (s *LogStream) AgentID() uuid.UUID {
	return s.agentID
}

// Dropped reports how many records were discarded because the
// consumer fell behind.
func (s *LogStream) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops local delivery and closes Records. The runner keeps
// pushing until told otherwise; those frames are dropped on arrival.
func (s *LogStream) Close() {
	s.once.Do(func() {
		s.registry.remove(s.id)
	})
}

// logStreamRegistry routes pushed log records to the streams that
// asked for them.
type logStreamRegistry struct {
	logger *slog.Logger

	mu      sync.Mutex
	nextID  uint64
	streams map[uint64]*LogStream
	closed  bool
}

func newLogStreamRegistry(logger *slog.Logger) *logStreamRegistry {
	return &logStreamRegistry{
		logger:  logger,
		streams: make(map[uint64]*LogStream),
	}
}

func (r *logStreamRegistry) add(agentID uuid.UUID, stream wire.Stream) (*LogStream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	s := &LogStream{
		id:       r.nextID,
		agentID:  agentID,
		stream:   stream,
		ch:       make(chan wire.LogStreamRecord, logStreamBuffer),
		registry: r,
	}
	r.nextID++
	r.streams[s.id] = s
	return s, nil
}

// deliver routes one record to every stream following its agent and
// stream selector. Sends never block the read loop.
func (r *logStreamRegistry) deliver(record wire.LogStreamRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.streams {
		if s.agentID != record.AgentID {
			continue
		}
		if s.stream != wire.StreamBoth && s.stream != record.Stream {
			continue
		}
		select {
		case s.ch <- record:
		default:
			s.dropped.Add(1)
			r.logger.Warn("log stream backlogged, dropping record",
				"agent_id", record.AgentID,
				"stream", record.Stream,
				"sequence", record.Sequence,
			)
		}
	}
}

func (r *logStreamRegistry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[id]
	if !ok {
		return
	}
	delete(r.streams, id)
	close(s.ch)
}

func (r *logStreamRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for id, s := range r.streams {
		delete(r.streams, id)
		close(s.ch)
	}
}

func (r *logStreamRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}
