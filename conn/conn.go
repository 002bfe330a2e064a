// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package conn

import (
	"net"
	"sync"

	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/uber/goleech/core"
)

// Conn wraps a raw, already-handshaken net.Conn in buffered send/receive
// channels, decoupling message framing and socket I/O from whatever is
// consuming the messages (the peer session state machine).
type Conn struct {
	PeerID   core.PeerID
	InfoHash core.InfoHash

	nc     net.Conn
	config Config
	logger *zap.SugaredLogger
	stats  tally.Scope

	sender   chan *Message
	receiver chan *Message

	startOnce sync.Once
	closed    *atomic.Bool
	done      chan struct{}
	wg        sync.WaitGroup
}

// New wraps nc, already past handshake with the given remote peer id, in a
// Conn. Call Start to begin pumping messages. stats may be nil, in which
// case metrics are disabled (tally.NoopScope).
func New(nc net.Conn, infoHash core.InfoHash, peerID core.PeerID, config Config, logger *zap.SugaredLogger, stats tally.Scope) *Conn {
	config = config.applyDefaults()
	if stats == nil {
		stats = tally.NoopScope
	}
	return &Conn{
		PeerID:   peerID,
		InfoHash: infoHash,
		nc:       nc,
		config:   config,
		logger:   logger,
		stats:    stats.Tagged(map[string]string{"module": "conn"}),
		sender:   make(chan *Message, config.SenderBufferSize),
		receiver: make(chan *Message, config.ReceiverBufferSize),
		closed:   atomic.NewBool(false),
		done:     make(chan struct{}),
	}
}

// Start launches the read and write pumps. Safe to call multiple times;
// only the first call has an effect.
func (c *Conn) Start() {
	c.startOnce.Do(func() {
		c.wg.Add(2)
		go c.readLoop()
		go c.writeLoop()
	})
}

// Send enqueues m for sending, non-blocking: if the sender buffer is full or
// the Conn is closed, Send reports false and drops the message rather than
// blocking the caller.
func (c *Conn) Send(m *Message) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.sender <- m:
		return true
	default:
		c.log().Warnw("Dropping message on full sender buffer", "id", m.ID)
		return false
	}
}

// Receiver returns the channel of messages read off the wire. It is closed
// when the Conn closes.
func (c *Conn) Receiver() <-chan *Message {
	return c.receiver
}

// Close closes the underlying socket and stops both pumps. Safe to call
// multiple times and from multiple goroutines.
func (c *Conn) Close() {
	if !c.closed.CAS(false, true) {
		return
	}
	close(c.done)
	c.nc.Close()
	go func() {
		c.wg.Wait()
		close(c.receiver)
	}()
}

func (c *Conn) readLoop() {
	defer c.wg.Done()
	for {
		m, err := ReadMessage(c.nc)
		if err != nil {
			if !c.closed.Load() {
				c.log().Infow("Peer connection read failed", "error", err)
			}
			c.Close()
			return
		}
		c.stats.Counter("messages_received").Inc(1)
		select {
		case c.receiver <- m:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case m := <-c.sender:
			if err := WriteMessage(c.nc, m); err != nil {
				c.log().Infow("Peer connection write failed", "error", err)
				c.Close()
				return
			}
			c.stats.Counter("messages_sent").Inc(1)
		case <-c.done:
			return
		}
	}
}

func (c *Conn) log() *zap.SugaredLogger {
	if c.logger == nil {
		return zap.NewNop().Sugar()
	}
	return c.logger.With("remote_peer_id", c.PeerID, "info_hash", c.InfoHash)
}
