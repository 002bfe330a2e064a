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
package session

import (
	"sync"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/uber/goleech/bitfield"
	"github.com/uber/goleech/conn"
	"github.com/uber/goleech/core"
)

// requestKey identifies an in-flight block request by its wire tuple.
type requestKey struct {
	index  uint32
	begin  uint32
	length uint32
}

type requestResult struct {
	block []byte
	err   error
}

// Session is a single remote peer's session: it consumes an already
// handshaken conn.Conn, runs the post-handshake message dispatch state
// machine, and correlates outgoing REQUESTs with incoming PIECEs.
//
// The conn (which carries the info-hash), remote peer-id, and piece count are
// handed in at construction as an immutable context rather than mutated in
// later, so a
// Session never needs a back-reference into the torrent session that
// created it.
type Session struct {
	c            *conn.Conn
	RemotePeerID core.PeerID
	pieceCount   int
	config       Config
	clk          clock.Clock
	logger       *zap.SugaredLogger

	counters *Stats
	metrics   tally.Scope

	mu                   sync.RWMutex
	state                State
	peerChoking          bool
	peerInterested       bool
	amChoking            bool
	amInterested         bool
	peerPieces           *bitfield.Bitfield
	firstMessageHandled  bool

	inflightMu sync.Mutex
	inflight   map[requestKey]chan requestResult

	wg       sync.WaitGroup
	done     chan struct{}
	closeErr error
	closeOnce sync.Once
}

// New wraps c (already past handshake) in a Session. pieceCount sizes the
// remote peer's bitfield. stats may be nil, in which case metrics are
// disabled (tally.NoopScope).
func New(c *conn.Conn, remotePeerID core.PeerID, pieceCount int, config Config, clk clock.Clock, logger *zap.SugaredLogger, stats tally.Scope) *Session {
	if clk == nil {
		clk = clock.New()
	}
	if stats == nil {
		stats = tally.NoopScope
	}
	return &Session{
		c:            c,
		RemotePeerID: remotePeerID,
		pieceCount:   pieceCount,
		config:       config.applyDefaults(),
		clk:          clk,
		logger:       logger,
		counters:     &Stats{},
		metrics:      stats.Tagged(map[string]string{"module": "session"}),
		state:        Handshaking,
		peerChoking:  true,
		amChoking:    true,
		peerPieces:   bitfield.New(pieceCount),
		inflight:     make(map[requestKey]chan requestResult),
		done:         make(chan struct{}),
	}
}

// Start sends the initial BITFIELD carrying saved and begins the dispatch
// loop. The session moves to Ready immediately: handshake has already
// succeeded by the time a Session exists.
func (s *Session) Start(saved *bitfield.Bitfield) {
	s.c.Start()
	s.c.Send(conn.NewBitfield(saved.Bytes()))
	s.setState(Ready)
	s.wg.Add(1)
	go s.run()
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// PeerChoking reports whether the remote peer is currently choking us.
func (s *Session) PeerChoking() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peerChoking
}

// PeerInterested reports whether the remote peer is interested in us.
func (s *Session) PeerInterested() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peerInterested
}

// PeerPieces returns the bitfield tracking which pieces the remote peer has
// advertised via BITFIELD/HAVE.
func (s *Session) PeerPieces() *bitfield.Bitfield {
	return s.peerPieces
}

// Stats returns a snapshot of this session's counters.
func (s *Session) Stats() Snapshot {
	return s.counters.Snapshot()
}

// RecordPieceCompleted marks that a full piece assembled from this peer's
// blocks passed verification. The leech scheduler calls this once per piece
// it writes to disk, after hashing, since a Session only ever sees
// individual blocks.
func (s *Session) RecordPieceCompleted() {
	s.counters.incPieceCompleted()
}

// SendInterested sends INTERESTED to the remote peer.
func (s *Session) SendInterested() {
	s.c.Send(conn.NewInterested())
}

// SendNotInterested sends NOT_INTERESTED to the remote peer.
func (s *Session) SendNotInterested() {
	s.c.Send(conn.NewNotInterested())
}

// SendHave sends HAVE(index) to the remote peer, advertising a newly
// completed piece.
func (s *Session) SendHave(index int) {
	s.c.Send(conn.NewHave(uint32(index)))
}

// Request sends a REQUEST for the given block and blocks until the matching
// PIECE arrives, the request times out, or the session dies. Duplicate
// concurrent requests for the same tuple fail immediately with
// ErrDuplicateRequest.
func (s *Session) Request(index, begin, length uint32) ([]byte, error) {
	if s.State() != Ready {
		return nil, ErrNotReady
	}
	if s.PeerChoking() {
		return nil, ErrChoked
	}

	key := requestKey{index, begin, length}
	result := make(chan requestResult, 1)

	s.inflightMu.Lock()
	if _, ok := s.inflight[key]; ok {
		s.inflightMu.Unlock()
		return nil, ErrDuplicateRequest
	}
	s.inflight[key] = result
	s.inflightMu.Unlock()

	if !s.c.Send(conn.NewRequest(index, begin, length)) {
		s.removeInflight(key)
		return nil, ErrPeerGone
	}
	s.counters.incRequested()
	s.metrics.Counter("blocks_requested").Inc(1)

	select {
	case r := <-result:
		return r.block, r.err
	case <-s.clk.After(s.config.RequestTimeout):
		s.removeInflight(key)
		s.counters.incTimeout()
		s.metrics.Counter("request_timeouts").Inc(1)
		return nil, ErrRequestTimeout
	case <-s.done:
		return nil, ErrPeerGone
	}
}

func (s *Session) removeInflight(key requestKey) {
	s.inflightMu.Lock()
	delete(s.inflight, key)
	s.inflightMu.Unlock()
}

// Close closes the underlying connection and fails every in-flight request
// with ErrPeerGone. Safe to call multiple times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.setState(Closed)
		close(s.done)
		s.c.Close()
		s.failAllInflight(ErrPeerGone)
	})
}

func (s *Session) failAllInflight(err error) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	for key, ch := range s.inflight {
		ch <- requestResult{err: err}
		delete(s.inflight, key)
	}
}

func (s *Session) run() {
	defer s.wg.Done()
	for m := range s.c.Receiver() {
		if err := s.handle(m); err != nil {
			s.log().Infow("Closing peer session on protocol violation", "error", err)
			s.Close()
			return
		}
	}
	// Receiver channel closed: the underlying conn died (I/O error or an
	// explicit Close elsewhere).
	s.Close()
}

func (s *Session) handle(m *conn.Message) error {
	if m.IsKeepAlive() {
		return nil
	}

	isBitfield := m.ID == conn.Bitfield

	s.mu.Lock()
	firstMessage := !s.firstMessageHandled
	s.firstMessageHandled = true
	s.mu.Unlock()

	if isBitfield && !firstMessage {
		return newProtocolError("bitfield received after the first post-handshake message")
	}

	switch m.ID {
	case conn.Choke:
		s.mu.Lock()
		s.peerChoking = true
		s.mu.Unlock()
	case conn.Unchoke:
		s.mu.Lock()
		s.peerChoking = false
		s.mu.Unlock()
	case conn.Interested:
		s.mu.Lock()
		s.peerInterested = true
		s.mu.Unlock()
	case conn.NotInterested:
		s.mu.Lock()
		s.peerInterested = false
		s.mu.Unlock()
	case conn.Have:
		idx, err := m.HaveIndex()
		if err != nil {
			return newProtocolError("%s", err)
		}
		s.peerPieces.Set(int(idx), true)
	case conn.Bitfield:
		if err := s.peerPieces.LoadFromBytes(m.Payload); err != nil {
			return newProtocolError("%s", err)
		}
	case conn.Request, conn.Cancel:
		// Serving uploads is out of scope; validate the shape and discard.
		if _, _, _, err := m.RequestFields(); err != nil {
			return newProtocolError("%s", err)
		}
	case conn.Piece:
		index, begin, block, err := m.PieceFields()
		if err != nil {
			return newProtocolError("%s", err)
		}
		s.deliverPiece(index, begin, block)
	default:
		return newProtocolError("unknown message id %d", m.ID)
	}
	return nil
}

func (s *Session) deliverPiece(index, begin uint32, block []byte) {
	key := requestKey{index, begin, uint32(len(block))}

	s.inflightMu.Lock()
	ch, ok := s.inflight[key]
	if ok {
		delete(s.inflight, key)
	}
	s.inflightMu.Unlock()

	if !ok {
		// No matching in-flight request: a cancellation race. Drop silently.
		s.counters.incDuplicate()
		return
	}
	s.counters.incReceived(len(block))
	s.metrics.Counter("blocks_received").Inc(1)
	ch <- requestResult{block: block}
}

func (s *Session) log() *zap.SugaredLogger {
	if s.logger == nil {
		return zap.NewNop().Sugar()
	}
	return s.logger.With("remote_peer_id", s.RemotePeerID)
}
