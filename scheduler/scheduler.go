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
package scheduler

import (
	"context"
	"crypto/sha1"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/google/uuid"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uber/goleech/conn"
	"github.com/uber/goleech/core"
	"github.com/uber/goleech/session"
	"github.com/uber/goleech/storage"
	"github.com/uber/goleech/tracker"
)

// Scheduler is the leech scheduler: the operational heart of a single
// torrent download. It owns the piece store and every attached peer
// session, and runs the work loop that drives pieces from peers to disk.
type Scheduler struct {
	config      Config
	mi          *core.MetaInfo
	store       *storage.PieceStore
	trackerC    *tracker.Client
	localPeerID core.PeerID
	runID       uuid.UUID
	clk         clock.Clock
	stats       tally.Scope
	logger      *zap.SugaredLogger

	queue *workQueue

	peersMu sync.RWMutex
	peers   map[core.PeerID]*attachedPeer

	downloaded *atomic.Int64
	startedAt  time.Time
}

// New opens the piece store at path for the torrent described by mi and
// prepares a Scheduler. The piece store is verified synchronously before
// New returns, per step 1 of the leech startup sequence.
func New(path string, mi *core.MetaInfo, config Config, clk clock.Clock, stats tally.Scope, logger *zap.SugaredLogger) (*Scheduler, error) {
	config = config.applyDefaults()
	if clk == nil {
		clk = clock.New()
	}
	if stats == nil {
		stats = tally.NoopScope
	}

	store, err := storage.Open(path, mi, logger)
	if err != nil {
		return nil, fmt.Errorf("open piece store: %s", err)
	}

	localPeerID, err := core.PeerIDFactory(config.PeerIDFactory).GeneratePeerID("0.0.0.0", 0)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("generate local peer id: %s", err)
	}

	return &Scheduler{
		config:      config,
		mi:          mi,
		store:       store,
		trackerC:    tracker.New(config.Tracker),
		localPeerID: localPeerID,
		runID:       uuid.New(),
		clk:         clk,
		stats:       stats.Tagged(map[string]string{"module": "scheduler"}),
		logger:      logger,
		queue:       newWorkQueue(mi.NumPieces(), store.Saved()),
		peers:       make(map[core.PeerID]*attachedPeer),
		downloaded:  atomic.NewInt64(0),
	}, nil
}

// Run announces to the tracker, attaches to peers, and runs the leech work
// loop until ctx is cancelled. On cancellation it performs the shutdown
// sequence: stop the work loop, close every peer session, then close the
// piece store.
func (s *Scheduler) Run(ctx context.Context) error {
	s.startedAt = s.clk.Now()

	peerInfos, err := s.announce(ctx)
	if err != nil {
		return fmt.Errorf("announce: %s", err)
	}
	s.attachPeers(ctx, peerInfos)

	workCtx, cancelWork := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.workLoop(workCtx)
	}()

	<-ctx.Done()
	cancelWork()
	wg.Wait()
	s.closeAllPeers()
	return s.store.Close()
}

func (s *Scheduler) announce(ctx context.Context) ([]core.PeerInfo, error) {
	remaining := int64(s.mi.NumPieces()-s.store.Saved().Count()) * s.mi.PieceLength()
	resp, err := s.trackerC.Announce(ctx, s.mi.Announce(), tracker.AnnounceRequest{
		InfoHash: s.mi.InfoHash(),
		PeerID:   s.localPeerID,
		Port:     0,
		Left:     remaining,
	})
	if err != nil {
		return nil, err
	}
	return resp.Peers, nil
}

// attachPeers connects to at most config.MaxPeers of the tracker's
// candidates concurrently, each bounded by config.ConnectTimeout. Failures
// are logged and discarded; the scheduler proceeds with whatever succeeds.
func (s *Scheduler) attachPeers(ctx context.Context, candidates []core.PeerInfo) {
	if len(candidates) > s.config.MaxPeers {
		candidates = candidates[:s.config.MaxPeers]
	}

	var wg sync.WaitGroup
	for _, pi := range candidates {
		pi := pi
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.attachPeer(ctx, pi); err != nil {
				s.log().Infow("Failed to attach peer", "peer", pi.String(), "error", err)
			}
		}()
	}
	wg.Wait()
}

func (s *Scheduler) attachPeer(ctx context.Context, pi core.PeerInfo) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ConnectTimeout)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", pi.IP, pi.Port)
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %s", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		nc.SetDeadline(deadline)
	}
	remotePeerID, err := conn.Handshake(nc, s.mi.InfoHash(), s.localPeerID)
	if err != nil {
		nc.Close()
		return fmt.Errorf("handshake: %s", err)
	}
	nc.SetDeadline(time.Time{})

	c := conn.New(nc, s.mi.InfoHash(), remotePeerID, s.config.Conn, s.logger, s.stats)
	sess := session.New(c, remotePeerID, s.mi.NumPieces(), s.config.Session, s.clk, s.logger, s.stats)
	sess.Start(s.store.Saved())
	sess.SendInterested()

	s.peersMu.Lock()
	s.peers[remotePeerID] = newAttachedPeer(remotePeerID, sess)
	s.peersMu.Unlock()

	return nil
}

func (s *Scheduler) closeAllPeers() {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	for id, p := range s.peers {
		p.sess.Close()
		delete(s.peers, id)
	}
}

func (s *Scheduler) dropPeer(p *attachedPeer) {
	s.peersMu.Lock()
	delete(s.peers, p.id)
	s.peersMu.Unlock()
	p.sess.Close()
}

// shuffledPeers lists the currently attached peers in random order, so
// repeatedly iterating the same handful of peers doesn't starve the rest.
func (s *Scheduler) shuffledPeers() []*attachedPeer {
	s.peersMu.RLock()
	peers := make([]*attachedPeer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.peersMu.RUnlock()
	rand.Shuffle(len(peers), func(i, j int) { peers[i], peers[j] = peers[j], peers[i] })
	return peers
}

func (s *Scheduler) pickPeerForPiece(index int) *attachedPeer {
	for _, p := range s.shuffledPeers() {
		if p.eligibleForPiece(index) {
			return p
		}
	}
	return nil
}

// workLoop implements the per-iteration policy of §4.6: pop a piece,
// find an eligible peer, fetch and verify it, write it to disk, and
// advertise it to the rest of the swarm. When the queue drains, it idles
// until ctx is cancelled.
func (s *Scheduler) workLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		index, ok := s.queue.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.clk.After(s.config.IdleSleep):
				continue
			}
		}
		if s.store.Has(index) {
			continue
		}

		peer := s.pickPeerForPiece(index)
		if peer == nil {
			s.queue.requeue(index)
			select {
			case <-ctx.Done():
				return
			case <-s.clk.After(s.config.IdleSleep):
			}
			continue
		}

		data, err := s.downloadPiece(ctx, peer, index)
		if err != nil {
			s.log().Infow("Piece download failed, re-queuing", "piece", index, "peer", peer.id, "error", err)
			s.queue.requeue(index)
			// A dead peer (connection reset, or a timeout whose receive
			// loop has since died) is dropped outright; anything else
			// (choke flip, duplicate race) just gives up this iteration.
			if err == session.ErrPeerGone || peer.sess.State() == session.Closed {
				s.dropPeer(peer)
			}
			continue
		}

		if sha1.Sum(data) != s.mi.GetPieceHash(index) {
			s.queue.requeue(index)
			s.stats.Counter("piece_hash_mismatch").Inc(1)
			if n := peer.recordFailure(); n >= s.config.MaxPieceFailuresPerPeer {
				s.log().Infow("Dropping peer after repeated piece failures", "peer", peer.id, "failures", n)
				s.dropPeer(peer)
			}
			continue
		}
		peer.recordSuccess()

		if err := s.store.WritePiece(index, data); err != nil {
			s.log().Errorw("Failed to write piece, re-queuing", "piece", index, "error", err)
			s.queue.requeue(index)
			continue
		}
		s.downloaded.Add(int64(len(data)))
		peer.sess.RecordPieceCompleted()
		s.stats.Counter("pieces_completed").Inc(1)
		s.broadcastHave(index)
	}
}

// downloadPiece fans the piece's blocks out concurrently to a single peer,
// per §4.6 step 5, and reassembles them in order.
func (s *Scheduler) downloadPiece(ctx context.Context, peer *attachedPeer, index int) ([]byte, error) {
	length := s.mi.GetPieceLength(index)
	numBlocks := int((length + BlockSize - 1) / BlockSize)
	blocks := make([][]byte, numBlocks)

	g, _ := errgroup.WithContext(ctx)
	for b := 0; b < numBlocks; b++ {
		b := b
		begin := int64(b) * BlockSize
		blockLen := int64(BlockSize)
		if begin+blockLen > length {
			blockLen = length - begin
		}
		g.Go(func() error {
			block, err := peer.sess.Request(uint32(index), uint32(begin), uint32(blockLen))
			if err != nil {
				return err
			}
			blocks[b] = block
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]byte, 0, length)
	for _, b := range blocks {
		out = append(out, b...)
	}
	if int64(len(out)) != length {
		return nil, fmt.Errorf("assembled piece %d has length %d, want %d", index, len(out), length)
	}
	return out, nil
}

func (s *Scheduler) broadcastHave(index int) {
	for _, p := range s.shuffledPeers() {
		p.sess.SendHave(index)
	}
}

func (s *Scheduler) log() *zap.SugaredLogger {
	if s.logger == nil {
		return zap.NewNop().Sugar()
	}
	return s.logger.With("run_id", s.runID.String(), "info_hash", s.mi.InfoHash())
}
