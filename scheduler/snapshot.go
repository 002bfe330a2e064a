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
	"time"

	"github.com/uber/goleech/core"
	"github.com/uber/goleech/session"
)

// Snapshot is a point-in-time view of the torrent's overall progress,
// analogous to the original client's live status line.
type Snapshot struct {
	RunID         string
	Elapsed       time.Duration
	SavedPieces   int
	TotalPieces   int
	BytesDown     int64
	TotalBytes    int64
	PeerCount     int
}

// PeerSnapshot is a point-in-time view of a single attached peer, analogous
// to the original client's per-peer status line.
type PeerSnapshot struct {
	PeerID     core.PeerID
	Stats      session.Snapshot
	Completion float64 // fraction of pieces this peer has advertised via BITFIELD/HAVE, 0..1.
}

// Snapshot reports the scheduler's current overall progress.
func (s *Scheduler) Snapshot() Snapshot {
	return Snapshot{
		RunID:       s.runID.String(),
		Elapsed:     s.clk.Now().Sub(s.startedAt),
		SavedPieces: s.store.Saved().Count(),
		TotalPieces: s.mi.NumPieces(),
		BytesDown:   s.downloaded.Load(),
		TotalBytes:  s.mi.Length(),
		PeerCount:   s.peerCount(),
	}
}

// PeerSnapshots reports a per-peer snapshot for every currently attached
// peer.
func (s *Scheduler) PeerSnapshots() []PeerSnapshot {
	s.peersMu.RLock()
	defer s.peersMu.RUnlock()
	out := make([]PeerSnapshot, 0, len(s.peers))
	for id, p := range s.peers {
		peerPieces := p.sess.PeerPieces()
		out = append(out, PeerSnapshot{
			PeerID:     id,
			Stats:      p.sess.Stats(),
			Completion: float64(peerPieces.Count()) / float64(peerPieces.Len()),
		})
	}
	return out
}

func (s *Scheduler) peerCount() int {
	s.peersMu.RLock()
	defer s.peersMu.RUnlock()
	return len(s.peers)
}
