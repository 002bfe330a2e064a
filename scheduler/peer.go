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
	"sync"

	"github.com/uber/goleech/core"
	"github.com/uber/goleech/session"
)

// attachedPeer wraps a Session with the scheduler's own bookkeeping: a
// consecutive-piece-failure counter used to decide when to drop the peer
// (Open Question (a)).
type attachedPeer struct {
	id   core.PeerID
	sess *session.Session

	mu                  sync.Mutex
	consecutiveFailures int
}

func newAttachedPeer(id core.PeerID, sess *session.Session) *attachedPeer {
	return &attachedPeer{id: id, sess: sess}
}

// recordSuccess resets the peer's consecutive-failure counter.
func (p *attachedPeer) recordSuccess() {
	p.mu.Lock()
	p.consecutiveFailures = 0
	p.mu.Unlock()
}

// recordFailure increments and returns the peer's consecutive-failure
// counter.
func (p *attachedPeer) recordFailure() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consecutiveFailures++
	return p.consecutiveFailures
}

// eligibleForPiece reports whether this peer can currently serve index:
// Ready, not choking us, and advertising the piece.
func (p *attachedPeer) eligibleForPiece(index int) bool {
	return p.sess.State() == session.Ready &&
		!p.sess.PeerChoking() &&
		p.sess.PeerPieces().Contains(index)
}
