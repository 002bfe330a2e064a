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

// Package scheduler implements the leech scheduler: it verifies the piece
// store, announces to the tracker, attaches to a bounded set of peers, and
// runs the per-iteration download loop until every piece is saved.
package scheduler

import (
	"time"

	"github.com/uber/goleech/conn"
	"github.com/uber/goleech/session"
	"github.com/uber/goleech/tracker"
)

// BlockSize is the fixed block size requested per REQUEST, per the classic
// BitTorrent convention.
const BlockSize = 1 << 14

// Config configures a torrent Session (the scheduler).
type Config struct {
	// MaxPeers bounds how many peers are attached concurrently.
	MaxPeers int `yaml:"max_peers"`
	// ConnectTimeout bounds a single peer's TCP connect + handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// IdleSleep is how long the work loop sleeps when no piece can
	// currently be served by any attached peer, to avoid busy-spinning.
	IdleSleep time.Duration `yaml:"idle_sleep"`
	// MaxPieceFailuresPerPeer is the number of consecutive hash-mismatched
	// pieces from a single peer at which that peer is dropped.
	MaxPieceFailuresPerPeer int `yaml:"max_piece_failures_per_peer"`
	// PeerIDFactory selects how the local peer-id is generated.
	PeerIDFactory string `yaml:"peer_id_factory"`

	Conn    conn.Config    `yaml:"conn"`
	Session session.Config `yaml:"session"`
	Tracker tracker.Config `yaml:"tracker"`
}

func (c Config) applyDefaults() Config {
	if c.MaxPeers == 0 {
		c.MaxPeers = 32
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.IdleSleep == 0 {
		c.IdleSleep = 100 * time.Millisecond
	}
	if c.MaxPieceFailuresPerPeer == 0 {
		c.MaxPieceFailuresPerPeer = 3
	}
	if c.PeerIDFactory == "" {
		c.PeerIDFactory = "random"
	}
	return c
}
