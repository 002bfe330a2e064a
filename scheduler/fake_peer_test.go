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
	"net"
	"strconv"
	"testing"

	"github.com/uber/goleech/bitfield"
	"github.com/uber/goleech/conn"
	"github.com/uber/goleech/core"
)

// fakePeer reciprocates handshakes and serves whichever pieces it was
// constructed with, corrupting a configured set of them on the wire. It
// exists purely to drive the scheduler's attach and download paths against
// a real TCP listener, without needing a second full Scheduler.
type fakePeer struct {
	listener net.Listener
	infoHash core.InfoHash
	peerID   core.PeerID
	pieces   map[int][]byte
	numPieces int
	corrupt  map[int]bool
}

func newFakePeer(t *testing.T, infoHash core.InfoHash, numPieces int, pieces map[int][]byte) *fakePeer {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	p := &fakePeer{
		listener:  l,
		infoHash:  infoHash,
		peerID:    core.PeerIDFixture(),
		pieces:    pieces,
		numPieces: numPieces,
		corrupt:   make(map[int]bool),
	}
	go p.serve()
	return p
}

func (p *fakePeer) addr() (string, uint16) {
	host, portStr, _ := net.SplitHostPort(p.listener.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return host, uint16(port)
}

func (p *fakePeer) peerInfo() core.PeerInfo {
	host, port := p.addr()
	return core.NewPeerInfo(host, port)
}

func (p *fakePeer) close() {
	p.listener.Close()
}

func (p *fakePeer) serve() {
	for {
		nc, err := p.listener.Accept()
		if err != nil {
			return
		}
		go p.handle(nc)
	}
}

func (p *fakePeer) handle(nc net.Conn) {
	defer nc.Close()

	remoteInfoHash, _, _, err := conn.ReadHandshake(nc)
	if err != nil || remoteInfoHash != p.infoHash {
		return
	}
	if err := conn.WriteHandshake(nc, p.infoHash, p.peerID); err != nil {
		return
	}

	have := bitfield.New(p.numPieces)
	for i := range p.pieces {
		have.Set(i, true)
	}
	if err := conn.WriteMessage(nc, conn.NewBitfield(have.Bytes())); err != nil {
		return
	}
	if err := conn.WriteMessage(nc, conn.NewUnchoke()); err != nil {
		return
	}

	for {
		m, err := conn.ReadMessage(nc)
		if err != nil {
			return
		}
		if m.IsKeepAlive() {
			continue
		}
		switch m.ID {
		case conn.Interested, conn.NotInterested, conn.Bitfield, conn.Have:
		case conn.Request:
			index, begin, length, err := m.RequestFields()
			if err != nil {
				return
			}
			full := p.pieces[int(index)]
			block := make([]byte, length)
			copy(block, full[begin:int(begin)+int(length)])
			if p.corrupt[int(index)] {
				block[0] ^= 0xFF
			}
			if err := conn.WriteMessage(nc, conn.NewPiece(index, begin, block)); err != nil {
				return
			}
		default:
			return
		}
	}
}
