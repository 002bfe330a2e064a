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

// Package conn implements the BitTorrent peer wire protocol: the handshake
// byte layout, length-prefixed message framing, and a Conn that turns a raw
// net.Conn into buffered send/receive channels.
package conn

import (
	"encoding/binary"
	"fmt"
)

// MessageID identifies the kind of a peer wire protocol message.
type MessageID byte

// Message ids, per the classic BitTorrent peer wire protocol.
const (
	Choke         MessageID = 0
	Unchoke       MessageID = 1
	Interested    MessageID = 2
	NotInterested MessageID = 3
	Have          MessageID = 4
	Bitfield      MessageID = 5
	Request       MessageID = 6
	Piece         MessageID = 7
	Cancel        MessageID = 8
)

func (id MessageID) String() string {
	switch id {
	case Choke:
		return "choke"
	case Unchoke:
		return "unchoke"
	case Interested:
		return "interested"
	case NotInterested:
		return "not_interested"
	case Have:
		return "have"
	case Bitfield:
		return "bitfield"
	case Request:
		return "request"
	case Piece:
		return "piece"
	case Cancel:
		return "cancel"
	default:
		return fmt.Sprintf("unknown(%d)", byte(id))
	}
}

// MaxPayloadSize bounds the length field of an incoming message frame,
// guarding against a peer claiming an absurd payload size.
const MaxPayloadSize = 1 << 20 // 1 MiB; comfortably larger than any block/bitfield we expect.

// Message is a single parsed peer wire protocol message. keepAlive
// distinguishes a genuine keep-alive (wire length 0) from a zero-payload
// CHOKE message, which would otherwise look identical (ID 0, nil payload).
type Message struct {
	ID        MessageID
	Payload   []byte
	keepAlive bool
}

// IsKeepAlive reports whether m is a keep-alive (zero-length) message.
func (m *Message) IsKeepAlive() bool {
	return m.keepAlive
}

// newKeepAlive constructs the sentinel keep-alive message.
func newKeepAlive() *Message {
	return &Message{keepAlive: true}
}

// NewChoke, NewUnchoke, NewInterested, and NewNotInterested build their
// respective zero-payload messages.
func NewChoke() *Message         { return &Message{ID: Choke} }
func NewUnchoke() *Message       { return &Message{ID: Unchoke} }
func NewInterested() *Message    { return &Message{ID: Interested} }
func NewNotInterested() *Message { return &Message{ID: NotInterested} }

// NewHave builds a HAVE message announcing piece index.
func NewHave(index uint32) *Message {
	p := make([]byte, 4)
	binary.BigEndian.PutUint32(p, index)
	return &Message{ID: Have, Payload: p}
}

// NewBitfield builds a BITFIELD message carrying the given wire-format
// bitfield bytes.
func NewBitfield(b []byte) *Message {
	return &Message{ID: Bitfield, Payload: b}
}

// NewRequest builds a REQUEST message for the given block.
func NewRequest(index, begin, length uint32) *Message {
	p := make([]byte, 12)
	binary.BigEndian.PutUint32(p[0:4], index)
	binary.BigEndian.PutUint32(p[4:8], begin)
	binary.BigEndian.PutUint32(p[8:12], length)
	return &Message{ID: Request, Payload: p}
}

// NewCancel builds a CANCEL message for the given block.
func NewCancel(index, begin, length uint32) *Message {
	m := NewRequest(index, begin, length)
	m.ID = Cancel
	return m
}

// NewPiece builds a PIECE message carrying block at (index, begin).
func NewPiece(index, begin uint32, block []byte) *Message {
	p := make([]byte, 8+len(block))
	binary.BigEndian.PutUint32(p[0:4], index)
	binary.BigEndian.PutUint32(p[4:8], begin)
	copy(p[8:], block)
	return &Message{ID: Piece, Payload: p}
}

// HaveIndex parses the piece index out of a HAVE message's payload.
func (m *Message) HaveIndex() (uint32, error) {
	if len(m.Payload) != 4 {
		return 0, fmt.Errorf("have: expected 4-byte payload, got %d", len(m.Payload))
	}
	return binary.BigEndian.Uint32(m.Payload), nil
}

// RequestFields parses the (index, begin, length) tuple out of a
// REQUEST/CANCEL message's payload.
func (m *Message) RequestFields() (index, begin, length uint32, err error) {
	if len(m.Payload) != 12 {
		return 0, 0, 0, fmt.Errorf("request: expected 12-byte payload, got %d", len(m.Payload))
	}
	index = binary.BigEndian.Uint32(m.Payload[0:4])
	begin = binary.BigEndian.Uint32(m.Payload[4:8])
	length = binary.BigEndian.Uint32(m.Payload[8:12])
	return index, begin, length, nil
}

// PieceFields parses the (index, begin, block) out of a PIECE message's
// payload.
func (m *Message) PieceFields() (index, begin uint32, block []byte, err error) {
	if len(m.Payload) < 8 {
		return 0, 0, nil, fmt.Errorf("piece: payload too short: %d bytes", len(m.Payload))
	}
	index = binary.BigEndian.Uint32(m.Payload[0:4])
	begin = binary.BigEndian.Uint32(m.Payload[4:8])
	block = m.Payload[8:]
	return index, begin, block, nil
}
