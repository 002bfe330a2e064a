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
	"encoding/binary"
	"fmt"
	"io"
)

// ReadMessage reads a single length-prefixed frame off r: a 4-byte
// big-endian length followed by that many bytes of body. A length of 0 is a
// keep-alive and carries no body. The first body byte, when present, is the
// message id; the remainder is the payload.
func ReadMessage(r io.Reader) (*Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length == 0 {
		return newKeepAlive(), nil
	}
	if length > MaxPayloadSize {
		return nil, fmt.Errorf("conn: oversized frame: %d bytes", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	m := &Message{ID: MessageID(body[0])}
	if length > 1 {
		m.Payload = body[1:]
	}
	return m, nil
}

// WriteMessage writes m to w as a single length-prefixed frame.
func WriteMessage(w io.Writer, m *Message) error {
	if m.IsKeepAlive() {
		var lenBuf [4]byte
		_, err := w.Write(lenBuf[:])
		return err
	}
	frame := make([]byte, 4+1+len(m.Payload))
	binary.BigEndian.PutUint32(frame[0:4], uint32(1+len(m.Payload)))
	frame[4] = byte(m.ID)
	copy(frame[5:], m.Payload)
	_, err := w.Write(frame)
	return err
}
