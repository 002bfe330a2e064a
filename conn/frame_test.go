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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	msgs := []*Message{
		NewChoke(),
		NewUnchoke(),
		NewInterested(),
		NewNotInterested(),
		NewHave(7),
		NewBitfield([]byte{0x80, 0x40}),
		NewRequest(0, 16384, 16384),
		NewCancel(0, 16384, 16384),
		NewPiece(0, 0, []byte("hello")),
		newKeepAlive(),
	}
	for _, m := range msgs {
		var buf bytes.Buffer
		require.NoError(t, WriteMessage(&buf, m))
		got, err := ReadMessage(&buf)
		require.NoError(t, err)
		require.Equal(t, m.ID, got.ID)
		require.Equal(t, m.Payload, got.Payload)
		require.Equal(t, m.IsKeepAlive(), got.IsKeepAlive())
	}
}

func TestHaveIndexParse(t *testing.T) {
	m := NewHave(42)
	idx, err := m.HaveIndex()
	require.NoError(t, err)
	require.Equal(t, uint32(42), idx)
}

func TestRequestFieldsParse(t *testing.T) {
	m := NewRequest(1, 16384, 16384)
	index, begin, length, err := m.RequestFields()
	require.NoError(t, err)
	require.Equal(t, uint32(1), index)
	require.Equal(t, uint32(16384), begin)
	require.Equal(t, uint32(16384), length)
}

func TestPieceFieldsParse(t *testing.T) {
	m := NewPiece(2, 100, []byte("block-data"))
	index, begin, block, err := m.PieceFields()
	require.NoError(t, err)
	require.Equal(t, uint32(2), index)
	require.Equal(t, uint32(100), begin)
	require.Equal(t, []byte("block-data"), block)
}

func TestReadMessageOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	lenBuf := make([]byte, 4)
	// 2 MiB claimed length, far beyond MaxPayloadSize.
	big := uint32(2 << 20)
	lenBuf[0] = byte(big >> 24)
	lenBuf[1] = byte(big >> 16)
	lenBuf[2] = byte(big >> 8)
	lenBuf[3] = byte(big)
	buf.Write(lenBuf)

	_, err := ReadMessage(&buf)
	require.Error(t, err)
}
