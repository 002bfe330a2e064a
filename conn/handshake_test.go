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
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uber/goleech/core"
)

func TestHandshakeRoundTrip(t *testing.T) {
	infoHash := core.InfoHashFixture()
	peerID := core.PeerIDFixture()

	var buf bytes.Buffer
	require.NoError(t, WriteHandshake(&buf, infoHash, peerID))
	require.Equal(t, handshakeSize, buf.Len())

	gotHash, gotPeerID, reserved, err := ReadHandshake(&buf)
	require.NoError(t, err)
	require.Equal(t, infoHash, gotHash)
	require.Equal(t, peerID, gotPeerID)
	require.Equal(t, [8]byte{}, reserved)
}

func TestReadHandshakeBadMagic(t *testing.T) {
	buf := make([]byte, handshakeSize)
	buf[0] = 19
	copy(buf[1:20], "not the right magic")
	_, _, _, err := ReadHandshake(bytes.NewReader(buf))
	require.Error(t, err)
}

func TestHandshakeRejectsMismatchedInfoHash(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	infoHash1 := core.InfoHashFixture()
	infoHash2 := core.InfoHashFixture()
	localPeerID := core.PeerIDFixture()
	remotePeerID := core.PeerIDFixture()

	done := make(chan error, 1)
	go func() {
		_, err := Handshake(a, infoHash1, localPeerID)
		done <- err
	}()

	// Simulate the remote side replying with a different info-hash.
	_, _, _, err := ReadHandshake(b)
	require.NoError(t, err)
	require.NoError(t, WriteHandshake(b, infoHash2, remotePeerID))

	require.Error(t, <-done)
}
