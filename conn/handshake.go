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
	"fmt"
	"io"

	"github.com/uber/goleech/core"
)

const protocolMagic = "BitTorrent protocol"

// handshakeSize is 1 (pstrlen) + 19 (pstr) + 8 (reserved) + 20 (info_hash) +
// 20 (peer_id).
const handshakeSize = 1 + 19 + 8 + 20 + 20

// WriteHandshake writes the classic BitTorrent handshake: 0x13, the literal
// "BitTorrent protocol", 8 reserved zero bytes, the 20-byte info-hash, and
// the 20-byte local peer-id.
func WriteHandshake(w io.Writer, infoHash core.InfoHash, peerID core.PeerID) error {
	buf := make([]byte, handshakeSize)
	buf[0] = 19
	copy(buf[1:20], protocolMagic)
	// buf[20:28] left zero (reserved).
	copy(buf[28:48], infoHash.Bytes())
	copy(buf[48:68], peerID[:])
	_, err := w.Write(buf)
	return err
}

// ReadHandshake reads and validates a peer's handshake, returning its
// info-hash and peer-id. A non-zero reserved field is tolerated (per BEP,
// reserved bits may signal extensions we don't support) and returned as the
// third value, for the caller to log if desired.
func ReadHandshake(r io.Reader) (infoHash core.InfoHash, peerID core.PeerID, reserved [8]byte, err error) {
	buf := make([]byte, handshakeSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return core.InfoHash{}, core.PeerID{}, reserved, err
	}
	if buf[0] != 19 {
		return core.InfoHash{}, core.PeerID{}, reserved, fmt.Errorf("conn: bad handshake pstrlen: %d", buf[0])
	}
	if string(buf[1:20]) != protocolMagic {
		return core.InfoHash{}, core.PeerID{}, reserved, fmt.Errorf("conn: bad handshake magic: %q", buf[1:20])
	}
	copy(reserved[:], buf[20:28])
	var ih core.InfoHash
	copy(ih[:], buf[28:48])
	var pid core.PeerID
	copy(pid[:], buf[48:68])
	return ih, pid, reserved, nil
}

// Handshake performs the full client-initiated handshake over rw: writes our
// handshake, reads the remote's, and verifies the remote's info-hash matches
// ours.
func Handshake(rw io.ReadWriter, infoHash core.InfoHash, localPeerID core.PeerID) (remotePeerID core.PeerID, err error) {
	if err := WriteHandshake(rw, infoHash, localPeerID); err != nil {
		return core.PeerID{}, fmt.Errorf("write handshake: %s", err)
	}
	remoteInfoHash, remotePeerID, _, err := ReadHandshake(rw)
	if err != nil {
		return core.PeerID{}, fmt.Errorf("read handshake: %s", err)
	}
	if remoteInfoHash != infoHash {
		return core.PeerID{}, fmt.Errorf("conn: info-hash mismatch: got %s, want %s", remoteInfoHash, infoHash)
	}
	return remotePeerID, nil
}
