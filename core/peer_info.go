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
package core

import "fmt"

// PeerInfo is the address of a peer as advertised by the tracker: an IP and
// a port. It is equatable and usable as a map key so the scheduler can key
// its peer-session registry directly off of it; the peer's 20-byte peer_id
// is learned later, during handshake, and is attached to the session rather
// than to the PeerInfo.
type PeerInfo struct {
	IP   string
	Port uint16
}

// NewPeerInfo creates a new PeerInfo.
func NewPeerInfo(ip string, port uint16) PeerInfo {
	return PeerInfo{IP: ip, Port: port}
}

// String formats p as "ip:port".
func (p PeerInfo) String() string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}
