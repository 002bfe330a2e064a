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

// Package session implements the peer session state machine: message
// dispatch after handshake, choke/interest bookkeeping, and request
// correlation between outgoing REQUESTs and incoming PIECEs.
package session

// State is a peer session's lifecycle state.
type State int32

const (
	// Connecting is the state before a TCP connection has been established.
	// Sessions in this package are constructed after that point, so it is
	// exposed only for callers (the scheduler) that want to report it.
	Connecting State = iota
	// Handshaking is the state between TCP connect and handshake exchange.
	Handshaking
	// Ready accepts application requests: it is the only state in which
	// Request succeeds.
	Ready
	// Closed is terminal. All in-flight requests fail with ErrPeerGone.
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Handshaking:
		return "handshaking"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
