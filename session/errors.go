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
package session

import (
	"errors"
	"fmt"
)

// ErrPeerGone is returned by an in-flight request when the session closes
// (I/O error, protocol violation, or explicit Close) before the request
// completes.
var ErrPeerGone = errors.New("session: peer gone")

// ErrRequestTimeout is returned by request when no PIECE answers it within
// the configured timeout.
var ErrRequestTimeout = errors.New("session: request timeout")

// ErrDuplicateRequest is returned by request when a request for the same
// (index, begin, length) tuple is already in flight.
var ErrDuplicateRequest = errors.New("session: duplicate request")

// ErrNotReady is returned by request when the session is not in the Ready
// state: it has not been started yet, or it has already closed.
var ErrNotReady = errors.New("session: not ready")

// ErrChoked is returned by request when the remote peer is choking us.
var ErrChoked = errors.New("session: peer is choking")

// ProtocolError reports a peer wire protocol violation. Receiving one always
// closes the session; it is never fatal to the torrent as a whole.
type ProtocolError struct {
	msg string
}

func newProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{msg: fmt.Sprintf(format, args...)}
}

func (e *ProtocolError) Error() string { return e.msg }
