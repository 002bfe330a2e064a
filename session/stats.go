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

import "sync"

// Stats collects per-peer counters for a Session's lifetime. Safe for
// concurrent use.
type Stats struct {
	mu sync.Mutex

	blocksRequested   int
	blocksReceived    int
	bytesDownloaded   int64
	duplicateBlocks   int
	requestTimeouts   int
	piecesCompleted   int
}

// Snapshot is an immutable copy of a Stats at a point in time, suitable for
// printing a per-peer status line.
type Snapshot struct {
	BlocksRequested int
	BlocksReceived  int
	BytesDownloaded int64
	DuplicateBlocks int
	RequestTimeouts int
	PiecesCompleted int
}

func (s *Stats) incRequested() {
	s.mu.Lock()
	s.blocksRequested++
	s.mu.Unlock()
}

func (s *Stats) incReceived(n int) {
	s.mu.Lock()
	s.blocksReceived++
	s.bytesDownloaded += int64(n)
	s.mu.Unlock()
}

func (s *Stats) incDuplicate() {
	s.mu.Lock()
	s.duplicateBlocks++
	s.mu.Unlock()
}

func (s *Stats) incTimeout() {
	s.mu.Lock()
	s.requestTimeouts++
	s.mu.Unlock()
}

func (s *Stats) incPieceCompleted() {
	s.mu.Lock()
	s.piecesCompleted++
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		BlocksRequested: s.blocksRequested,
		BlocksReceived:  s.blocksReceived,
		BytesDownloaded: s.bytesDownloaded,
		DuplicateBlocks: s.duplicateBlocks,
		RequestTimeouts: s.requestTimeouts,
		PiecesCompleted: s.piecesCompleted,
	}
}
