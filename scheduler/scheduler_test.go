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
	"bytes"
	"context"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"

	"github.com/uber/goleech/bencode"
	"github.com/uber/goleech/core"
)

// fixedMetaInfo builds a 3-piece, 40-byte torrent (16/16/8) matching the
// canonical end-to-end scenario, with its announce URL pointed at
// trackerURL.
func fixedMetaInfo(t *testing.T, trackerURL string) (*core.MetaInfo, []byte) {
	t.Helper()
	content := make([]byte, 40)
	for i := range content {
		content[i] = byte(i)
	}
	info, err := core.NewInfo("e2e", bytes.NewReader(content), 16)
	require.NoError(t, err)
	mi, err := core.NewMetaInfo(trackerURL, info)
	require.NoError(t, err)
	return mi, content
}

func compactPeer(t *testing.T, addr string) []byte {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	ip := net.ParseIP(host).To4()
	require.NotNil(t, ip, "expected an IPv4 address, got %q", host)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	out := make([]byte, 6)
	copy(out[:4], ip)
	out[4] = byte(port >> 8)
	out[5] = byte(port)
	return out
}

// trackerServing returns an httptest server that announces the given
// compact IPv4 peer addresses.
func trackerServing(t *testing.T, peerAddrs ...string) *httptest.Server {
	t.Helper()
	var compact bytes.Buffer
	for _, addr := range peerAddrs {
		compact.Write(compactPeer(t, addr))
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := bencode.NewDict()
		d.Set("interval", big.NewInt(1800))
		d.Set("peers", compact.Bytes())
		b, err := bencode.Encode(d)
		require.NoError(t, err)
		w.Write(b)
	}))
}

func waitForSnapshot(t *testing.T, s *Scheduler, timeout time.Duration, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		snap := s.Snapshot()
		if cond(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for snapshot condition, last snapshot: %+v", snap)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func runScheduler(t *testing.T, s *Scheduler) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("scheduler did not shut down in time")
		}
	}
}

func TestSchedulerDownloadsAllPiecesFromFullySeededPeer(t *testing.T) {
	mi, content := fixedMetaInfo(t, "http://placeholder/")

	pieces := map[int][]byte{
		0: content[0:16],
		1: content[16:32],
		2: content[32:40],
	}
	fp := newFakePeer(t, mi.InfoHash(), mi.NumPieces(), pieces)
	defer fp.close()
	host, port := fp.addr()

	tr := trackerServing(t, net.JoinHostPort(host, strconv.Itoa(int(port))))
	defer tr.Close()

	mi, _ = fixedMetaInfo(t, tr.URL)
	// Swap in the real pieces/info hash computed against the real announce URL
	// (NewInfo/NewMetaInfo are deterministic in content, only announce differs,
	// so the info hash mi carries now matches what fp was constructed with).
	require.Equal(t, fp.infoHash, mi.InfoHash())

	path := filepath.Join(t.TempDir(), "e2e.data")
	s, err := New(path, mi, Config{IdleSleep: 5 * time.Millisecond}, clock.New(), nil, nil)
	require.NoError(t, err)

	stop := runScheduler(t, s)
	defer stop()

	waitForSnapshot(t, s, 5*time.Second, func(snap Snapshot) bool {
		return snap.SavedPieces == snap.TotalPieces
	})
}

func TestSchedulerRequeuesPiecesNotHeldByAttachedPeer(t *testing.T) {
	mi, content := fixedMetaInfo(t, "http://placeholder/")

	// The fake peer only holds piece 0; pieces 1 and 2 can never complete.
	fp := newFakePeer(t, mi.InfoHash(), mi.NumPieces(), map[int][]byte{
		0: content[0:16],
	})
	defer fp.close()
	host, port := fp.addr()

	tr := trackerServing(t, net.JoinHostPort(host, strconv.Itoa(int(port))))
	defer tr.Close()
	mi, _ = fixedMetaInfo(t, tr.URL)

	path := filepath.Join(t.TempDir(), "e2e.data")
	s, err := New(path, mi, Config{IdleSleep: 5 * time.Millisecond}, clock.New(), nil, nil)
	require.NoError(t, err)

	stop := runScheduler(t, s)
	defer stop()

	waitForSnapshot(t, s, 2*time.Second, func(snap Snapshot) bool {
		return snap.SavedPieces == 1
	})

	// Give the work loop a few more idle cycles: pieces 1 and 2 must stay
	// outstanding, not silently drop.
	time.Sleep(50 * time.Millisecond)
	snap := s.Snapshot()
	require.Equal(t, 1, snap.SavedPieces)
	require.Equal(t, 2, s.queue.len())
}

func TestSchedulerRequeuesAndSurvivesCorruptedBlock(t *testing.T) {
	mi, content := fixedMetaInfo(t, "http://placeholder/")

	fp := newFakePeer(t, mi.InfoHash(), mi.NumPieces(), map[int][]byte{
		0: content[0:16],
		1: content[16:32],
		2: content[32:40],
	})
	fp.corrupt[0] = true
	defer fp.close()
	host, port := fp.addr()

	tr := trackerServing(t, net.JoinHostPort(host, strconv.Itoa(int(port))))
	defer tr.Close()
	mi, _ = fixedMetaInfo(t, tr.URL)

	path := filepath.Join(t.TempDir(), "e2e.data")
	cfg := Config{IdleSleep: 5 * time.Millisecond, MaxPieceFailuresPerPeer: 100}
	s, err := New(path, mi, cfg, clock.New(), nil, nil)
	require.NoError(t, err)

	stop := runScheduler(t, s)
	defer stop()

	// Pieces 1 and 2 complete normally; piece 0 is perpetually corrupted and
	// never verifies, but the peer is never dropped (threshold is high), so
	// the scheduler just keeps retrying it.
	waitForSnapshot(t, s, 2*time.Second, func(snap Snapshot) bool {
		return snap.SavedPieces == 2
	})
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 2, s.Snapshot().SavedPieces)
	require.Equal(t, 1, s.peerCount(), "peer should not be dropped below the failure threshold")
}

func TestSchedulerDropsPeerAfterRepeatedCorruption(t *testing.T) {
	mi, content := fixedMetaInfo(t, "http://placeholder/")

	fp := newFakePeer(t, mi.InfoHash(), mi.NumPieces(), map[int][]byte{
		0: content[0:16],
	})
	fp.corrupt[0] = true
	defer fp.close()
	host, port := fp.addr()

	tr := trackerServing(t, net.JoinHostPort(host, strconv.Itoa(int(port))))
	defer tr.Close()
	mi, _ = fixedMetaInfo(t, tr.URL)

	path := filepath.Join(t.TempDir(), "e2e.data")
	cfg := Config{IdleSleep: 5 * time.Millisecond, MaxPieceFailuresPerPeer: 2}
	s, err := New(path, mi, cfg, clock.New(), nil, nil)
	require.NoError(t, err)

	stop := runScheduler(t, s)
	defer stop()

	waitForSnapshot(t, s, 2*time.Second, func(snap Snapshot) bool {
		return s.peerCount() == 0
	})
	require.Equal(t, 0, s.Snapshot().SavedPieces)
}
