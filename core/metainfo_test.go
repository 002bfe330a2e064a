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

import (
	"crypto/sha1"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uber/goleech/bencode"
)

func bigInt(n int64) *big.Int { return big.NewInt(n) }

// buildMetaInfoBytes bencodes a minimal single-file metainfo dict by hand,
// mirroring what a real .torrent file looks like on the wire.
func buildMetaInfoBytes(t *testing.T, announce, name string, length, pieceLength int64, pieces [][]byte) []byte {
	t.Helper()

	var piecesBuf []byte
	for _, p := range pieces {
		piecesBuf = append(piecesBuf, p...)
	}

	info := bencode.NewDict()
	info.Set("length", bigInt(length))
	info.Set("name", []byte(name))
	info.Set("piece length", bigInt(pieceLength))
	info.Set("pieces", piecesBuf)

	infoBytes, err := bencode.Encode(info)
	require.NoError(t, err)

	top := bencode.NewDict()
	top.Set("announce", []byte(announce))
	top.Set("info", info)

	// Decode+re-encode the outer dict so the raw span bencode.Decode would
	// see for "info" matches infoBytes exactly, same as a real file.
	out, err := bencode.Encode(top)
	require.NoError(t, err)
	v, err := bencode.Decode(out)
	require.NoError(t, err)
	d := v.(*bencode.Dict)
	raw, ok := d.Raw("info")
	require.True(t, ok)
	require.Equal(t, infoBytes, raw)

	return out
}

func TestLoadMetaInfo(t *testing.T) {
	p0 := sha1.Sum([]byte("0123456789abcdef"))
	p1 := sha1.Sum([]byte("ghijklmnopqrstuv"))
	p2 := sha1.Sum([]byte("wx"))

	data := buildMetaInfoBytes(t, "http://tracker.example/announce", "file.bin", 40, 16,
		[][]byte{p0[:], p1[:], p2[:]})

	mi, err := LoadMetaInfo(data)
	require.NoError(t, err)
	require.Equal(t, "http://tracker.example/announce", mi.Announce())
	require.Equal(t, "file.bin", mi.Name())
	require.Equal(t, int64(40), mi.Length())
	require.Equal(t, int64(16), mi.PieceLength())
	require.Equal(t, 3, mi.NumPieces())
	require.Equal(t, int64(16), mi.GetPieceLength(0))
	require.Equal(t, int64(8), mi.GetPieceLength(2))
	require.Equal(t, p0, mi.GetPieceHash(0))

	// The info-hash must be SHA-1 of the raw info dict bytes, not of any
	// re-serialization.
	infoBytes, err := bencode.Encode(infoDictFromHashes(t, "file.bin", 40, 16, [][]byte{p0[:], p1[:], p2[:]}))
	require.NoError(t, err)
	want := sha1.Sum(infoBytes)
	require.Equal(t, want[:], mi.InfoHash().Bytes())
}

func infoDictFromHashes(t *testing.T, name string, length, pieceLength int64, pieces [][]byte) *bencode.Dict {
	t.Helper()
	var piecesBuf []byte
	for _, p := range pieces {
		piecesBuf = append(piecesBuf, p...)
	}
	d := bencode.NewDict()
	d.Set("length", bigInt(length))
	d.Set("name", []byte(name))
	d.Set("piece length", bigInt(pieceLength))
	d.Set("pieces", piecesBuf)
	return d
}

func TestLoadMetaInfoRejectsWrongPieceCount(t *testing.T) {
	p0 := sha1.Sum([]byte("0123456789abcdef"))
	// Declares length=40/pieceLength=16 (needs 3 pieces) but only supplies 1.
	data := buildMetaInfoBytes(t, "http://tracker.example/announce", "file.bin", 40, 16, [][]byte{p0[:]})

	_, err := LoadMetaInfo(data)
	require.Error(t, err)
}

func TestNewMetaInfoHashMatchesLoaded(t *testing.T) {
	p0 := sha1.Sum([]byte("0123456789abcdef"))
	p1 := sha1.Sum([]byte("ghijklmnopqrstuv"))

	data := buildMetaInfoBytes(t, "http://tracker.example/announce", "f", 32, 16, [][]byte{p0[:], p1[:]})
	loaded, err := LoadMetaInfo(data)
	require.NoError(t, err)

	info := Info{Name: "f", PieceLength: 16, Length: 32, Pieces: [][PieceHashSize]byte{p0, p1}}
	built, err := NewMetaInfo("http://tracker.example/announce", info)
	require.NoError(t, err)

	require.Equal(t, loaded.InfoHash(), built.InfoHash())
}
