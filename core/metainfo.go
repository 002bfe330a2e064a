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
	"errors"
	"fmt"

	"github.com/uber/goleech/bencode"
)

// MetaInfo is the decoded, immutable content of a .torrent file: where to
// announce, and the info-hash and Info describing what to download.
type MetaInfo struct {
	announce string
	infoHash InfoHash
	info     Info
}

// NewMetaInfo builds a MetaInfo from an already-constructed Info, hashing it
// via canonical re-encoding. Used for torrents assembled in-process (tests,
// fixtures) rather than loaded from a file on disk.
func NewMetaInfo(announce string, info Info) (*MetaInfo, error) {
	h, err := info.hash()
	if err != nil {
		return nil, fmt.Errorf("compute info hash: %s", err)
	}
	return &MetaInfo{announce: announce, infoHash: h, info: info}, nil
}

// LoadMetaInfo decodes a .torrent file's bytes into a MetaInfo.
//
// The info-hash is computed from the raw bencoded bytes of the "info"
// sub-dictionary exactly as they appeared in data, never from a
// re-serialization of the decoded dict: bencode.Dict retains the raw byte
// span of every key it decodes for precisely this purpose.
func LoadMetaInfo(data []byte) (*MetaInfo, error) {
	v, err := bencode.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode metainfo: %s", err)
	}
	top, ok := v.(*bencode.Dict)
	if !ok {
		return nil, errors.New("metainfo: top-level value is not a dict")
	}
	announce, ok := top.GetString("announce")
	if !ok {
		return nil, errors.New("metainfo: missing or malformed \"announce\"")
	}
	infoRaw, ok := top.Raw("info")
	if !ok {
		return nil, errors.New("metainfo: missing \"info\" dict")
	}
	infoDict, ok := top.GetDict("info")
	if !ok {
		return nil, errors.New("metainfo: \"info\" is not a dict")
	}
	info, err := infoFromDict(infoDict)
	if err != nil {
		return nil, fmt.Errorf("metainfo: info: %s", err)
	}
	return &MetaInfo{
		announce: string(announce),
		infoHash: NewInfoHashFromBytes(infoRaw),
		info:     info,
	}, nil
}

// Announce returns the tracker announce URL.
func (mi *MetaInfo) Announce() string {
	return mi.announce
}

// InfoHash returns the torrent's info-hash.
func (mi *MetaInfo) InfoHash() InfoHash {
	return mi.infoHash
}

// Info returns the decoded info record.
func (mi *MetaInfo) Info() Info {
	return mi.info
}

// Name returns the torrent's file name.
func (mi *MetaInfo) Name() string {
	return mi.info.Name
}

// Length returns the total length of the downloaded file, in bytes.
func (mi *MetaInfo) Length() int64 {
	return mi.info.Length
}

// NumPieces returns the number of pieces in the torrent.
func (mi *MetaInfo) NumPieces() int {
	return len(mi.info.Pieces)
}

// PieceLength returns the nominal piece length. The final piece may be
// shorter; use GetPieceLength for the true length of a given piece.
func (mi *MetaInfo) PieceLength() int64 {
	return mi.info.PieceLength
}

// GetPieceLength returns the length of piece i, or 0 if i is out of bounds.
func (mi *MetaInfo) GetPieceLength(i int) int64 {
	if i < 0 || i >= len(mi.info.Pieces) {
		return 0
	}
	if i == len(mi.info.Pieces)-1 {
		return mi.info.Length - mi.info.PieceLength*int64(i)
	}
	return mi.info.PieceLength
}

// GetPieceHash returns the expected SHA-1 digest of piece i. Does not check
// bounds.
func (mi *MetaInfo) GetPieceHash(i int) [PieceHashSize]byte {
	return mi.info.Pieces[i]
}
