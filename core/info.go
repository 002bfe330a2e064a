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
	"bytes"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/uber/goleech/bencode"
)

// PieceHashSize is the length in bytes of a single piece's SHA-1 digest.
const PieceHashSize = sha1.Size

// Info contains the "instructions" for how to download a torrent: its name,
// how a blob is broken up into pieces, and how to verify each piece.
type Info struct {
	Name        string
	PieceLength int64
	Length      int64
	Pieces      [][PieceHashSize]byte
}

// toDict converts info into the bencode dict it is serialized as. Keys are
// the classic single-file metainfo field names; Encode sorts them into
// ascending order, which already matches their declaration order here.
func (info *Info) toDict() *bencode.Dict {
	d := bencode.NewDict()
	d.Set("length", big.NewInt(info.Length))
	d.Set("name", []byte(info.Name))
	d.Set("piece length", big.NewInt(info.PieceLength))
	var pieces bytes.Buffer
	for _, h := range info.Pieces {
		pieces.Write(h[:])
	}
	d.Set("pieces", pieces.Bytes())
	return d
}

// hash computes the InfoHash of info by re-encoding it canonically. Used
// only when info was constructed programmatically (e.g. NewInfo); a
// MetaInfo loaded from bytes hashes the original raw info span instead, per
// the info-hash rule (see metainfo.go).
func (info *Info) hash() (InfoHash, error) {
	b, err := bencode.Encode(info.toDict())
	if err != nil {
		return InfoHash{}, fmt.Errorf("bencode: %s", err)
	}
	return NewInfoHashFromBytes(b), nil
}

// infoFromDict decodes an Info out of a bencode dict, validating the
// invariants the metainfo format requires.
func infoFromDict(d *bencode.Dict) (Info, error) {
	name, ok := d.GetString("name")
	if !ok {
		return Info{}, errors.New("missing or malformed \"name\"")
	}
	pieceLength, ok := d.GetInt("piece length")
	if !ok || pieceLength <= 0 {
		return Info{}, errors.New("missing or non-positive \"piece length\"")
	}
	length, ok := d.GetInt("length")
	if !ok || length < 0 {
		return Info{}, errors.New("missing or negative \"length\"")
	}
	rawPieces, ok := d.GetString("pieces")
	if !ok {
		return Info{}, errors.New("missing or malformed \"pieces\"")
	}
	if len(rawPieces)%PieceHashSize != 0 {
		return Info{}, fmt.Errorf("\"pieces\" length %d is not a multiple of %d", len(rawPieces), PieceHashSize)
	}
	pieces := make([][PieceHashSize]byte, len(rawPieces)/PieceHashSize)
	for i := range pieces {
		copy(pieces[i][:], rawPieces[i*PieceHashSize:(i+1)*PieceHashSize])
	}
	want := numPieces(length, pieceLength)
	if len(pieces) != want {
		return Info{}, fmt.Errorf("expected %d pieces for length=%d piece_length=%d, got %d",
			want, length, pieceLength, len(pieces))
	}
	return Info{
		Name:        string(name),
		PieceLength: pieceLength,
		Length:      length,
		Pieces:      pieces,
	}, nil
}

// numPieces returns ceil(length / pieceLength).
func numPieces(length, pieceLength int64) int {
	if length == 0 {
		return 0
	}
	return int((length + pieceLength - 1) / pieceLength)
}

// NewInfo hashes blob into pieceLength-sized pieces and builds an Info
// describing it.
func NewInfo(name string, blob io.Reader, pieceLength int64) (Info, error) {
	if pieceLength <= 0 {
		return Info{}, errors.New("piece length must be positive")
	}
	length, pieces, err := calcPieceHashes(blob, pieceLength)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Name:        name,
		PieceLength: pieceLength,
		Length:      length,
		Pieces:      pieces,
	}, nil
}

// calcPieceHashes hashes blob content in pieceLength chunks, producing the
// SHA-1 digest of each piece.
func calcPieceHashes(blob io.Reader, pieceLength int64) (length int64, pieces [][PieceHashSize]byte, err error) {
	for {
		h := sha1.New()
		n, err := io.CopyN(h, blob, pieceLength)
		if err != nil && err != io.EOF {
			return 0, nil, fmt.Errorf("read blob: %s", err)
		}
		length += n
		if n == 0 {
			break
		}
		var sum [PieceHashSize]byte
		copy(sum[:], h.Sum(nil))
		pieces = append(pieces, sum)
		if n < pieceLength {
			break
		}
	}
	return length, pieces, nil
}
