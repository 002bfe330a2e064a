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

// Package storage implements the file-backed piece store: layout arithmetic,
// piece verification, and piece read/write.
package storage

import (
	"crypto/sha1"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/uber/goleech/bitfield"
	"github.com/uber/goleech/core"
)

// PieceStore owns a single OS file sized exactly to the torrent's total
// length, and tracks which pieces currently hold verified data.
//
// Reads and writes go through ReadAt/WriteAt rather than Seek+Read/Write, so
// that concurrent piece writes (one per in-flight piece, per the leech
// scheduler's single-peer-per-piece fan-out) don't race on a shared file
// offset.
type PieceStore struct {
	mi    *core.MetaInfo
	file  *os.File
	saved *bitfield.Bitfield
	log   *zap.SugaredLogger
}

// Open opens (creating if absent) the file at path for the torrent described
// by mi, truncating it to mi.Length() if its current size differs, then
// verifies every piece already on disk.
func Open(path string, mi *core.MetaInfo, log *zap.SugaredLogger) (*PieceStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open: %s", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat: %s", err)
	}
	if info.Size() != mi.Length() {
		if err := f.Truncate(mi.Length()); err != nil {
			f.Close()
			return nil, fmt.Errorf("truncate: %s", err)
		}
	}
	s := &PieceStore{
		mi:    mi,
		file:  f,
		saved: bitfield.New(mi.NumPieces()),
		log:   log,
	}
	s.verifyAll()
	return s, nil
}

// verifyAll scans every piece sequentially, hashing it and comparing against
// the expected digest, populating the saved-pieces bitfield. I/O errors
// during this scan are not fatal: the affected piece is simply left unsaved
// and scanning continues.
func (s *PieceStore) verifyAll() {
	for i := 0; i < s.mi.NumPieces(); i++ {
		ok, err := s.verifyPiece(i)
		if err != nil {
			s.logf("piece %d: verify: %s", i, err)
			continue
		}
		s.saved.Set(i, ok)
	}
}

func (s *PieceStore) verifyPiece(i int) (bool, error) {
	length := s.mi.GetPieceLength(i)
	buf := make([]byte, length)
	if _, err := s.file.ReadAt(buf, s.offset(i)); err != nil {
		return false, err
	}
	sum := sha1.Sum(buf)
	return sum == s.mi.GetPieceHash(i), nil
}

func (s *PieceStore) offset(i int) int64 {
	return s.mi.PieceLength() * int64(i)
}

func (s *PieceStore) logf(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Infof(format, args...)
	}
}

// Has reports whether piece i has been verified on disk.
func (s *PieceStore) Has(i int) bool {
	return s.saved.Contains(i)
}

// Saved returns the bitfield of verified pieces, suitable for sending as a
// BITFIELD payload.
func (s *PieceStore) Saved() *bitfield.Bitfield {
	return s.saved
}

// ReadPiece reads the full contents of piece i.
func (s *PieceStore) ReadPiece(i int) ([]byte, error) {
	if i < 0 || i >= s.mi.NumPieces() {
		return nil, ErrInvalidPieceIndex
	}
	buf := make([]byte, s.mi.GetPieceLength(i))
	if _, err := s.file.ReadAt(buf, s.offset(i)); err != nil {
		return nil, fmt.Errorf("read piece %d: %s", i, err)
	}
	return buf, nil
}

// WritePiece writes the assembled bytes of piece i to disk. The caller (the
// leech scheduler) is responsible for having already verified the piece's
// hash; WritePiece only refuses data of the wrong length. On success the
// piece is flushed to durable storage and marked saved. I/O errors here are
// surfaced to the caller, which re-queues the piece.
func (s *PieceStore) WritePiece(i int, data []byte) error {
	if i < 0 || i >= s.mi.NumPieces() {
		return ErrInvalidPieceIndex
	}
	expected := s.mi.GetPieceLength(i)
	if int64(len(data)) != expected {
		return &InvalidPieceLengthError{Index: i, Expected: expected, Got: int64(len(data))}
	}
	if _, err := s.file.WriteAt(data, s.offset(i)); err != nil {
		return fmt.Errorf("write piece %d: %s", i, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("flush piece %d: %s", i, err)
	}
	s.saved.Set(i, true)
	return nil
}

// Close closes the underlying file.
func (s *PieceStore) Close() error {
	return s.file.Close()
}
