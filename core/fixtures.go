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
	"fmt"
	"math/rand"
)

// BlobFixture joins all information associated with a randomly generated
// blob for testing convenience.
type BlobFixture struct {
	Content  []byte
	MetaInfo *MetaInfo
}

// Length returns the length of the blob.
func (f *BlobFixture) Length() int64 {
	return int64(len(f.Content))
}

// SizedBlobFixture creates a randomly generated BlobFixture of the given
// size with the given piece length.
func SizedBlobFixture(size uint64, pieceLength uint64) *BlobFixture {
	b := randomBytes(int(size))
	info, err := NewInfo(fmt.Sprintf("blob-%x", randomBytes(8)), bytes.NewReader(b), int64(pieceLength))
	if err != nil {
		panic(err)
	}
	mi, err := NewMetaInfo("http://tracker.example/announce", info)
	if err != nil {
		panic(err)
	}
	return &BlobFixture{
		Content:  b,
		MetaInfo: mi,
	}
}

// NewBlobFixture creates a randomly generated BlobFixture.
func NewBlobFixture() *BlobFixture {
	return SizedBlobFixture(256, 8)
}

// PeerIDFixture returns a randomly generated PeerID.
func PeerIDFixture() PeerID {
	p, err := RandomPeerID()
	if err != nil {
		panic(err)
	}
	return p
}

// PeerInfoFixture returns a randomly generated PeerInfo.
func PeerInfoFixture() PeerInfo {
	return NewPeerInfo(randomIP(), randomPort())
}

// MetaInfoFixture returns a randomly generated MetaInfo.
func MetaInfoFixture() *MetaInfo {
	return NewBlobFixture().MetaInfo
}

// InfoHashFixture returns a randomly generated InfoHash.
func InfoHashFixture() InfoHash {
	return MetaInfoFixture().InfoHash()
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}

func randomIP() string {
	return fmt.Sprintf("%d.%d.%d.%d", rand.Intn(256), rand.Intn(256), rand.Intn(256), rand.Intn(256))
}

func randomPort() uint16 {
	return uint16(1024 + rand.Intn(64000))
}
