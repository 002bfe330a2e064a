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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPeerInfoEquatable(t *testing.T) {
	m := map[PeerInfo]bool{
		NewPeerInfo("127.0.0.1", 6881): true,
	}
	require.True(t, m[NewPeerInfo("127.0.0.1", 6881)])
	require.False(t, m[NewPeerInfo("127.0.0.1", 6882)])
}

func TestPeerInfoString(t *testing.T) {
	require.Equal(t, "127.0.0.1:6881", NewPeerInfo("127.0.0.1", 6881).String())
}
