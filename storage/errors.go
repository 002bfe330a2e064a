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
package storage

import (
	"errors"
	"fmt"
)

// ErrInvalidPieceIndex is returned when a piece index is out of range.
var ErrInvalidPieceIndex = errors.New("storage: invalid piece index")

// InvalidPieceLengthError is returned by WritePiece when the supplied data
// does not match the piece's expected length.
type InvalidPieceLengthError struct {
	Index    int
	Expected int64
	Got      int64
}

func (e *InvalidPieceLengthError) Error() string {
	return fmt.Sprintf("storage: piece %d: expected length %d, got %d", e.Index, e.Expected, e.Got)
}
