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

// Package tracker implements the HTTP tracker client: announce requests and
// bencoded peer-list responses.
package tracker

import "fmt"

// Error is returned for any announce failure: transport failure, a
// non-2xx response, or malformed response body.
type Error struct {
	msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("tracker: %s", e.msg)
}

func newError(format string, args ...interface{}) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}
