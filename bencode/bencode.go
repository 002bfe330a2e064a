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

// Package bencode implements a single-pass recursive-descent bencode codec.
//
// Unlike a reflection-based marshaler, this codec works directly on the
// four concrete bencode types (byte string, integer, list, dict) so that the
// info-hash can be computed over the exact bytes a peer or tracker produced,
// rather than over a re-serialization that merely claims to be equivalent.
package bencode

import "math/big"

// Value is any decoded bencode value: []byte (string), *big.Int (integer),
// List, or *Dict.
type Value interface{}

// List is a decoded bencode list.
type List []Value

// Dict is a decoded bencode dict. Keys are byte strings, tracked in the order
// they were decoded (ascending, as the grammar requires) or inserted by Set,
// along with the raw encoded
// bytes of each value so that callers who need the original bytes of a
// sub-value (e.g. the info-hash source) don't have to re-encode it.
type Dict struct {
	order  []string
	values map[string]Value
	raw    map[string][]byte
}

// NewDict creates an empty Dict, for building values to encode.
func NewDict() *Dict {
	return &Dict{values: make(map[string]Value)}
}

// Set inserts or overwrites key with value. Set does not enforce ordering;
// Encode sorts keys ascending regardless of insertion order.
func (d *Dict) Set(key string, v Value) {
	if d.values == nil {
		d.values = make(map[string]Value)
	}
	if _, ok := d.values[key]; !ok {
		d.order = append(d.order, key)
	}
	d.values[key] = v
}

// Get returns the value for key and whether it was present.
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the dict's keys in the order they were parsed (or inserted).
func (d *Dict) Keys() []string {
	return d.order
}

// Raw returns the raw bencoded bytes of the value stored at key, as sliced
// directly from the buffer that was decoded. Only populated by Decode.
func (d *Dict) Raw(key string) ([]byte, bool) {
	b, ok := d.raw[key]
	return b, ok
}

func (d *Dict) setRaw(key string, raw []byte) {
	if d.raw == nil {
		d.raw = make(map[string][]byte)
	}
	d.raw[key] = raw
}

// GetString is a convenience accessor for a byte-string value.
func (d *Dict) GetString(key string) ([]byte, bool) {
	v, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// GetInt is a convenience accessor for an integer value, requiring it fit in
// an int64.
func (d *Dict) GetInt(key string) (int64, bool) {
	v, ok := d.Get(key)
	if !ok {
		return 0, false
	}
	i, ok := v.(*big.Int)
	if !ok || !i.IsInt64() {
		return 0, false
	}
	return i.Int64(), true
}

// GetList is a convenience accessor for a list value.
func (d *Dict) GetList(key string) (List, bool) {
	v, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	l, ok := v.(List)
	return l, ok
}

// GetDict is a convenience accessor for a dict value.
func (d *Dict) GetDict(key string) (*Dict, bool) {
	v, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	sub, ok := v.(*Dict)
	return sub, ok
}
