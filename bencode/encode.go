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
package bencode

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"strconv"
)

// Encode serializes v into its canonical bencoded form. Dict keys are always
// emitted in ascending order regardless of insertion order, so that
// Encode(Decode(x)) == x for any canonically-encoded x.
func Encode(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeInto(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeInto(buf *bytes.Buffer, v Value) error {
	switch t := v.(type) {
	case []byte:
		buf.WriteString(strconv.Itoa(len(t)))
		buf.WriteByte(':')
		buf.Write(t)
	case string:
		buf.WriteString(strconv.Itoa(len(t)))
		buf.WriteByte(':')
		buf.WriteString(t)
	case *big.Int:
		buf.WriteByte('i')
		buf.WriteString(t.String())
		buf.WriteByte('e')
	case int:
		buf.WriteByte('i')
		buf.WriteString(strconv.Itoa(t))
		buf.WriteByte('e')
	case int64:
		buf.WriteByte('i')
		buf.WriteString(strconv.FormatInt(t, 10))
		buf.WriteByte('e')
	case List:
		buf.WriteByte('l')
		for _, item := range t {
			if err := encodeInto(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte('e')
	case *Dict:
		buf.WriteByte('d')
		keys := append([]string(nil), t.order...)
		sort.Strings(keys)
		for _, k := range keys {
			val, _ := t.Get(k)
			if err := encodeInto(buf, []byte(k)); err != nil {
				return err
			}
			if err := encodeInto(buf, val); err != nil {
				return err
			}
		}
		buf.WriteByte('e')
	default:
		return fmt.Errorf("bencode: cannot encode value of type %T", v)
	}
	return nil
}
