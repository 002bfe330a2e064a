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
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeConcreteExample(t *testing.T) {
	v, err := Decode([]byte("d3:cow3:moo4:spam4:eggse"))
	require.NoError(t, err)

	d, ok := v.(*Dict)
	require.True(t, ok)

	cow, ok := d.GetString("cow")
	require.True(t, ok)
	require.Equal(t, "moo", string(cow))

	spam, ok := d.GetString("spam")
	require.True(t, ok)
	require.Equal(t, "eggs", string(spam))
}

func TestRoundTripConcreteExample(t *testing.T) {
	input := []byte("d3:cow3:moo4:spam4:eggse")
	v, err := Decode(input)
	require.NoError(t, err)

	out, err := Encode(v)
	require.NoError(t, err)
	require.Equal(t, input, out)
}

func TestRoundTripCanonicalInputs(t *testing.T) {
	inputs := []string{
		"4:spam",
		"0:",
		"i3e",
		"i-3e",
		"i0e",
		"le",
		"li1ei2ei3ee",
		"d3:agei18e4:name4:bobe",
		"d1:lld1:ai1eeee",
		"i604919719469385652980544193299329427705624352086e",
	}
	for _, in := range inputs {
		v, err := Decode([]byte(in))
		require.NoError(t, err, in)
		out, err := Encode(v)
		require.NoError(t, err, in)
		require.Equal(t, in, string(out), in)
	}
}

func TestDecodeInteger(t *testing.T) {
	v, err := Decode([]byte("i57e"))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(57), v)
}

func TestDecodeRejections(t *testing.T) {
	cases := map[string]ErrorKind{
		"i-0e":    NegativeZero,
		"i03e":    LeadingZero,
		"03:abc":  LeadingZero,
		"d2:bb3:one2:aa3:twoe": NonCanonicalKeyOrder,
		"d2:aa3:one2:aa3:twoe": NonCanonicalKeyOrder,
		"di5e3:fooe":           BadDictKeyType,
		"4:spamX":              TrailingBytes,
		"i":                    UnexpectedEOF,
		"5:ab":                 UnexpectedEOF,
	}
	for in, wantKind := range cases {
		_, err := Decode([]byte(in))
		require.Error(t, err, in)
		de, ok := err.(*DecodeError)
		require.True(t, ok, in)
		require.Equal(t, wantKind, de.Kind, in)
	}
}

func TestDictRawSpan(t *testing.T) {
	raw := []byte("d4:infod4:name3:fooee")
	v, err := Decode(raw)
	require.NoError(t, err)

	d := v.(*Dict)
	infoRaw, ok := d.Raw("info")
	require.True(t, ok)
	require.Equal(t, "d4:name3:fooe", string(infoRaw))

	// The raw span, re-decoded, equals the canonical re-encoding of the
	// sub-value: this is what makes strategy (a) (hash the raw span) safe.
	sub, ok := d.GetDict("info")
	require.True(t, ok)
	reEncoded, err := Encode(sub)
	require.NoError(t, err)
	require.Equal(t, infoRaw, reEncoded)
}
