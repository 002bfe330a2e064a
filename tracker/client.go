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
package tracker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/uber/goleech/bencode"
	"github.com/uber/goleech/core"
)

// Config configures a Client.
type Config struct {
	Timeout time.Duration `yaml:"timeout"`
}

func (c Config) applyDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Client issues announce requests against a single torrent's tracker.
type Client struct {
	config Config
	http   *http.Client
}

// New creates a Client.
func New(config Config) *Client {
	config = config.applyDefaults()
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

// AnnounceRequest describes the parameters of an announce GET.
type AnnounceRequest struct {
	InfoHash   core.InfoHash
	PeerID     core.PeerID
	Port       uint16
	Uploaded   int64
	Downloaded int64
	Left       int64
}

// Response is the result of a successful announce.
type Response struct {
	Peers []core.PeerInfo
	// Interval is the tracker's requested re-announce interval. Parsed for
	// forward compatibility; no re-announce loop consumes it yet (see
	// Open Question (c)).
	Interval time.Duration
}

// Announce issues an HTTP GET to announceURL with a manually percent-encoded
// query string, bypassing any library requoting so that the binary
// info_hash and peer_id fields round-trip exactly, and decodes the bencoded
// peer list from the response.
func (c *Client) Announce(ctx context.Context, announceURL string, req AnnounceRequest) (*Response, error) {
	u := announceURL + "?" + buildQuery(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, newError("build request: %s", err)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, newError("do request: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError("non-2xx response: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError("read response: %s", err)
	}

	out, err := parseAnnounceResponse(body)
	if err != nil {
		return nil, newError("parse response: %s", err)
	}
	return out, nil
}

// buildQuery builds the announce query string by hand. net/url's
// Values.Encode would requote info_hash/peer_id through url.QueryEscape,
// which is not guaranteed to produce the canonical percent-encoding trackers
// expect for arbitrary binary data (notably, Go's QueryEscape escapes space
// as "+" rather than "%20"). Building the string ourselves guarantees every
// byte round-trips exactly.
func buildQuery(req AnnounceRequest) string {
	var b strings.Builder
	b.WriteString("info_hash=")
	b.WriteString(percentEncode(req.InfoHash.Bytes()))
	b.WriteString("&peer_id=")
	b.WriteString(percentEncode(req.PeerID[:]))
	fmt.Fprintf(&b, "&port=%d", req.Port)
	fmt.Fprintf(&b, "&uploaded=%d", req.Uploaded)
	fmt.Fprintf(&b, "&downloaded=%d", req.Downloaded)
	fmt.Fprintf(&b, "&left=%d", req.Left)
	b.WriteString("&event=started")
	b.WriteString("&compact=1")
	return b.String()
}

// percentEncode encodes b per RFC 3986's unreserved set (ALPHA / DIGIT / "-"
// / "." / "_" / "~"); every other byte, including ones that happen to look
// like printable ASCII, is escaped as %XX so that raw 20-byte hash values
// round-trip byte-for-byte.
func percentEncode(b []byte) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	for _, c := range b {
		if isUnreserved(c) {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('%')
			sb.WriteByte(hex[c>>4])
			sb.WriteByte(hex[c&0xF])
		}
	}
	return sb.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	default:
		return false
	}
}

// parseAnnounceResponse decodes a bencoded tracker response into the union
// of its non-compact, compact IPv4, and compact IPv6 peer lists.
func parseAnnounceResponse(body []byte) (*Response, error) {
	v, err := bencode.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode: %s", err)
	}
	d, ok := v.(*bencode.Dict)
	if !ok {
		return nil, fmt.Errorf("top-level value is not a dict")
	}

	if reason, ok := d.GetString("failure reason"); ok {
		return nil, fmt.Errorf("tracker failure: %s", reason)
	}

	var peers []core.PeerInfo

	peersVal, ok := d.Get("peers")
	if !ok {
		return nil, fmt.Errorf("missing \"peers\"")
	}
	switch t := peersVal.(type) {
	case []byte:
		ps, err := parseCompactIPv4(t)
		if err != nil {
			return nil, err
		}
		peers = append(peers, ps...)
	case bencode.List:
		ps, err := parseNonCompact(t)
		if err != nil {
			return nil, err
		}
		peers = append(peers, ps...)
	default:
		return nil, fmt.Errorf("\"peers\" has unexpected type %T", peersVal)
	}

	if raw, ok := d.GetString("peers6"); ok {
		ps, err := parseCompactIPv6(raw)
		if err != nil {
			return nil, err
		}
		peers = append(peers, ps...)
	}

	var interval time.Duration
	if secs, ok := d.GetInt("interval"); ok {
		interval = time.Duration(secs) * time.Second
	}

	return &Response{Peers: peers, Interval: interval}, nil
}

func parseNonCompact(list bencode.List) ([]core.PeerInfo, error) {
	var peers []core.PeerInfo
	for _, item := range list {
		d, ok := item.(*bencode.Dict)
		if !ok {
			return nil, fmt.Errorf("non-compact peer entry is not a dict")
		}
		ip, ok := d.GetString("ip")
		if !ok {
			return nil, fmt.Errorf("non-compact peer entry missing \"ip\"")
		}
		port, ok := d.GetInt("port")
		if !ok {
			return nil, fmt.Errorf("non-compact peer entry missing \"port\"")
		}
		peers = append(peers, core.NewPeerInfo(string(ip), uint16(port)))
	}
	return peers, nil
}

func parseCompactIPv4(raw []byte) ([]core.PeerInfo, error) {
	if len(raw)%6 != 0 {
		return nil, fmt.Errorf("compact ipv4 peers length %d is not a multiple of 6", len(raw))
	}
	var peers []core.PeerInfo
	for i := 0; i < len(raw); i += 6 {
		ip := fmt.Sprintf("%d.%d.%d.%d", raw[i], raw[i+1], raw[i+2], raw[i+3])
		port := uint16(raw[i+4])<<8 | uint16(raw[i+5])
		peers = append(peers, core.NewPeerInfo(ip, port))
	}
	return peers, nil
}

func parseCompactIPv6(raw []byte) ([]core.PeerInfo, error) {
	if len(raw)%18 != 0 {
		return nil, fmt.Errorf("compact ipv6 peers length %d is not a multiple of 18", len(raw))
	}
	var peers []core.PeerInfo
	for i := 0; i < len(raw); i += 18 {
		groups := make([]string, 8)
		for g := 0; g < 8; g++ {
			groups[g] = fmt.Sprintf("%x", uint16(raw[i+g*2])<<8|uint16(raw[i+g*2+1]))
		}
		ip := strings.Join(groups, ":")
		port := uint16(raw[i+16])<<8 | uint16(raw[i+17])
		peers = append(peers, core.NewPeerInfo(ip, port))
	}
	return peers, nil
}
