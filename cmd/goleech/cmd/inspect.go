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
package cmd

import (
	"crypto/sha1"
	"fmt"
	"os"

	bencodego "github.com/jackpal/bencode-go"
	"github.com/spf13/cobra"

	"github.com/uber/goleech/core"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <torrent-file>",
	Short: "print a torrent file's metadata without downloading it",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		if err := inspect(args[0]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

// torrentFile is a loose, display-only view of a single-file torrent,
// decoded independently of the info-hash-critical bencode/core path. The
// info hash itself still comes from core.LoadMetaInfo, so inspect fails on
// any file that the strict path rejects.
type torrentFile struct {
	Announce string `bencode:"announce"`
	Info     struct {
		Name        string `bencode:"name"`
		Length      int64  `bencode:"length"`
		PieceLength int64  `bencode:"piece length"`
		Pieces      string `bencode:"pieces"`
	} `bencode:"info"`
}

func inspect(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open: %s", err)
	}
	defer f.Close()

	var tf torrentFile
	if err := bencodego.Unmarshal(f, &tf); err != nil {
		return fmt.Errorf("decode: %s", err)
	}

	numPieces := len(tf.Info.Pieces) / sha1.Size

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %s", err)
	}
	mi, err := core.LoadMetaInfo(data)
	if err != nil {
		return fmt.Errorf("compute info hash: %s", err)
	}

	fmt.Printf("name:          %s\n", tf.Info.Name)
	fmt.Printf("announce:      %s\n", tf.Announce)
	fmt.Printf("length:        %d\n", tf.Info.Length)
	fmt.Printf("piece length:  %d\n", tf.Info.PieceLength)
	fmt.Printf("piece count:   %d\n", numPieces)
	fmt.Printf("info hash:     %s\n", mi.InfoHash())
	return nil
}
