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

// Package cmd implements the goleech command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configFile string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "goleech",
		Short: "goleech downloads a single-file torrent as a leech, without ever seeding.",
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configFile, "config", "", "", "configuration file path")
	rootCmd.PersistentFlags().BoolVarP(
		&debug, "debug", "", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
}

// Execute runs the goleech root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
