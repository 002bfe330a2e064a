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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/uber/goleech/core"
	"github.com/uber/goleech/metrics"
	"github.com/uber/goleech/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run <torrent-file> <output-path>",
	Short: "download a single-file torrent as a leech",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		if err := run(args[0], args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func run(torrentPath, outputPath string) error {
	config, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(debug)
	if err != nil {
		return fmt.Errorf("init logger: %s", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	stats, closer, err := metrics.New(config.Metrics)
	if err != nil {
		return fmt.Errorf("init metrics: %s", err)
	}
	defer closer.Close()

	data, err := os.ReadFile(torrentPath)
	if err != nil {
		return fmt.Errorf("read torrent file: %s", err)
	}
	mi, err := core.LoadMetaInfo(data)
	if err != nil {
		return fmt.Errorf("parse torrent file: %s", err)
	}

	s, err := scheduler.New(outputPath, mi, config.Scheduler, nil, stats, sugar)
	if err != nil {
		return fmt.Errorf("init scheduler: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		sugar.Info("Received shutdown signal")
		cancel()
	}()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	bar := newProgressBar(mi.Length(), mi.Name())
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			bar.Finish()
			return err
		case <-ticker.C:
			snap := s.Snapshot()
			bar.Set64(snap.BytesDown)
		}
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newProgressBar(total int64, name string) *progressbar.ProgressBar {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return progressbar.DefaultBytesSilent(total, name)
	}
	return progressbar.DefaultBytes(total, name)
}
