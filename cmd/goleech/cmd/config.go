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
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/uber/goleech/metrics"
	"github.com/uber/goleech/scheduler"
)

// Config defines goleech's top-level configuration.
type Config struct {
	Scheduler scheduler.Config `yaml:"scheduler"`
	Metrics   metrics.Config   `yaml:"metrics"`
}

// loadConfig reads and parses path into a Config. An empty path returns the
// zero Config, which every nested Config.applyDefaults fills in on its own.
func loadConfig(path string) (Config, error) {
	var config Config
	if path == "" {
		return config, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read config: %s", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse config: %s", err)
	}
	return config, nil
}
