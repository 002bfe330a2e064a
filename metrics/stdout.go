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
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/uber-go/tally"
)

// newStdoutScope builds a scope that prints every reported metric to
// stdout, for a single local run with no statsd daemon around to send to.
func newStdoutScope(Config) (tally.Scope, io.Closer, error) {
	s, c := tally.NewRootScope(tally.ScopeOptions{
		Reporter: stdoutReporter{},
	}, time.Second)
	return s, c, nil
}

type stdoutReporter struct{}

func (r stdoutReporter) ReportCounter(name string, _ map[string]string, value int64) {
	fmt.Printf("count %s %d\n", name, value)
}

func (r stdoutReporter) ReportGauge(name string, _ map[string]string, value float64) {
	fmt.Printf("gauge %s %f\n", name, value)
}

func (r stdoutReporter) ReportTimer(name string, _ map[string]string, interval time.Duration) {
	fmt.Printf("timer %s %s\n", name, interval)
}

func (r stdoutReporter) ReportHistogramValueSamples(
	name string, _ map[string]string, _ tally.Buckets, lower, upper float64, samples int64) {
	fmt.Printf("histogram %s bucket lower %f upper %f samples %d\n", name, lower, upper, samples)
}

func (r stdoutReporter) ReportHistogramDurationSamples(
	name string, _ map[string]string, _ tally.Buckets, lower, upper time.Duration, samples int64) {
	fmt.Printf("histogram %s bucket lower %v upper %v samples %d\n", name, lower, upper, samples)
}

func (r stdoutReporter) Capabilities() tally.Capabilities { return r }
func (r stdoutReporter) Reporting() bool                  { return true }
func (r stdoutReporter) Tagging() bool                    { return false }
func (r stdoutReporter) Flush()                           {}
