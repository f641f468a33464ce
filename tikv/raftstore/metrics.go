// Copyright 2019-present PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package raftstore

import "github.com/prometheus/client_golang/prometheus"

// The metric family named in spec.md §6: a side channel, not part of the
// core's contractual output, but real (not stubbed) because the end-to-end
// scenarios in spec.md §8 are described in terms of it firing.
var (
	checkSplitCounterVec = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tikv",
			Subsystem: "raftstore",
			Name:      "check_split_total",
			Help:      "Counts of split-check task outcomes.",
		},
		[]string{"result"},
	)

	checkSplitHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tikv",
			Subsystem: "raftstore",
			Name:      "check_split_duration_seconds",
			Help:      "Split-check scan duration.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		},
	)

	regionSizeHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tikv",
			Subsystem: "raftstore",
			Name:      "region_approximate_size_bytes",
			Help:      "Observed approximate region sizes.",
			Buckets:   prometheus.ExponentialBuckets(1<<10, 2, 24),
		},
	)
)

func init() {
	prometheus.MustRegister(checkSplitCounterVec, checkSplitHistogram, regionSizeHistogram)
}
