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

import "github.com/pingcap/kvproto/pkg/metapb"

// Checker is a pluggable split policy: a cheap pre-check, a streaming
// fold over the scan, and a finalize step that resets it for reuse. The
// core holds a fixed built-in SizeChecker plus one optional priority
// checker — there is no registry of arbitrary checkers (spec.md §9,
// "Polymorphism").
type Checker interface {
	// Name is a short identifier used only in diagnostics.
	Name() string

	// PreCheck returns true to skip the streaming pass for this checker.
	// Side effects are permitted (SizeChecker emits ApproximateRegionSize
	// here). bounds may be nil if the region was empty across every CF.
	PreCheck(region *metapb.Region, bounds *Bounds) bool

	// Feed is called for every KeyEntry during the streaming pass, in
	// merge order, until it returns a non-nil split key or the stream
	// ends. The returned slice is a copy the checker owns; the caller
	// must not mutate the input key after Feed returns.
	Feed(key []byte, valueSize int) []byte

	// Finalize resets internal accumulators so the checker instance is
	// reusable for the next task.
	Finalize()
}
