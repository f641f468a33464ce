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

import (
	"github.com/pingcap/kvproto/pkg/metapb"
	"github.com/rbramwell/tikv/tikv/coprocessor/codec/table"
	"github.com/rbramwell/tikv/tikv/engine"
)

// TableBoundaryChecker is the priority checker example spec.md names
// throughout §4.5 and §9: it prefers splitting at a table boundary over
// the default size policy, even in a slightly undersized region. Grounded
// on original_source/.../split_check.rs's test-only SplitTableChecker.
type TableBoundaryChecker struct {
	// firstTable is the table id of the first key fed this task; it is
	// meaningful only once seenFirst is true.
	firstTable int64
	seenFirst  bool
}

// NewTableBoundaryChecker builds a priority checker with no state.
func NewTableBoundaryChecker() *TableBoundaryChecker {
	return &TableBoundaryChecker{}
}

func (c *TableBoundaryChecker) Name() string { return "TableBoundaryChecker" }

// PreCheck skips the scan iff the probed bounds decode to the same table
// id, or either bound does not look like a table key at all — in both
// cases no table boundary can possibly lie within the range, so there is
// nothing for a scan to find (spec.md §4.2's stated purpose for
// BoundsProbe: "the table-boundary checker skips the scan if min and max
// share the same table prefix").
func (c *TableBoundaryChecker) PreCheck(_ *metapb.Region, bounds *Bounds) bool {
	if bounds == nil {
		return true
	}
	minTable, minOK := table.DecodeTableID(engine.OriginKey(bounds.Min))
	maxTable, maxOK := table.DecodeTableID(engine.OriginKey(bounds.Max))
	if !minOK || !maxOK {
		return true
	}
	return minTable == maxTable
}

// Feed tracks the table id of the first key seen this task and, the
// moment a later key belongs to a different table, returns the new
// table's prefix (re-encoded in the same physical, data-prefixed form as
// the input — Runner.Run un-prefixes every checker's output uniformly)
// as the split point, rather than the row key that triggered the
// detection. Splitting exactly at a table's prefix (rather than at some
// arbitrary row within it) is deliberate: table-aligned regions are the
// whole point of this checker, and spec.md §8 scenario 5 names the
// emitted key as "the t3 table prefix", not a row under it. No weight
// accumulation is involved at all (spec.md §8 scenario 5: "chosen without
// any weight accumulation, by bounds inspection alone").
func (c *TableBoundaryChecker) Feed(key []byte, _ int) []byte {
	tableID, ok := table.DecodeTableID(engine.OriginKey(key))
	if !ok {
		return nil
	}
	if !c.seenFirst {
		c.firstTable = tableID
		c.seenFirst = true
		return nil
	}
	if tableID != c.firstTable {
		return engine.DataKey(table.GenTablePrefix(tableID))
	}
	return nil
}

func (c *TableBoundaryChecker) Finalize() {
	c.firstTable = 0
	c.seenFirst = false
}
