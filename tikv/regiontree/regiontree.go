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

// Package regiontree indexes a store's regions by start key, so a node
// can find the region owning an arbitrary key without a linear scan.
// Several sibling packages in this lineage (e.g. unistore's own
// tikv/regiontree) keep exactly this kind of structure next to the
// region map; this is the Go-btree-backed version of the same idea.
package regiontree

import (
	"bytes"

	"github.com/google/btree"
	"github.com/pingcap/kvproto/pkg/metapb"
)

// regionItem adapts a *metapb.Region to btree.Item, ordering by start key.
type regionItem struct {
	region *metapb.Region
}

func (i *regionItem) Less(other btree.Item) bool {
	return bytes.Compare(i.region.GetStartKey(), other.(*regionItem).region.GetStartKey()) < 0
}

// RegionTree indexes regions by start key for point and range lookups.
// Not safe for concurrent use without an external lock; callers (e.g.
// tikv.Server) already serialize region-set mutation behind their own
// mutex.
type RegionTree struct {
	tree *btree.BTree
}

// NewRegionTree builds an empty tree with btree's usual degree.
func NewRegionTree() *RegionTree {
	return &RegionTree{tree: btree.New(32)}
}

// Put inserts region, replacing any region already stored under the same
// start key.
func (t *RegionTree) Put(region *metapb.Region) {
	t.tree.ReplaceOrInsert(&regionItem{region: region})
}

// Delete removes the region with the given start key, if present.
func (t *RegionTree) Delete(startKey []byte) {
	t.tree.Delete(&regionItem{region: &metapb.Region{StartKey: startKey}})
}

// GetRegionByKey returns the region whose [start, end) span contains key,
// or nil if none does.
func (t *RegionTree) GetRegionByKey(key []byte) *metapb.Region {
	var found *metapb.Region
	t.tree.DescendLessOrEqual(&regionItem{region: &metapb.Region{StartKey: key}}, func(item btree.Item) bool {
		r := item.(*regionItem).region
		if bytes.Compare(r.GetStartKey(), key) <= 0 &&
			(len(r.GetEndKey()) == 0 || bytes.Compare(key, r.GetEndKey()) < 0) {
			found = r
		}
		return false
	})
	return found
}

// Ascend calls fn for every region in start-key order until fn returns
// false. Used to drive a periodic split-check sweep over every region a
// store serves.
func (t *RegionTree) Ascend(fn func(region *metapb.Region) bool) {
	t.tree.Ascend(func(item btree.Item) bool {
		return fn(item.(*regionItem).region)
	})
}

// Len reports how many regions the tree currently holds.
func (t *RegionTree) Len() int {
	return t.tree.Len()
}
