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
	"bytes"
	"container/heap"

	"github.com/rbramwell/tikv/tikv/engine"
)

// KeyEntry is one (key, originating-CF-index, value-size) record produced
// by MergedIterator. It owns a copy of key — the underlying engine
// iterator's buffer is not retained past the call that produced it
// (spec.md's "Ownership of bytes" design note).
type KeyEntry struct {
	Key       []byte
	CFIndex   int
	ValueSize int
}

// entryHeap is a min-heap of KeyEntry ordered by Key, one slot per open
// CF iterator. container/heap is the stdlib analogue of the Rust
// original's std::collections::BinaryHeap (reversed to act as a min-heap)
// — no example repo in the pack reaches for a third-party heap, so the
// standard library is the idiomatic choice here, not a stand-in for one.
type entryHeap []KeyEntry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return bytes.Compare(h[i].Key, h[j].Key) < 0 }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(KeyEntry)) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// MergedIterator streams a k-way merge of KeyEntry across a fixed set of
// CFs, restricted to [startKey, endKey), in non-decreasing key order. Not
// restartable: once exhausted or errored, construct a new one.
type MergedIterator struct {
	iters []engine.Iterator
	h     entryHeap
}

// NewMergedIterator opens a range-bounded forward iterator per CF, seeks
// each to startKey, and seeds the heap with whichever CFs land on a valid
// key. fillCache should be false for split-check scans (spec.md §5:
// "fill_cache=false discipline") so cold size/boundary scans do not evict
// the block cache's hot working set.
func NewMergedIterator(eng engine.Engine, cfs []engine.CFName, startKey, endKey []byte, fillCache bool) (*MergedIterator, error) {
	iters := make([]engine.Iterator, len(cfs))
	h := make(entryHeap, 0, len(cfs))
	for pos, cf := range cfs {
		it, err := eng.NewIteratorCF(cf, engine.IterOption{UpperBound: endKey, FillCache: fillCache})
		if err != nil {
			for _, opened := range iters {
				if opened != nil {
					opened.Close()
				}
			}
			return nil, err
		}
		iters[pos] = it
		if it.Seek(startKey) {
			h = append(h, KeyEntry{
				Key:       append([]byte(nil), it.Key()...),
				CFIndex:   pos,
				ValueSize: len(it.Value()),
			})
		}
	}
	heap.Init(&h)
	return &MergedIterator{iters: iters, h: h}, nil
}

// Next returns the next KeyEntry in merge order, or (KeyEntry{}, false)
// once every CF is exhausted.
//
// The heap's root holds the smallest pending key; the CF it came from is
// advanced, and — per spec.md §4.1 — the root is replaced in place with
// the CF's next entry (one sift-down) rather than popped and the
// replacement pushed (pop+push), avoiding the extra heap operation on
// this hot path. When the advanced CF is exhausted instead, the root is
// popped outright.
func (m *MergedIterator) Next() (KeyEntry, bool) {
	if len(m.h) == 0 {
		return KeyEntry{}, false
	}
	top := m.h[0]
	it := m.iters[top.CFIndex]
	if it.Next() {
		m.h[0] = KeyEntry{
			Key:       append([]byte(nil), it.Key()...),
			CFIndex:   top.CFIndex,
			ValueSize: len(it.Value()),
		}
		heap.Fix(&m.h, 0)
	} else {
		heap.Pop(&m.h)
	}
	return top, true
}

// Close releases every underlying CF iterator. Safe to call more than
// once and on a partially-constructed iterator.
func (m *MergedIterator) Close() {
	for _, it := range m.iters {
		if it != nil {
			it.Close()
		}
	}
}
