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

	"github.com/pkg/errors"
	"github.com/rbramwell/tikv/tikv/engine"
)

// Bounds is the result of a BoundsProbe: the smallest and largest key
// observed across any CF in the probed range.
type Bounds struct {
	Min []byte
	Max []byte
}

// BoundsProbe is a cheap span probe (spec.md §4.2): for each CF, seek
// forward to startKey for the minimum and to the end of the range for the
// maximum, then fold across CFs with min/max. Returns (nil, false) if
// every CF is empty in the range. Returns an error if exactly one of
// min/max was found across all CFs — that can only happen if an
// iterator's view of a CF is internally inconsistent.
func BoundsProbe(eng engine.Engine, cfs []engine.CFName, startKey, endKey []byte) (*Bounds, error) {
	var minKey, maxKey []byte
	haveMin, haveMax := false, false

	for _, cf := range cfs {
		minIt, err := eng.NewIteratorCF(cf, engine.IterOption{UpperBound: endKey, FillCache: false})
		if err != nil {
			return nil, err
		}
		var key []byte
		if minIt.Seek(startKey) {
			key = append([]byte(nil), minIt.Key()...)
		} else if minIt.Next() {
			// Covers the edge case where the seek landed exactly at the
			// upper bound and nothing in [startKey, endKey) was found by
			// Seek alone but a subsequent Next still could (spec.md
			// §4.2).
			key = append([]byte(nil), minIt.Key()...)
		}
		minIt.Close()
		if key != nil {
			if !haveMin || bytes.Compare(key, minKey) < 0 {
				minKey = key
			}
			haveMin = true
		}

		maxIt, err := eng.NewIteratorCF(cf, engine.IterOption{UpperBound: endKey, FillCache: false})
		if err != nil {
			return nil, err
		}
		var lastKey []byte
		if maxIt.SeekToEnd() {
			lastKey = append([]byte(nil), maxIt.Key()...)
		}
		maxIt.Close()
		if lastKey != nil {
			if !haveMax || bytes.Compare(lastKey, maxKey) > 0 {
				maxKey = lastKey
			}
			haveMax = true
		}
	}

	switch {
	case haveMin && haveMax:
		return &Bounds{Min: minKey, Max: maxKey}, nil
	case !haveMin && !haveMax:
		return nil, nil
	default:
		return nil, errors.Errorf("invalid bounds: min present=%v, max present=%v", haveMin, haveMax)
	}
}
