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
	"github.com/ngaut/log"
	"github.com/pingcap/kvproto/pkg/metapb"
	"github.com/rbramwell/tikv/tikv/engine"
)

// SizeChecker is the built-in split checker: it splits when accumulated
// byte weight crosses region_max_size, at the first key that crossed
// split_size (spec.md §4.4). 0 < split_size < region_max_size.
type SizeChecker struct {
	engine        engine.Engine
	ch            *Router
	regionMaxSize uint64
	splitSize     uint64

	splitKey    []byte
	currentSize uint64
}

// NewSizeChecker builds a SizeChecker against eng, publishing
// ApproximateRegionSize observations to ch.
func NewSizeChecker(eng engine.Engine, ch *Router, regionMaxSize, splitSize uint64) *SizeChecker {
	return &SizeChecker{
		engine:        eng,
		ch:            ch,
		regionMaxSize: regionMaxSize,
		splitSize:     splitSize,
	}
}

func (c *SizeChecker) Name() string { return "SizeChecker" }

// PreCheck queries the engine's approximate size, publishes it
// unconditionally, and skips the scan iff the region is still under
// region_max_size. An engine error also skips the scan: without a
// trustworthy size there is nothing to justify the expensive pass
// (spec.md §4.4).
func (c *SizeChecker) PreCheck(region *metapb.Region, _ *Bounds) bool {
	regionID := region.GetId()
	size, err := c.engine.ApproximateSize(region)
	if err != nil {
		log.Errorf("[region %d] failed to get approximate size: %v", regionID, err)
		return true
	}

	c.ch.send(regionID, Msg{
		Type:     MsgTypeApproximateRegionSize,
		RegionID: regionID,
		Data:     &ApproximateRegionSize{RegionID: regionID, RegionSize: size},
	})
	regionSizeHistogram.Observe(float64(size))

	if size < c.regionMaxSize {
		return true
	}
	log.Infof("[region %d] approximate size %d >= %d, need to do split check", regionID, size, c.regionMaxSize)
	return false
}

// Feed maintains current_size as a running total of key.len()+value_size
// across every emission (spec.md's size-checker monotonicity property),
// latching the first key that crosses split_size as the candidate split
// point, and only returning it once current_size also reaches
// region_max_size — the two-threshold design that lets one forward pass
// decide both "should we split" and "where".
func (c *SizeChecker) Feed(key []byte, valueSize int) []byte {
	c.currentSize += uint64(len(key)) + uint64(valueSize)
	if c.splitKey == nil && c.currentSize > c.splitSize {
		c.splitKey = append([]byte(nil), key...)
	}
	if c.splitKey != nil && c.currentSize >= c.regionMaxSize {
		key := c.splitKey
		c.splitKey = nil
		return key
	}
	return nil
}

func (c *SizeChecker) Finalize() {
	c.splitKey = nil
	c.currentSize = 0
}
