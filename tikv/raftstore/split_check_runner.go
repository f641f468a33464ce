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
	"encoding/hex"
	"time"

	"github.com/ngaut/log"
	"github.com/pingcap/kvproto/pkg/metapb"
	"github.com/rbramwell/tikv/tikv/engine"
)

// SplitCheckTask carries a snapshot of one region through a single
// split-check execution. Constructed on submission, dropped after Runner
// returns — never retained (spec.md §3).
type SplitCheckTask struct {
	Region *metapb.Region
}

// SplitCheckRunner orchestrates a single split-check task end to end:
// bounds probe, pre-checks, the streaming merge scan, finalize, publish
// (spec.md §4.5). One instance is driven serially by its worker goroutine
// — see worker.go — and carries no state across tasks beyond its checker
// instances, which Finalize resets, and its engine/channel handles
// (spec.md §5's state machine).
type SplitCheckRunner struct {
	engine          engine.Engine
	router          *Router
	sizeChecker     *SizeChecker
	priorityChecker Checker
}

// NewSplitCheckRunner builds a Runner with a fresh SizeChecker sized by
// regionMaxSize/splitSize. No priority checker is installed by default;
// call SetPriorityChecker to add one (e.g. a TableBoundaryChecker).
func NewSplitCheckRunner(eng engine.Engine, router *Router, regionMaxSize, splitSize uint64) *SplitCheckRunner {
	return &SplitCheckRunner{
		engine:      eng,
		router:      router,
		sizeChecker: NewSizeChecker(eng, router, regionMaxSize, splitSize),
	}
}

// SetPriorityChecker installs (or clears, with nil) the optional second
// checker that can override the size checker's decision (spec.md §4.5).
func (r *SplitCheckRunner) SetPriorityChecker(c Checker) {
	r.priorityChecker = c
}

// Run executes one split-check task. Every error path logs and returns;
// no error is ever allowed to propagate out of Run so the worker stays
// alive for the next task (spec.md §7's propagation policy).
func (r *SplitCheckRunner) Run(task *SplitCheckTask) {
	region := task.Region
	regionID := region.GetId()
	startKey := EncStartKey(region)
	endKey := EncEndKey(region)
	log.Debugf("executing split check task: [regionId: %d, startKey: %s, endKey: %s]",
		regionID, hex.EncodeToString(startKey), hex.EncodeToString(endKey))

	bounds, err := BoundsProbe(r.engine, engine.LARGE_CFS, startKey, endKey)
	if err != nil {
		log.Errorf("[region %d] failed to get region bounds: %v", regionID, err)
		return
	}

	skipSize := r.sizeChecker.PreCheck(region, bounds)
	skipPriority := true
	if r.priorityChecker != nil {
		skipPriority = r.priorityChecker.PreCheck(region, bounds)
	}
	if skipSize && skipPriority {
		log.Debugf("[region %d] skip split check, no checker requested a scan", regionID)
		return
	}

	checkSplitCounterVec.WithLabelValues("all").Inc()
	timer := time.Now()

	it, err := NewMergedIterator(r.engine, engine.LARGE_CFS, startKey, endKey, false)
	if err != nil {
		// No Finalize here, matching the original: an iterator-open failure
		// never fed either checker, so there is nothing to reset.
		log.Errorf("[region %d] failed to open merge iterator: %v", regionID, err)
		return
	}
	defer it.Close()

	var prioritySplitKey, sizeSplitKey []byte
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		if !skipPriority {
			if key := r.priorityChecker.Feed(entry.Key, entry.ValueSize); key != nil {
				log.Infof("[region %d] priority split checker %s requires splitting at %q",
					regionID, r.priorityChecker.Name(), key)
				prioritySplitKey = key
				break
			}
		}
		if !skipSize {
			if key := r.sizeChecker.Feed(entry.Key, entry.ValueSize); key != nil {
				log.Infof("[region %d] size split checker requires splitting at %q", regionID, key)
				sizeSplitKey = key
				break
			}
		}
	}

	r.sizeChecker.Finalize()
	if r.priorityChecker != nil {
		r.priorityChecker.Finalize()
	}
	checkSplitHistogram.Observe(time.Since(timer).Seconds())

	var splitKey []byte
	switch {
	case prioritySplitKey != nil:
		splitKey = prioritySplitKey
	case sizeSplitKey != nil:
		splitKey = sizeSplitKey
	default:
		checkSplitCounterVec.WithLabelValues("ignore").Inc()
		log.Debugf("[region %d] no split key found, ignoring", regionID)
		return
	}

	r.router.send(regionID, Msg{
		Type:     MsgTypeSplitRegion,
		RegionID: regionID,
		Data: &SplitRegion{
			RegionID:    regionID,
			RegionEpoch: region.GetRegionEpoch(),
			SplitKey:    OriginKey(splitKey),
		},
	})
	checkSplitCounterVec.WithLabelValues("success").Inc()
}
