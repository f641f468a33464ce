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
	"fmt"
	"testing"
	"time"

	"github.com/pingcap/kvproto/pkg/metapb"
	"github.com/rbramwell/tikv/tikv/coprocessor/codec/table"
	"github.com/rbramwell/tikv/tikv/engine"
	"github.com/stretchr/testify/require"
)

func recvMsg(t *testing.T, ch <-chan Msg) Msg {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a message")
		return Msg{}
	}
}

func requireNoMsg(t *testing.T, ch <-chan Msg) {
	t.Helper()
	select {
	case m := <-ch:
		t.Fatalf("expected no message, got %+v", m)
	default:
	}
}

// TestRunnerSizeCheckScenarios reproduces the three end-to-end scenarios
// from spec.md §8 (below threshold, crosses threshold, cross-CF
// accumulation), grounded on original_source/.../split_check.rs's
// test_split_check.
func TestRunnerSizeCheckScenarios(t *testing.T) {
	eng := newTestEngine(t)
	ch := make(chan Msg, 100)
	router := NewRouter(NewRetryableSendCh(ch, "test-split"))
	runner := NewSplitCheckRunner(eng, router, 100, 60)

	region := &metapb.Region{
		Id:          1,
		RegionEpoch: &metapb.RegionEpoch{Version: 2, ConfVer: 5},
	}

	// Scenario 1: below threshold.
	for i := 0; i < 7; i++ {
		putRegionData(t, eng, engine.CfDefault, []byte(fmt.Sprintf("%04d", i)))
	}
	runner.Run(&SplitCheckTask{Region: region})

	sizeMsg := recvMsg(t, ch).Data.(*ApproximateRegionSize)
	require.Equal(t, region.GetId(), sizeMsg.RegionID)
	requireNoMsg(t, ch)

	// Scenario 2: crosses threshold — split key is the first key that
	// pushed current_size past split_size(60), here "0006".
	for i := 7; i < 11; i++ {
		putRegionData(t, eng, engine.CfDefault, []byte(fmt.Sprintf("%04d", i)))
	}
	runner.Run(&SplitCheckTask{Region: region})

	_ = recvMsg(t, ch) // ApproximateRegionSize
	splitMsg := recvMsg(t, ch).Data.(*SplitRegion)
	require.Equal(t, region.GetId(), splitMsg.RegionID)
	require.Equal(t, region.GetRegionEpoch(), splitMsg.RegionEpoch)
	require.Equal(t, []byte("0006"), splitMsg.SplitKey)

	// Scenario 3: populate every LARGE_CFS CF with the same keys so byte
	// weight accumulates across CFs via the merge, splitting earlier.
	for i := 0; i < 6; i++ {
		key := fmt.Sprintf("%04d", i)
		for _, cf := range engine.LARGE_CFS {
			putRegionData(t, eng, cf, []byte(key))
		}
	}
	runner.Run(&SplitCheckTask{Region: region})

	_ = recvMsg(t, ch) // ApproximateRegionSize
	splitMsg = recvMsg(t, ch).Data.(*SplitRegion)
	require.Equal(t, []byte("0003"), splitMsg.SplitKey)
}

// TestRunnerSurvivesClosedReceiver reproduces spec.md §8's "graceful
// receiver drop" property: once nothing drains the channel, Run must
// still return normally rather than blocking or panicking.
func TestRunnerSurvivesClosedReceiver(t *testing.T) {
	eng := newTestEngine(t)
	ch := make(chan Msg) // unbuffered and never read: models a stalled receiver
	router := NewRouter(NewRetryableSendCh(ch, "test-split"))
	runner := NewSplitCheckRunner(eng, router, 100, 60)

	for i := 0; i < 20; i++ {
		putRegionData(t, eng, engine.CfDefault, []byte(fmt.Sprintf("%04d", i)))
	}

	region := &metapb.Region{Id: 1, RegionEpoch: &metapb.RegionEpoch{Version: 2, ConfVer: 5}}
	done := make(chan struct{})
	go func() {
		runner.Run(&SplitCheckTask{Region: region})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return with a stalled receiver")
	}
}

// TestRunnerTableBoundaryScenarios reproduces spec.md §8 scenarios 5 and
// 6 (bounds-only skip and intra-table weight split), grounded on
// original_source/.../split_check.rs's test_split_table.
func TestRunnerTableBoundaryScenarios(t *testing.T) {
	eng := newTestEngine(t)
	ch := make(chan Msg, 100)
	router := NewRouter(NewRetryableSendCh(ch, "test-split-table"))
	runner := NewSplitCheckRunner(eng, router, 200, 120)
	runner.SetPriorityChecker(NewTableBoundaryChecker())

	padding := "_r00000005"
	for _, i := range []int64{1, 3, 5} {
		key := append(table.GenTablePrefix(i), padding...)
		putRegionData(t, eng, engine.CfDefault, key)
	}

	check := func(region *metapb.Region) {
		runner.Run(&SplitCheckTask{Region: region})
		_ = recvMsg(t, ch) // ApproximateRegionSize
		splitMsg := recvMsg(t, ch).Data.(*SplitRegion)
		require.Equal(t, table.GenTablePrefix(3), splitMsg.SplitKey)
	}

	check(&metapb.Region{Id: 1, RegionEpoch: &metapb.RegionEpoch{Version: 2, ConfVer: 5}})
	check(&metapb.Region{
		Id:          1,
		StartKey:    table.GenTablePrefix(1),
		RegionEpoch: &metapb.RegionEpoch{Version: 2, ConfVer: 5},
	})
	check(&metapb.Region{
		Id:          1,
		StartKey:    table.GenTablePrefix(1),
		EndKey:      table.GenTablePrefix(5),
		RegionEpoch: &metapb.RegionEpoch{Version: 2, ConfVer: 5},
	})

	// Put data under table 3 (5 entries, 40 bytes each: a 20-byte data key
	// stored as its own value) so the next check
	// must accumulate byte weight instead of finding a boundary.
	for i := 0; i < 5; i++ {
		key := append(table.GenTablePrefix(3), fmt.Sprintf("_r0000000%d", i)...)
		putRegionData(t, eng, engine.CfDefault, key)
	}

	region := &metapb.Region{
		Id:          1,
		StartKey:    table.GenTablePrefix(3),
		RegionEpoch: &metapb.RegionEpoch{Version: 2, ConfVer: 5},
	}
	runner.Run(&SplitCheckTask{Region: region})
	_ = recvMsg(t, ch) // ApproximateRegionSize
	splitMsg := recvMsg(t, ch).Data.(*SplitRegion)
	tableID, ok := table.DecodeTableID(splitMsg.SplitKey)
	require.True(t, ok)
	require.EqualValues(t, 3, tableID)
}
