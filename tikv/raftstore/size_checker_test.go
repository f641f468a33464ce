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
	"testing"

	"github.com/pingcap/kvproto/pkg/metapb"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*Router, chan Msg) {
	t.Helper()
	ch := make(chan Msg, 100)
	return NewRouter(NewRetryableSendCh(ch, "test")), ch
}

// TestSizeCheckerFeedMonotonicAndSplitPoint exercises spec.md's
// size-checker monotonicity and two-threshold properties directly,
// without going through Runner or an engine.
func TestSizeCheckerFeedMonotonicAndSplitPoint(t *testing.T) {
	eng := newTestEngine(t)
	router, _ := newTestRouter(t)
	checker := NewSizeChecker(eng, router, 100, 60)

	var lastSize uint64
	var splitKey []byte
	for i := 0; i < 7; i++ {
		key := []byte{byte('a' + i)}
		if got := checker.Feed(key, 9); got != nil {
			splitKey = got
		}
		require.GreaterOrEqual(t, checker.currentSize, lastSize, "current_size must never decrease")
		lastSize = checker.currentSize
	}
	// 7 keys * (1 + 9) = 70 bytes: crosses split_size(60) but not
	// region_max_size(100), so no split key should have been returned yet.
	require.Nil(t, splitKey)
	require.EqualValues(t, 70, checker.currentSize)

	// Three more keys push current_size to 100, reaching region_max_size.
	for i := 0; i < 3; i++ {
		if got := checker.Feed([]byte{byte('h' + i)}, 9); got != nil {
			splitKey = got
		}
	}
	require.NotNil(t, splitKey)
	require.EqualValues(t, 100, checker.currentSize)

	checker.Finalize()
	require.Nil(t, checker.splitKey)
	require.Zero(t, checker.currentSize)
}

func TestSizeCheckerPreCheckSkipsBelowThreshold(t *testing.T) {
	eng := newTestEngine(t)
	router, ch := newTestRouter(t)
	checker := NewSizeChecker(eng, router, 1<<20, 1<<19)

	putRegionData(t, eng, "default", []byte("0000"))

	region := &metapb.Region{Id: 1}
	skip := checker.PreCheck(region, nil)
	require.True(t, skip, "small region should skip the full scan")

	select {
	case msg := <-ch:
		require.Equal(t, MsgTypeApproximateRegionSize, msg.Type)
	default:
		t.Fatal("expected an ApproximateRegionSize message regardless of the skip decision")
	}
}
