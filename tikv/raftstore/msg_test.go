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

	"github.com/stretchr/testify/require"
)

func TestRetryableSendChSucceedsWhenRoomAvailable(t *testing.T) {
	ch := make(chan Msg, 1)
	sendCh := NewRetryableSendCh(ch, "test")
	require.NoError(t, sendCh.TrySend(Msg{Type: MsgTypeSplitRegion}))
	require.Len(t, ch, 1)
}

// TestRetryableSendChGivesUpOnFullChannel exercises spec.md §7's
// transport-failure path: a permanently full channel must return
// ErrChannelFull after retries rather than blocking forever.
func TestRetryableSendChGivesUpOnFullChannel(t *testing.T) {
	ch := make(chan Msg, 1)
	ch <- Msg{} // fill the only slot; nothing drains it
	sendCh := NewRetryableSendCh(ch, "test")
	err := sendCh.TrySend(Msg{Type: MsgTypeSplitRegion})
	require.ErrorIs(t, err, ErrChannelFull)
}

// TestRouterSendOnNilRouterIsNoop mirrors spec.md §8's "graceful
// receiver drop" property one level down: a Router with no backing
// channel must not panic.
func TestRouterSendOnNilRouterIsNoop(t *testing.T) {
	var router *Router
	require.NoError(t, router.send(1, Msg{Type: MsgTypeSplitRegion}))
}
