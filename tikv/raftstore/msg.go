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
	"time"

	"github.com/ngaut/log"
	"github.com/pingcap/kvproto/pkg/metapb"
	"github.com/pkg/errors"
)

// MsgType discriminates the Msg variants the control loop understands.
// Only the two variants the split-check core produces are defined here;
// spec.md §6 calls out that these are the two that matter to this core.
type MsgType int

const (
	MsgTypeApproximateRegionSize MsgType = iota + 1
	MsgTypeSplitRegion
)

// Callback lets a caller observe the control loop's handling of a Msg.
// The split-check core never sets one (spec.md §6: "callback is always
// absent when emitted by this component").
type Callback func(err error)

// ApproximateRegionSize is the cheap size observation emitted by
// SizeChecker.pre_check on every task, regardless of whether a split is
// ultimately recommended.
type ApproximateRegionSize struct {
	RegionID   uint64
	RegionSize uint64
}

// SplitRegion is the split decision produced at most once per task.
type SplitRegion struct {
	RegionID    uint64
	RegionEpoch *metapb.RegionEpoch
	SplitKey    []byte
	Callback    Callback
}

// Msg envelopes one message bound for the region control loop.
type Msg struct {
	Type     MsgType
	RegionID uint64
	Data     interface{}
}

// ErrChannelFull is returned once a RetryableSendCh has exhausted its
// retries against a full channel.
var ErrChannelFull = errors.New("control loop channel is full")

// RetryableSendCh is a bounded, multi-producer send wrapper around a Go
// channel: a try-send that retries with backoff before giving up. This is
// the Go shape of the Rust original's RetryableSendCh<Msg, C> — the
// retry policy is owned here, not by the Runner (spec.md §9 "Channel
// back-pressure").
type RetryableSendCh struct {
	name       string
	ch         chan<- Msg
	maxRetries int
	backoff    time.Duration
}

// NewRetryableSendCh wraps ch with the given retry policy. A channel
// whose receiver has stopped draining it (but was never closed) behaves
// exactly like a permanently backed-up channel: TrySend retries, then
// returns ErrChannelFull — it never panics, matching spec.md §8's
// "graceful receiver drop" property. Go channels panic on send-to-closed,
// so callers must stop reading rather than close the channel to model a
// dropped receiver.
func NewRetryableSendCh(ch chan<- Msg, name string) *RetryableSendCh {
	return &RetryableSendCh{
		name:       name,
		ch:         ch,
		maxRetries: 3,
		backoff:    5 * time.Millisecond,
	}
}

// TrySend attempts a non-blocking send, retrying with linear backoff up
// to maxRetries times before giving up.
func (c *RetryableSendCh) TrySend(msg Msg) error {
	wait := c.backoff
	for attempt := 0; ; attempt++ {
		select {
		case c.ch <- msg:
			return nil
		default:
		}
		if attempt >= c.maxRetries {
			return ErrChannelFull
		}
		time.Sleep(wait)
		wait += c.backoff
	}
}

// Router dispatches Msg values produced by split-check (and, in a fuller
// node, other workers) to the region control loop. This node runs a
// single control loop shared by every region, so routing by region ID is
// a no-op today; the method signature is kept region-scoped because a
// multi-raft node's router legitimately differs per region.
type Router struct {
	ch *RetryableSendCh
}

// NewRouter builds a Router over the given control-loop channel.
func NewRouter(ch *RetryableSendCh) *Router {
	return &Router{ch: ch}
}

func (r *Router) send(regionID uint64, msg Msg) error {
	if r == nil || r.ch == nil {
		return nil
	}
	err := r.ch.TrySend(msg)
	if err != nil {
		log.Warnf("[region %d] failed to send %T to control loop: %v", regionID, msg.Data, err)
	}
	return err
}
