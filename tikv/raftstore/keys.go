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
	"github.com/rbramwell/tikv/tikv/engine"
)

// EncStartKey produces the physical (data-prefixed) start key for a
// region's [start_key, end_key) span.
func EncStartKey(region *metapb.Region) []byte {
	return engine.DataKey(region.GetStartKey())
}

// EncEndKey produces the physical (data-prefixed) end key, handling the
// "empty end_key means unbounded to the right" convention.
func EncEndKey(region *metapb.Region) []byte {
	return engine.DataEndKey(region.GetEndKey())
}

// OriginKey strips the data prefix off a physical key, recovering the
// user key a caller outside the engine should see.
func OriginKey(key []byte) []byte {
	return engine.OriginKey(key)
}
