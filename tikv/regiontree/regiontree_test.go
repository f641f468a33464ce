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

package regiontree

import (
	"testing"

	"github.com/pingcap/kvproto/pkg/metapb"
	"github.com/stretchr/testify/require"
)

func TestRegionTreeGetRegionByKey(t *testing.T) {
	tr := NewRegionTree()
	tr.Put(&metapb.Region{Id: 1, StartKey: nil, EndKey: []byte("m")})
	tr.Put(&metapb.Region{Id: 2, StartKey: []byte("m"), EndKey: nil})

	require.EqualValues(t, 1, tr.GetRegionByKey([]byte("a")).GetId())
	require.EqualValues(t, 1, tr.GetRegionByKey([]byte("l")).GetId())
	require.EqualValues(t, 2, tr.GetRegionByKey([]byte("m")).GetId())
	require.EqualValues(t, 2, tr.GetRegionByKey([]byte("zzz")).GetId())
}

func TestRegionTreeGetRegionByKeyMiss(t *testing.T) {
	tr := NewRegionTree()
	tr.Put(&metapb.Region{Id: 1, StartKey: []byte("m"), EndKey: []byte("n")})
	require.Nil(t, tr.GetRegionByKey([]byte("a")))
	require.Nil(t, tr.GetRegionByKey([]byte("z")))
}

func TestRegionTreeAscendIsStartKeyOrdered(t *testing.T) {
	tr := NewRegionTree()
	tr.Put(&metapb.Region{Id: 3, StartKey: []byte("c")})
	tr.Put(&metapb.Region{Id: 1, StartKey: []byte("a")})
	tr.Put(&metapb.Region{Id: 2, StartKey: []byte("b")})

	var ids []uint64
	tr.Ascend(func(r *metapb.Region) bool {
		ids = append(ids, r.GetId())
		return true
	})
	require.Equal(t, []uint64{1, 2, 3}, ids)
}

func TestRegionTreeDelete(t *testing.T) {
	tr := NewRegionTree()
	tr.Put(&metapb.Region{Id: 1, StartKey: []byte("a")})
	require.Equal(t, 1, tr.Len())
	tr.Delete([]byte("a"))
	require.Equal(t, 0, tr.Len())
}
