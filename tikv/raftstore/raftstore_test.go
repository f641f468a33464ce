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

	"github.com/pingcap/badger"
	"github.com/rbramwell/tikv/tikv/engine"
)

// newTestEngine opens a fresh badger-backed engine.Engine rooted at a
// temp directory, mirroring the Rust original's TempDir-per-test fixture
// (original_source/.../split_check.rs's test_split_check/test_split_table).
func newTestEngine(t *testing.T) engine.Engine {
	t.Helper()
	opts := badger.DefaultOptions
	opts.Dir = t.TempDir()
	opts.ValueDir = opts.Dir
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return engine.NewBadgerEngine(db)
}

// putData writes key as both key and value into cf, matching the Rust
// tests' convention of using the key bytes as the value too. Used by the
// MergedIterator/BoundsProbe tests, which operate directly on whatever
// byte range they're given and are agnostic to the "z" data-prefix
// convention (that convention is applied by Runner, one layer up).
func putData(t *testing.T, eng engine.Engine, cf engine.CFName, key string) {
	t.Helper()
	if err := eng.PutCF(cf, []byte(key), []byte(key)); err != nil {
		t.Fatalf("put %s/%s: %v", cf, key, err)
	}
}

// putRegionData writes userKey as a physical, z-prefixed data key (the
// form every real write path produces, and the only form Runner's
// EncStartKey/EncEndKey-bounded scans will ever find) with the data key
// itself as the value — exactly the Rust original's
// `engine.put(&s, &s)` where s = keys::data_key(userKey). Used by the
// Runner/SizeChecker/TableBoundaryChecker end-to-end tests.
func putRegionData(t *testing.T, eng engine.Engine, cf engine.CFName, userKey []byte) {
	t.Helper()
	dataKey := engine.DataKey(userKey)
	if err := eng.PutCF(cf, dataKey, dataKey); err != nil {
		t.Fatalf("put %s/%s: %v", cf, userKey, err)
	}
}
