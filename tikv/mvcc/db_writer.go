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

// Package mvcc holds the node-local handle onto the physical engine: one
// badger.DB plus the in-memory lock table the MVCC transaction layer
// would consult. The transaction layer itself (prewrite/commit/rollback)
// is out of this repo's scope — split-check only needs a DBBundle to
// build an engine.Engine on top of (see tikv/engine.NewBadgerEngine).
package mvcc

import (
	"sync"

	"github.com/ngaut/unistore/lockstore"
	"github.com/pingcap/badger"
	"github.com/rbramwell/tikv/tikv/engine"
)

// DBBundle is the node's physical storage handle: the badger DB backing
// every column family (engine.BadgerEngine namespaces it by CF prefix)
// plus the lock-table memstore a full MVCC layer would use for
// uncommitted locks.
type DBBundle struct {
	DB         *badger.DB
	LockStore  *lockstore.MemStore
	MemStoreMu sync.Mutex
	StateTS    uint64
}

// NewDBBundle wraps an already-open badger DB with a fresh lock store.
func NewDBBundle(db *badger.DB) *DBBundle {
	return &DBBundle{
		DB:        db,
		LockStore: lockstore.NewMemStore(4096),
	}
}

// Engine builds the engine.Engine the split-check core scans, backed by
// this bundle's badger DB.
func (b *DBBundle) Engine() engine.Engine {
	return engine.NewBadgerEngine(b.DB)
}

// DBSnapshot is a point-in-time read view over a DBBundle, paired with
// the lock store snapshot a transactional reader would also need.
type DBSnapshot struct {
	Txn       *badger.Txn
	LockStore *lockstore.MemStore
}

// NewDBSnapshot opens a read-only transaction against db.
func NewDBSnapshot(db *DBBundle) *DBSnapshot {
	return &DBSnapshot{
		Txn:       db.DB.NewTransaction(false),
		LockStore: db.LockStore,
	}
}
