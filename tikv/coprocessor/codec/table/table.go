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

// Package table implements the minimal slice of TiDB's table-key codec
// the table-boundary split checker needs: enough to recognize "these two
// keys belong to the same table" and nothing about row/index encoding.
// original_source/.../split_check.rs's test module drives a real
// SplitTableChecker via coprocessor::codec::table::gen_table_prefix /
// decode_table_id; this package is the Go-sized version of just that
// corner of TiDB's codec.
package table

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// tablePrefix marks a key as belonging to the table keyspace, matching
// TiDB's convention of a literal 't' byte ahead of the table id.
const tablePrefix = 't'

const prefixLen = 1 + 8 // tablePrefix + big-endian table id

// GenTablePrefix returns the encoded prefix for tableID. Row/index keys
// within the table are formed by appending further bytes to this prefix.
func GenTablePrefix(tableID int64) []byte {
	buf := make([]byte, prefixLen)
	buf[0] = tablePrefix
	binary.BigEndian.PutUint64(buf[1:], uint64(tableID))
	return buf
}

// DecodeTableID recovers the table id a key belongs to. ok is false if
// key does not look like a table key at all (e.g. it is shorter than the
// table prefix or does not start with the table marker byte) — callers
// must treat that as "not table-structured" rather than an error, since
// the split-check core also runs over keyspaces with no table layer.
func DecodeTableID(key []byte) (tableID int64, ok bool) {
	if len(key) < prefixLen || key[0] != tablePrefix {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(key[1:prefixLen])), true
}

// ErrInvalidTableKey is returned by callers that need a hard error
// instead of the ok-bool form, e.g. when a key was already known to be
// table-structured and decoding it failing indicates corruption.
var ErrInvalidTableKey = errors.New("invalid table key")
