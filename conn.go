/*
   Copyright 2020 YANDEX LLC

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package rethinkdb

import (
	"context"
	"encoding/json"
)

// Query is a single compiled ReQL request. The pool treats the term as opaque:
// building and serializing terms belongs to the query layer
type Query struct {
	// Term is the wire form of the query
	Term json.RawMessage
	// Opts are global optargs sent along with the term (db, durability etc.)
	Opts map[string]any
}

// Response is a raw reply to a single query. Deserialization of the documents
// is left to the caller
type Response struct {
	Results []json.RawMessage
	Profile json.RawMessage
}

// Cursor is a lazy stream of raw documents produced by a single query.
// Next blocks until a document arrives, the stream ends or ctx is canceled
type Cursor interface {
	Next(ctx context.Context) (json.RawMessage, error)
	Close() error
}

// Conn describes a single physical connection to one cluster node.
// It is the contract the pool requires from the wire-protocol layer;
// most drivers' connection types already implement it
type Conn interface {
	// Reconnect re-establishes the underlying link on an existing,
	// possibly closed handle. Post-condition is observable via IsOpen
	Reconnect(ctx context.Context) error
	// IsOpen reports whether the link was last observed open
	IsOpen() bool
	// Close releases the connection. When noreplyWait is set, outstanding
	// noreply writes are flushed first. Closing a closed connection must not fail
	Close(noreplyWait bool) error

	// Exec runs a query and returns the raw response
	Exec(ctx context.Context, q Query) (*Response, error)
	// ExecCursor runs a query expected to produce a stream of documents
	ExecCursor(ctx context.Context, q Query) (Cursor, error)
	// ExecAtom runs a query expected to produce a single value and decodes it into out
	ExecAtom(ctx context.Context, q Query, out any) error
	// ExecNoReply runs a fire-and-forget query
	ExecNoReply(ctx context.Context, q Query) error
}

// ConnFactory opens a new connection to a single node address.
// The pool uses it for seeding, for discovered nodes and for re-dialing
// entries that never managed to connect
type ConnFactory func(ctx context.Context, addr, database, authKey string) (Conn, error)

// StatusFeedOpener opens a changefeed over the cluster's server-status records
// with include-initial semantics: an initial snapshot of current members followed
// by an unbounded sequence of change events. The stream is not restartable;
// the discovery loop reopens it on any error
type StatusFeedOpener func(ctx context.Context, conn Conn) (Cursor, error)
