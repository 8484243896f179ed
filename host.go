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
	"sync/atomic"
	"time"
)

// Host is a single pool entry: one cluster node and the connection owned for it.
//
// The dead flag is written by the supervisor and by query-path failure observers,
// retry bookkeeping only by the supervisor; everyone else reads. Readers may see
// slightly stale liveness, the supervisor reconciles on its next scan.
type Host struct {
	addr string

	conn      atomic.Pointer[connBox]
	dead      atomic.Bool
	nextRetry atomic.Int64 // unix nanos
	failures  atomic.Int32 // consecutive reconnect failures
}

// connBox exists because atomic.Pointer needs a concrete type to point at
type connBox struct {
	conn Conn
}

// newHost wraps a freshly opened connection into a pool entry.
// A nil conn produces an entry that is born dead and immediately
// eligible for a supervisor dial
func newHost(addr string, conn Conn) *Host {
	h := &Host{addr: addr}
	if conn != nil {
		h.conn.Store(&connBox{conn: conn})
	} else {
		h.dead.Store(true)
	}
	return h
}

// Addr returns the node's address. Immutable after creation
func (h *Host) Addr() string {
	return h.addr
}

// Conn returns the connection owned for this host, nil if it was never established
func (h *Host) Conn() Conn {
	if box := h.conn.Load(); box != nil {
		return box.conn
	}
	return nil
}

// Dead reports whether the host's connection is currently known to be unusable
func (h *Host) Dead() bool {
	return h.dead.Load()
}

func (h *Host) setConn(conn Conn) {
	h.conn.Store(&connBox{conn: conn})
}

func (h *Host) markDead() {
	h.dead.Store(true)
}

func (h *Host) markAlive() {
	h.failures.Store(0)
	h.dead.Store(false)
}

func (h *Host) retryAt() time.Time {
	return time.Unix(0, h.nextRetry.Load())
}

func (h *Host) setRetryAt(t time.Time) {
	h.nextRetry.Store(t.UnixNano())
}

// recordFailure bumps the consecutive failure counter and returns the new value
func (h *Host) recordFailure() int {
	return int(h.failures.Add(1))
}
