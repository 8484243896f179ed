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
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var _ Conn = (*mockConn)(nil)

// mockConn returns fake wire results to tests
type mockConn struct {
	addr string

	open       atomic.Bool
	reconnects atomic.Int32
	closes     atomic.Int32

	reconnectFn func(ctx context.Context) error
	execFn      func(ctx context.Context, q Query) (*Response, error)
	cursorFn    func(ctx context.Context, q Query) (Cursor, error)
}

func newMockConn(addr string) *mockConn {
	c := &mockConn{addr: addr}
	c.open.Store(true)
	return c
}

func (m *mockConn) Reconnect(ctx context.Context) error {
	m.reconnects.Add(1)
	if m.reconnectFn != nil {
		if err := m.reconnectFn(ctx); err != nil {
			return err
		}
	}
	m.open.Store(true)
	return nil
}

func (m *mockConn) IsOpen() bool {
	return m.open.Load()
}

func (m *mockConn) Close(_ bool) error {
	m.open.Store(false)
	m.closes.Add(1)
	return nil
}

func (m *mockConn) Exec(ctx context.Context, q Query) (*Response, error) {
	if m.execFn != nil {
		return m.execFn(ctx, q)
	}
	return &Response{}, nil
}

func (m *mockConn) ExecCursor(ctx context.Context, q Query) (Cursor, error) {
	if m.cursorFn != nil {
		return m.cursorFn(ctx, q)
	}
	return newMockCursor(), nil
}

func (m *mockConn) ExecAtom(ctx context.Context, q Query, out any) error {
	_, err := m.Exec(ctx, q)
	return err
}

func (m *mockConn) ExecNoReply(ctx context.Context, q Query) error {
	_, err := m.Exec(ctx, q)
	return err
}

var _ Cursor = (*mockCursor)(nil)

// mockCursor yields pre-fed documents, then blocks until fail/close/ctx
type mockCursor struct {
	docs   chan json.RawMessage
	done   chan struct{}
	err    error
	closed sync.Once
}

func newMockCursor(docs ...json.RawMessage) *mockCursor {
	c := &mockCursor{
		docs: make(chan json.RawMessage, len(docs)+16),
		done: make(chan struct{}),
	}
	for _, d := range docs {
		c.docs <- d
	}
	return c
}

// fail breaks the stream: pending documents are still delivered first
func (c *mockCursor) fail(err error) {
	c.err = err
	c.closed.Do(func() { close(c.done) })
}

func (c *mockCursor) Next(ctx context.Context) (json.RawMessage, error) {
	// pending documents are delivered before any failure is reported
	select {
	case doc := <-c.docs:
		return doc, nil
	default:
	}
	select {
	case doc := <-c.docs:
		return doc, nil
	case <-c.done:
		if c.err != nil {
			return nil, c.err
		}
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *mockCursor) Close() error {
	c.closed.Do(func() { close(c.done) })
	return nil
}

// seedStoppedCluster builds a pool and admits the seeds without launching the
// background loops, so tests can drive supervisor iterations deterministically
func seedStoppedCluster(f *mockFactory, seeds []string, opts ...ClusterOpt) *Cluster {
	opts = append([]ClusterOpt{
		WithSeeds(seeds...),
		WithConnFactory(f.factory()),
		WithStrategy(NewRoundRobinStrategy()),
	}, opts...)

	cl := NewCluster(opts...)
	factory := f.factory()
	for _, seed := range seeds {
		conn, err := factory(context.Background(), seed, "", "")
		if err != nil {
			cl.reconnectErrs.Add(seed, err, time.Now())
			conn = nil
		}
		cl.admit(newHost(seed, conn))
	}
	return cl
}

// mockFactory records opened connections and can be told to refuse some addresses
type mockFactory struct {
	mu      sync.Mutex
	conns   map[string]*mockConn
	refuse  map[string]error
	dials   int
	connect func(addr string) (*mockConn, error)
}

func newMockFactory() *mockFactory {
	return &mockFactory{
		conns:  make(map[string]*mockConn),
		refuse: make(map[string]error),
	}
}

func (f *mockFactory) refuseAddr(addr string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refuse[addr] = err
}

func (f *mockFactory) allowAddr(addr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.refuse, addr)
}

func (f *mockFactory) conn(addr string) *mockConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[addr]
}

func (f *mockFactory) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

func (f *mockFactory) factory() ConnFactory {
	return func(_ context.Context, addr, _, _ string) (Conn, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.dials++
		if err, ok := f.refuse[addr]; ok {
			return nil, err
		}
		if f.connect != nil {
			conn, err := f.connect(addr)
			if err != nil {
				return nil, err
			}
			f.conns[addr] = conn
			return conn, nil
		}
		conn := newMockConn(addr)
		f.conns[addr] = conn
		return conn, nil
	}
}
