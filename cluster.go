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
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
)

// Default values for cluster config
const (
	DefaultSuperviseInterval = time.Second
	DefaultReconnectWait     = time.Second
	DefaultProbeTimeout      = time.Second * 5
)

// reconnectTimeout bounds a single background reconnect or discovery dial
const reconnectTimeout = time.Second * 5

// Cluster maintains a pool of connections to the nodes of a single database cluster.
// A background supervisor goroutine resurrects dead connections and, when discovery
// is enabled, a second goroutine grows the pool from the cluster membership changefeed.
// Queries are routed through the configured selection strategy.
//
// Shutdown must be called when the cluster is not needed anymore.
type Cluster struct {
	tracer Tracer

	// Configuration, immutable after Start
	seeds             []string
	database          string
	authKey           string
	discoveryEnabled  bool
	strategy          SelectionStrategy
	factory           ConnFactory
	superviseInterval time.Duration
	backoff           BackoffPolicy
	filter            AddressFilter
	statusFeed        StatusFeedOpener
	probeTimeout      time.Duration

	// Status
	hosts         atomic.Pointer[[]*Host]
	hostsMu       sync.Mutex // guards appends; readers load snapshots
	index         *xsync.MapOf[string, *Host]
	reconnectErrs errorsCollector

	started      atomic.Bool
	ready        chan struct{}
	shutdown     chan struct{}
	shutdownOnce sync.Once

	// Notification
	muWaiters sync.Mutex
	waiters   []healthWaiter
}

// NewCluster constructs an unstarted pool. Configuration is validated by Start,
// not here, so a cluster missing required options is still constructed
func NewCluster(opts ...ClusterOpt) *Cluster {
	cl := &Cluster{
		superviseInterval: DefaultSuperviseInterval,
		backoff:           FixedBackoff(DefaultReconnectWait),
		filter:            DefaultAddressFilter,
		statusFeed:        defaultStatusFeed,
		probeTimeout:      DefaultProbeTimeout,
		index:             xsync.NewMapOf[string, *Host](),
		reconnectErrs:     newErrorsCollector(),
		ready:             make(chan struct{}),
		shutdown:          make(chan struct{}),
	}

	// Apply options
	for _, opt := range opts {
		opt(cl)
	}

	// Store initial empty host list
	hosts := make([]*Host, 0, len(cl.seeds))
	cl.hosts.Store(&hosts)

	return cl
}

// Start validates configuration, connects the seeds and launches the background
// loops. It must be called at most once. A seed whose connection cannot be opened
// is admitted dead and left to the supervisor; only bad configuration is fatal.
// Once Start returns the pool is ready and queries may be routed
func (cl *Cluster) Start(ctx context.Context) error {
	if cl.closed() {
		return ErrClusterClosed
	}
	if !cl.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if err := cl.validate(); err != nil {
		return err
	}

	for _, seed := range cl.seeds {
		conn, err := cl.factory(ctx, seed, cl.database, cl.authKey)
		if err != nil {
			log.Warn().Str("addr", seed).Err(err).Msg("Seed connection failed, retrying in background")
			cl.reconnectErrs.Add(seed, err, time.Now())
			conn = nil
		}
		cl.admit(newHost(seed, conn))
	}

	go cl.superviseLoop()
	if cl.discoveryEnabled {
		go cl.discoverLoop()
	}

	close(cl.ready)
	if cl.tracer.PoolReady != nil {
		cl.tracer.PoolReady()
	}
	return nil
}

func (cl *Cluster) validate() error {
	if len(cl.seeds) == 0 {
		return ErrNoSeeds
	}
	for _, seed := range cl.seeds {
		host, _, err := net.SplitHostPort(seed)
		if err != nil {
			return fmt.Errorf("%w: %q: %s", ErrBadSeedAddress, seed, err)
		}
		if ip := net.ParseIP(host); ip == nil || ip.To4() == nil {
			return fmt.Errorf("%w: %q", ErrBadSeedAddress, seed)
		}
	}
	if cl.strategy == nil {
		return ErrNoStrategy
	}
	if cl.factory == nil {
		return ErrNoConnFactory
	}
	return nil
}

// Hosts returns a snapshot of the current host list. Hosts are never removed,
// so the snapshot only ever grows between calls
func (cl *Cluster) Hosts() []*Host {
	return *cl.hosts.Load()
}

// admit appends a host to the pool under the address uniqueness invariant.
// The new entry is fully constructed before it becomes visible to readers.
// Reports whether the host was actually added
func (cl *Cluster) admit(h *Host) bool {
	if _, loaded := cl.index.LoadOrStore(h.Addr(), h); loaded {
		return false
	}

	cl.hostsMu.Lock()
	old := *cl.hosts.Load()
	hosts := make([]*Host, len(old), len(old)+1)
	copy(hosts, old)
	hosts = append(hosts, h)
	cl.hosts.Store(&hosts)
	cl.hostsMu.Unlock()

	cl.strategy.OnHostAdded(h)
	cl.notifyWaiters()
	return true
}

// pick routes one selection through the strategy against the current snapshot
func (cl *Cluster) pick() (*Host, error) {
	if cl.closed() {
		return nil, ErrClusterClosed
	}
	return cl.strategy.Pick(cl.Hosts())
}

// observeFailure is the query-path connection-failure observer: the picked host
// is marked dead with an immediate retry deadline and left to the supervisor.
// The query itself is not retried
func (cl *Cluster) observeFailure(h *Host, err error) {
	h.markDead()
	h.setRetryAt(time.Now())
	cl.reconnectErrs.Add(h.Addr(), err, time.Now())
	if cl.tracer.HostDead != nil {
		cl.tracer.HostDead(h.Addr(), err)
	}
	log.Debug().Str("addr", h.Addr()).Err(err).Msg("Query failed on host, marking dead")
}

// RunQuery executes a raw query on a host chosen by the strategy
func (cl *Cluster) RunQuery(ctx context.Context, q Query) (*Response, error) {
	h, err := cl.pick()
	if err != nil {
		return nil, err
	}
	resp, err := h.Conn().Exec(ctx, q)
	if err != nil {
		cl.observeFailure(h, err)
		return nil, err
	}
	return resp, nil
}

// RunCursor executes a query expected to produce a stream of documents
func (cl *Cluster) RunCursor(ctx context.Context, q Query) (Cursor, error) {
	h, err := cl.pick()
	if err != nil {
		return nil, err
	}
	cur, err := h.Conn().ExecCursor(ctx, q)
	if err != nil {
		cl.observeFailure(h, err)
		return nil, err
	}
	return cur, nil
}

// RunAtom executes a query expected to produce a single value and decodes it into out
func (cl *Cluster) RunAtom(ctx context.Context, q Query, out any) error {
	h, err := cl.pick()
	if err != nil {
		return err
	}
	if err := h.Conn().ExecAtom(ctx, q, out); err != nil {
		cl.observeFailure(h, err)
		return err
	}
	return nil
}

// RunNoReply executes a fire-and-forget query
func (cl *Cluster) RunNoReply(ctx context.Context, q Query) error {
	h, err := cl.pick()
	if err != nil {
		return err
	}
	if err := h.Conn().ExecNoReply(ctx, q); err != nil {
		cl.observeFailure(h, err)
		return err
	}
	return nil
}

// Err returns the last reconnect error per still-dead host, nil when the pool is healthy
func (cl *Cluster) Err() error {
	return cl.reconnectErrs.Err()
}

// Shutdown stops the background loops and closes every connection in the pool.
// Each close is attempted independently and failures are only logged. Shutdown is
// idempotent and safe to call before Start
func (cl *Cluster) Shutdown() {
	cl.shutdownOnce.Do(func() {
		close(cl.shutdown)

		if cl.strategy != nil {
			cl.strategy.OnShutdown()
		}

		for _, h := range cl.Hosts() {
			conn := h.Conn()
			if conn == nil {
				continue
			}
			if err := conn.Close(false); err != nil {
				log.Debug().Str("addr", h.Addr()).Err(err).Msg("Closing connection failed")
			}
		}
		log.Debug().Msg("Connection pool shut down")
	})
}

func (cl *Cluster) closed() bool {
	select {
	case <-cl.shutdown:
		return true
	default:
		return false
	}
}
