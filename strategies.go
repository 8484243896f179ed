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
	"math/rand"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// RoundRobinStrategy implements SelectionStrategy
var _ SelectionStrategy = (*RoundRobinStrategy)(nil)

// RoundRobinStrategy cycles over non-dead hosts with an atomic cursor.
// Against an all-healthy list of size N the sequence of picks has period N
type RoundRobinStrategy struct {
	idx   uint32
	picks *xsync.Counter
}

// NewRoundRobinStrategy returns a fresh round-robin strategy
func NewRoundRobinStrategy() *RoundRobinStrategy {
	return &RoundRobinStrategy{picks: xsync.NewCounter()}
}

// Pick returns the next non-dead host in round-robin order
func (r *RoundRobinStrategy) Pick(hosts []*Host) (*Host, error) {
	if len(hosts) == 0 {
		return nil, ErrPoolExhausted
	}

	n := atomic.AddUint32(&r.idx, 1)
	start := int(n) - 1
	// advance past dead entries, at most one full lap
	for i := 0; i < len(hosts); i++ {
		h := hosts[(start+i)%len(hosts)]
		if h.Dead() {
			continue
		}
		r.picks.Inc()
		return h, nil
	}

	return nil, ErrPoolExhausted
}

// OnHostAdded is a no-op: the cursor naturally reaches new entries
func (r *RoundRobinStrategy) OnHostAdded(_ *Host) {}

// OnShutdown is a no-op
func (r *RoundRobinStrategy) OnShutdown() {}

// Picks reports how many times this strategy has selected a host
func (r *RoundRobinStrategy) Picks() int64 {
	return r.picks.Value()
}

// EpsilonGreedyStrategy implements SelectionStrategy
var _ SelectionStrategy = (*EpsilonGreedyStrategy)(nil)

// EpsilonGreedyStrategy routes most picks to the least-loaded live host and,
// with probability epsilon, explores a random live host instead. Per-host load
// is tracked in lock-free counters
type EpsilonGreedyStrategy struct {
	epsilon float64
	load    *xsync.MapOf[string, *xsync.Counter]
}

// NewEpsilonGreedyStrategy returns an epsilon-greedy strategy.
// Epsilon values outside (0, 1) fall back to 0.1
func NewEpsilonGreedyStrategy(epsilon float64) *EpsilonGreedyStrategy {
	if epsilon <= 0 || epsilon >= 1 {
		epsilon = 0.1
	}
	return &EpsilonGreedyStrategy{
		epsilon: epsilon,
		load:    xsync.NewMapOf[string, *xsync.Counter](),
	}
}

// Pick returns a live host, preferring the one with the fewest picks so far
func (e *EpsilonGreedyStrategy) Pick(hosts []*Host) (*Host, error) {
	live := make([]*Host, 0, len(hosts))
	for _, h := range hosts {
		if !h.Dead() {
			live = append(live, h)
		}
	}
	if len(live) == 0 {
		return nil, ErrPoolExhausted
	}

	var chosen *Host
	if rand.Float64() < e.epsilon {
		chosen = live[rand.Intn(len(live))]
	} else {
		best := int64(-1)
		for _, h := range live {
			l := e.counter(h.Addr()).Value()
			if best < 0 || l < best {
				best = l
				chosen = h
			}
		}
	}

	e.counter(chosen.Addr()).Inc()
	return chosen, nil
}

// OnHostAdded pre-creates the load counter so a new host starts as least loaded
func (e *EpsilonGreedyStrategy) OnHostAdded(h *Host) {
	e.counter(h.Addr())
}

// OnShutdown is a no-op
func (e *EpsilonGreedyStrategy) OnShutdown() {}

// Load reports how many picks the host at addr has received
func (e *EpsilonGreedyStrategy) Load(addr string) int64 {
	return e.counter(addr).Value()
}

func (e *EpsilonGreedyStrategy) counter(addr string) *xsync.Counter {
	c, _ := e.load.LoadOrCompute(addr, xsync.NewCounter)
	return c
}
