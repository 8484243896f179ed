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
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BackoffPolicy computes the wait before the next reconnect attempt from the
// number of consecutive failures observed so far (at least 1)
type BackoffPolicy func(consecutiveFailures int) time.Duration

// FixedBackoff retries after the same wait regardless of failure count
func FixedBackoff(wait time.Duration) BackoffPolicy {
	return func(_ int) time.Duration {
		return wait
	}
}

// ExponentialBackoff doubles the wait on every consecutive failure, capped at max
func ExponentialBackoff(base, max time.Duration) BackoffPolicy {
	return func(consecutiveFailures int) time.Duration {
		wait := base
		for i := 1; i < consecutiveFailures; i++ {
			wait *= 2
			if wait >= max {
				return max
			}
		}
		if wait > max {
			return max
		}
		return wait
	}
}

// superviseLoop periodically resurrects dead hosts until shutdown.
// Each iteration retries every eligible host in parallel and waits for the whole
// batch, so at most one reconnect attempt per host is ever in flight
func (cl *Cluster) superviseLoop() {
	for {
		select {
		case <-cl.shutdown:
			return
		default:
		}

		if cl.retryDeadHosts() == 0 {
			// fully healthy or nothing eligible yet, don't busy-spin
			select {
			case <-cl.shutdown:
				return
			case <-time.After(cl.superviseInterval):
			}
		}
	}
}

// retryDeadHosts scans the current snapshot and reconnects, in parallel, every dead
// host whose retry deadline has elapsed. Returns the number of attempts made
func (cl *Cluster) retryDeadHosts() int {
	now := time.Now()

	var wg sync.WaitGroup
	var attempts int
	for _, h := range cl.Hosts() {
		if !h.Dead() || now.Before(h.retryAt()) {
			continue
		}

		attempts++
		wg.Add(1)
		go func(h *Host) {
			defer wg.Done()
			cl.reconnectHost(h)
		}(h)
	}
	wg.Wait()

	return attempts
}

// reconnectHost makes a single reconnect attempt and updates liveness/backoff.
// Hosts admitted without a connection are dialed through the factory instead
func (cl *Cluster) reconnectHost(h *Host) {
	ctx, cancel := context.WithTimeout(context.Background(), reconnectTimeout)
	defer cancel()

	var err error
	if conn := h.Conn(); conn != nil {
		err = conn.Reconnect(ctx)
		if err == nil && !conn.IsOpen() {
			err = errors.New("connection reports closed after reconnect")
		}
	} else {
		var conn Conn
		conn, err = cl.factory(ctx, h.Addr(), cl.database, cl.authKey)
		if err == nil {
			h.setConn(conn)
		}
	}

	if err != nil {
		failures := h.recordFailure()
		h.setRetryAt(time.Now().Add(cl.backoff(failures)))
		cl.reconnectErrs.Add(h.Addr(), err, time.Now())
		if cl.tracer.HostDead != nil {
			cl.tracer.HostDead(h.Addr(), err)
		}
		log.Debug().Str("addr", h.Addr()).Int("failures", failures).Err(err).Msg("Reconnect failed")
		return
	}

	h.markAlive()
	cl.reconnectErrs.Remove(h.Addr())
	if cl.tracer.HostAlive != nil {
		cl.tracer.HostAlive(h.Addr())
	}
	log.Info().Str("addr", h.Addr()).Msg("Host connection restored")
	cl.notifyWaiters()
}
