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
)

// healthWaiter represents a caller blocked until some host becomes usable
type healthWaiter struct {
	ch chan *Host
}

func (cl *Cluster) addHealthWaiter() <-chan *Host {
	// Buffered channel is essential.
	// Read WaitForHealthy function for more information.
	ch := make(chan *Host, 1)
	cl.muWaiters.Lock()
	defer cl.muWaiters.Unlock()
	cl.waiters = append(cl.waiters, healthWaiter{ch: ch})
	return ch
}

// WaitForHealthy blocks until a usable host appears, the context is canceled or
// the pool shuts down. Supervisor recoveries and discovery additions wake waiters
func (cl *Cluster) WaitForHealthy(ctx context.Context) (*Host, error) {
	// Host already exists?
	if h, err := cl.pick(); err == nil {
		return h, nil
	} else if errors.Is(err, ErrClusterClosed) {
		return nil, err
	}

	ch := cl.addHealthWaiter()

	// A host might have recovered while we were adding the waiter, recheck
	if h, err := cl.pick(); err == nil {
		return h, nil
	}

	// If channel is unbuffered and we are right here when hosts are updated,
	// the notify code won't be able to write into channel and will 'forget' it.
	// Then we will report an error to the caller even though a host exists.
	//
	// Wait for a host to appear...
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-cl.shutdown:
		return nil, ErrClusterClosed
	case h := <-ch:
		return h, nil
	}
}

// notifyWaiters hands a usable host to every blocked waiter that can be served now
func (cl *Cluster) notifyWaiters() {
	cl.muWaiters.Lock()
	defer cl.muWaiters.Unlock()

	if len(cl.waiters) == 0 {
		return
	}

	var hostlessWaiters []healthWaiter
	// Notify all waiters
	for _, waiter := range cl.waiters {
		h, err := cl.strategy.Pick(cl.Hosts())
		if err != nil {
			// Put waiter back
			hostlessWaiters = append(hostlessWaiters, waiter)
			continue
		}

		// We won't block here, read addHealthWaiter function for more information
		waiter.ch <- h
		// No need to close channel since we write only once and forget it so does the 'client'
	}

	cl.waiters = hostlessWaiters

	if cl.tracer.WaitersNotified != nil {
		cl.tracer.WaitersNotified()
	}
}
