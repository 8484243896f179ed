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
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoSeeds is returned by Start when the pool was built without seed addresses
	ErrNoSeeds = errors.New("no seed addresses provided")
	// ErrBadSeedAddress is returned by Start when a seed is not host:port with a literal IPv4 host
	ErrBadSeedAddress = errors.New("seed address must be host:port with a literal IPv4 host")
	// ErrNoStrategy is returned by Start when no selection strategy was supplied
	ErrNoStrategy = errors.New("no selection strategy provided")
	// ErrNoConnFactory is returned by Start when no connection factory was supplied
	ErrNoConnFactory = errors.New("no connection factory provided")
	// ErrPoolExhausted is returned on the query path when every host is dead
	ErrPoolExhausted = errors.New("no available connection: all hosts in pool are dead")
	// ErrClusterClosed is returned once the pool has been shut down
	ErrClusterClosed = errors.New("cluster is shut down")
	// ErrAlreadyStarted is returned by a second call to Start
	ErrAlreadyStarted = errors.New("cluster already started")
)

// HostError is an error a background loop got while reconnecting a given host
type HostError struct {
	Addr       string
	Err        error
	OccurredAt time.Time
}

func (e *HostError) Error() string {
	// '10.0.0.5:28015' host error occurred at '2009-11-10..': dial tcp ...
	return fmt.Sprintf("%q host error occurred at %q: %s", e.Addr, e.OccurredAt, e.Err)
}

// Unwrap returns the underlying error
func (e *HostError) Unwrap() error {
	return e.Err
}
