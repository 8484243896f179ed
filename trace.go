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

// Tracer is a set of hooks to be called at various stages of the pool lifecycle.
// Any particular hook may be nil. Functions may be called concurrently from different goroutines.
type Tracer struct {
	// PoolReady is called once initial seed connections have been established
	PoolReady func()
	// HostDead is called when a host's connection is observed unusable
	HostDead func(addr string, err error)
	// HostAlive is called when the supervisor resurrects a host
	HostAlive func(addr string)
	// HostDiscovered is called when the discovery loop admits a new host
	HostDiscovered func(addr string)
	// WaitersNotified is called when callers of WaitForHealthy have been notified
	WaitersNotified func()
}
