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

// SelectionStrategy decides which host serves a query.
// Implementations receive an immutable snapshot of the host list and must treat
// dead entries as unselectable. Pick returns ErrPoolExhausted when no entry is usable.
// Strategies may keep their own concurrent counters for load statistics but must not
// mutate hosts
type SelectionStrategy interface {
	// Pick returns a single usable host from the given snapshot
	Pick(hosts []*Host) (*Host, error)
	// OnHostAdded is called once for every host admitted to the pool
	OnHostAdded(h *Host)
	// OnShutdown is called exactly once when the pool shuts down
	OnShutdown()
}
