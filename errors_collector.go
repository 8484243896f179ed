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
	"sort"
	"strings"
	"sync"
	"time"
)

// CollectedErrors are the most recent reconnect errors, one per still-dead host
type CollectedErrors struct {
	Errors []HostError
}

func (e *CollectedErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	errs := make([]string, len(e.Errors))
	for i, he := range e.Errors {
		errs[i] = he.Error()
	}
	/*
		I don't believe there exist 'best join separator' that fit all cases (cli output, JSON, .. etc),
		so we use newline as errors.Join did it.
		In difficult cases the user should be able to receive "raw" errors and format them as it suits him.
	*/
	return strings.Join(errs, "\n")
}

// errorsCollector keeps the last reconnect error per host address.
// An entry is removed as soon as the host recovers
type errorsCollector struct {
	store map[string]HostError
	mu    sync.Mutex
}

func newErrorsCollector() errorsCollector {
	return errorsCollector{store: make(map[string]HostError)}
}

func (e *errorsCollector) Add(addr string, err error, occurredAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store[addr] = HostError{
		Addr:       addr,
		Err:        err,
		OccurredAt: occurredAt,
	}
}

func (e *errorsCollector) Remove(addr string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.store, addr)
}

func (e *errorsCollector) Err() error {
	e.mu.Lock()
	errList := make([]HostError, 0, len(e.store))
	for _, hErr := range e.store {
		errList = append(errList, hErr)
	}
	e.mu.Unlock()

	if len(errList) == 0 {
		return nil
	}

	sort.Slice(errList, func(i, j int) bool {
		return errList[i].OccurredAt.Before(errList[j].OccurredAt)
	})
	return &CollectedErrors{Errors: errList}
}
