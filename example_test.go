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

package rethinkdb_test

import (
	"context"
	"encoding/json"
	"time"

	rethinkdb "github.com/hungaikev/RethinkDb.Driver"
)

// openConn is a placeholder for the wire-protocol connection constructor
// provided by the driver's connection layer
func openConn(ctx context.Context, addr, database, authKey string) (rethinkdb.Conn, error) {
	panic("wire this to your connection implementation")
}

func ExampleConnect() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Connect blocks until every seed connection is established
	cl, err := rethinkdb.Connect(ctx,
		rethinkdb.WithSeeds("10.0.0.1:28015", "10.0.0.2:28015"),
		rethinkdb.WithDatabase("app"),
		rethinkdb.WithConnFactory(openConn),
		rethinkdb.WithStrategy(rethinkdb.NewRoundRobinStrategy()),
		rethinkdb.WithDiscovery(true), // grow the pool as the cluster grows
	)
	if err != nil {
		panic(err)
	}
	defer cl.Shutdown() // close cluster when it is not needed

	// queries are routed through the selection strategy
	var now string
	if err := cl.RunAtom(ctx, rethinkdb.Query{Term: json.RawMessage(`[103,[]]`)}, &now); err != nil {
		panic(err)
	}
}

func ExampleConnectAsync() {
	fut := rethinkdb.ConnectAsync(context.Background(),
		rethinkdb.WithSeeds("10.0.0.1:28015"),
		rethinkdb.WithConnFactory(openConn),
		rethinkdb.WithStrategy(rethinkdb.NewEpsilonGreedyStrategy(0.1)),
		rethinkdb.WithBackoffPolicy(rethinkdb.ExponentialBackoff(time.Second, 30*time.Second)),
	)

	// do other startup work, then wait for the pool
	cl, err := fut.Get()
	if err != nil {
		panic(err)
	}
	defer cl.Shutdown()
}
