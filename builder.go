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

	"github.com/jizhuozhi/go-future"
)

// Connect builds a cluster from the given options and blocks until the initial
// seed connections are established. The returned pool is ready for queries
func Connect(ctx context.Context, opts ...ClusterOpt) (*Cluster, error) {
	cl := NewCluster(opts...)
	if err := cl.Start(ctx); err != nil {
		return nil, err
	}
	return cl, nil
}

// ConnectAsync builds a cluster in the background. The returned future resolves
// once the same readiness condition Connect blocks on holds, or fails with the
// configuration/seeding error
func ConnectAsync(ctx context.Context, opts ...ClusterOpt) *future.Future[*Cluster] {
	p := future.NewPromise[*Cluster]()
	go func() {
		cl, err := Connect(ctx, opts...)
		p.Set(cl, err)
	}()
	return p.Future()
}
