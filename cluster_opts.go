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

import "time"

// ClusterOpt is a functional option type for Cluster constructor
type ClusterOpt func(*Cluster)

// WithSeeds sets initial cluster node addresses, host:port with a literal IPv4 host.
// At least one seed is required
func WithSeeds(seeds ...string) ClusterOpt {
	return func(cl *Cluster) {
		cl.seeds = seeds
	}
}

// WithConnFactory sets the constructor used to open connections to nodes.
// Required; injecting it keeps the wire protocol substitutable and mockable
func WithConnFactory(factory ConnFactory) ClusterOpt {
	return func(cl *Cluster) {
		cl.factory = factory
	}
}

// WithStrategy sets the selection strategy routing queries to hosts. Required
func WithStrategy(strategy SelectionStrategy) ClusterOpt {
	return func(cl *Cluster) {
		cl.strategy = strategy
	}
}

// WithDiscovery enables growing the pool from the cluster membership changefeed
func WithDiscovery(enabled bool) ClusterOpt {
	return func(cl *Cluster) {
		cl.discoveryEnabled = enabled
	}
}

// WithDatabase sets the database name passed to every opened connection
func WithDatabase(name string) ClusterOpt {
	return func(cl *Cluster) {
		cl.database = name
	}
}

// WithAuthKey sets the auth credential passed to every opened connection
func WithAuthKey(key string) ClusterOpt {
	return func(cl *Cluster) {
		cl.authKey = key
	}
}

// WithSuperviseInterval sets how often the supervisor rescans for dead hosts
func WithSuperviseInterval(d time.Duration) ClusterOpt {
	return func(cl *Cluster) {
		cl.superviseInterval = d
	}
}

// WithBackoffPolicy sets the delay computation between failed reconnect attempts
func WithBackoffPolicy(policy BackoffPolicy) ClusterOpt {
	return func(cl *Cluster) {
		cl.backoff = policy
	}
}

// WithAddressFilter replaces the filter applied to advertised candidate addresses
// before discovery considers them
func WithAddressFilter(filter AddressFilter) ClusterOpt {
	return func(cl *Cluster) {
		cl.filter = filter
	}
}

// WithStatusFeed replaces how the discovery loop subscribes to server-status changes
func WithStatusFeed(opener StatusFeedOpener) ClusterOpt {
	return func(cl *Cluster) {
		cl.statusFeed = opener
	}
}

// WithProbeTimeout sets the dial timeout of discovery reachability probes
func WithProbeTimeout(d time.Duration) ClusterOpt {
	return func(cl *Cluster) {
		cl.probeTimeout = d
	}
}

// WithTracer sets tracer for actions happening in the background
func WithTracer(tracer Tracer) ClusterOpt {
	return func(cl *Cluster) {
		cl.tracer = tracer
	}
}
