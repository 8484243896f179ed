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
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// AddressFilter reports whether an advertised candidate address may be considered
// by discovery
type AddressFilter func(addr string) bool

// DefaultAddressFilter drops loopback addresses and anything containing a colon,
// which skips IPv6 candidates entirely. A deliberately conservative default;
// replace it via WithAddressFilter to admit more of the advertised set
func DefaultAddressFilter(addr string) bool {
	if strings.Contains(addr, ":") {
		return false
	}
	if addr == "localhost" || strings.HasPrefix(addr, "127.") {
		return false
	}
	return true
}

// serverStatus is the slice of a server_status system-table document
// the discovery loop cares about
type serverStatus struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Network struct {
		Hostname           string `json:"hostname"`
		ReqlPort           int    `json:"reql_port"`
		CanonicalAddresses []struct {
			Host string `json:"host"`
			Port int    `json:"port"`
		} `json:"canonical_addresses"`
	} `json:"network"`
}

// serverChange is a single changefeed event; NewVal is absent on deletions
type serverChange struct {
	NewVal *serverStatus `json:"new_val"`
}

// statusFeedTerm is the pre-compiled wire form of
// r.db("rethinkdb").table("server_status").changes(includeInitial: true)
var statusFeedTerm = json.RawMessage(`[152,[[15,[[14,["rethinkdb"]],"server_status"]]],{"include_initial":true}]`)

// defaultStatusFeed subscribes to server-status changes through an existing connection
func defaultStatusFeed(ctx context.Context, conn Conn) (Cursor, error) {
	return conn.ExecCursor(ctx, Query{Term: statusFeedTerm})
}

// discoverLoop grows the pool from the cluster membership changefeed until shutdown.
// It performs no work before the pool is ready. Any error while consuming the feed
// only terminates the inner loop; the subscription is reopened on the next pass,
// and its initial snapshot resolves whatever events were missed
func (cl *Cluster) discoverLoop() {
	select {
	case <-cl.shutdown:
		return
	case <-cl.ready:
	}

	for {
		select {
		case <-cl.shutdown:
			return
		default:
		}

		if err := cl.consumeStatusFeed(); err != nil {
			log.Debug().Err(err).Msg("Server status feed interrupted, resubscribing")
		}

		select {
		case <-cl.shutdown:
			return
		case <-time.After(cl.superviseInterval):
		}
	}
}

// consumeStatusFeed opens one subscription and handles its events until it breaks
func (cl *Cluster) consumeStatusFeed() error {
	h, err := cl.pick()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// unblock the feed read when the pool shuts down
	go func() {
		select {
		case <-cl.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	feed, err := cl.statusFeed(ctx, h.Conn())
	if err != nil {
		return err
	}
	defer func() { _ = feed.Close() }()

	for {
		select {
		case <-cl.shutdown:
			return nil
		default:
		}

		raw, err := feed.Next(ctx)
		if err != nil {
			return err
		}

		var change serverChange
		if err := jsonAPI.Unmarshal(raw, &change); err != nil {
			return err
		}
		cl.handleServerChange(ctx, change)
	}
}

// handleServerChange admits every reachable, unknown candidate address of a member
// record. A member any of whose candidates is already contained in a known host's
// address is treated as known and skipped
func (cl *Cluster) handleServerChange(ctx context.Context, change serverChange) {
	status := change.NewVal
	if status == nil {
		// deletion event
		return
	}

	var candidates []string
	if hostname := status.Network.Hostname; hostname != "" && cl.filter(hostname) {
		candidates = append(candidates, hostname)
	}
	for _, ca := range status.Network.CanonicalAddresses {
		if cl.filter(ca.Host) {
			candidates = append(candidates, ca.Host)
		}
	}
	if len(candidates) == 0 {
		return
	}

	// containment, not equality: matches how advertised addresses relate to
	// configured host:port seeds
	for _, h := range cl.Hosts() {
		for _, candidate := range candidates {
			if strings.Contains(h.Addr(), candidate) {
				return
			}
		}
	}

	port := strconv.Itoa(status.Network.ReqlPort)
	for _, candidate := range candidates {
		addr := net.JoinHostPort(candidate, port)
		if !cl.probe(addr) {
			continue
		}

		conn, err := cl.factory(ctx, addr, cl.database, cl.authKey)
		if err != nil {
			log.Debug().Str("addr", addr).Err(err).Msg("Discovered node did not accept a connection")
			continue
		}
		if !cl.admit(newHost(addr, conn)) {
			// lost an admission race, the address is already pooled
			_ = conn.Close(false)
			continue
		}

		if cl.tracer.HostDiscovered != nil {
			cl.tracer.HostDiscovered(addr)
		}
		log.Info().Str("addr", addr).Str("server", status.Name).Msg("Discovered new cluster node")
	}
}

// probe checks raw reachability: open a transport connection and close it right away
func (cl *Cluster) probe(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, cl.probeTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
