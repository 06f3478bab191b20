// Package gateway is the Fan-out: it owns no database writes, only WebSocket
// sessions and a private geo.LiveIndex, and exists so bus-consumer callbacks
// never call into session I/O synchronously (ride/driver services only
// publish; this is the one place deliveries turn into pushed frames).
// The upgrade and per-connection write-lock idiom follows this module's
// websocket adapter pattern, generalized from one registry to three
// (rider/driver/ride) plus a browse set, with session/broadcast semantics
// matching the connection manager this system replaces.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsCloseAckWindow = 5 * time.Second
	wsReadDeadline   = 60 * time.Second
	wsPingInterval   = 30 * time.Second
)

// registry is a set-valued index from a key (rider_id, driver_id, ride_id) to
// the live connections registered under it. One mutex per registry: the
// three gateway indexes are independent and contention between them would be
// wasted serialization.
type registry struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]struct{}
}

func newRegistry() *registry {
	return &registry{conns: make(map[string]map[*websocket.Conn]struct{})}
}

func (r *registry) add(key string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[key]
	if !ok {
		set = make(map[*websocket.Conn]struct{})
		r.conns[key] = set
	}
	set[conn] = struct{}{}
}

func (r *registry) remove(key string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[key]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.conns, key)
	}
}

// snapshot copies the connections registered under key so broadcast never
// holds the lock while writing to a socket.
func (r *registry) snapshot(key string) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.conns[key]
	if !ok {
		return nil
	}
	out := make([]*websocket.Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// browseSet is a plain set registry for connections with no single key
// (nearby-drivers browsers), keyed by the connection itself.
type browseSet struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

func newBrowseSet() *browseSet {
	return &browseSet{conns: make(map[*websocket.Conn]struct{})}
}

func (b *browseSet) add(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conns[conn] = struct{}{}
}

func (b *browseSet) remove(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, conn)
}

func (b *browseSet) snapshot() []*websocket.Conn {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*websocket.Conn, 0, len(b.conns))
	for c := range b.conns {
		out = append(out, c)
	}
	return out
}

// lockOf returns the per-connection write mutex, creating one on first use.
func (s *Service) lockOf(conn *websocket.Conn) *sync.Mutex {
	if v, ok := s.writeLocks.Load(conn); ok {
		return v.(*sync.Mutex)
	}
	mu := &sync.Mutex{}
	actual, _ := s.writeLocks.LoadOrStore(conn, mu)
	return actual.(*sync.Mutex)
}

func (s *Service) forgetLock(conn *websocket.Conn) {
	s.writeLocks.Delete(conn)
}

// writeJSON marshals v and writes it as a single text frame, serialized
// against concurrent writers (the ping goroutine and the handler goroutine)
// by the connection's write lock.
func (s *Service) writeJSON(conn *websocket.Conn, v any) error {
	mu := s.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v)
}

func (s *Service) writeClose(conn *websocket.Conn, code int, reason string) {
	mu := s.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsCloseAckWindow))
}

// pushToRider sends v to every session registered under riderID, reaping any
// connection the write fails on from every index it might be in.
func (s *Service) pushToRider(ctx context.Context, riderID string, v any) {
	s.broadcast(ctx, s.riders.snapshot(riderID), v)
}

func (s *Service) pushToDriver(ctx context.Context, driverID string, v any) {
	s.broadcast(ctx, s.drivers.snapshot(driverID), v)
}

func (s *Service) pushToRide(ctx context.Context, rideID string, v any) {
	s.broadcast(ctx, s.rides.snapshot(rideID), v)
}

func (s *Service) broadcast(ctx context.Context, conns []*websocket.Conn, v any) {
	for _, conn := range conns {
		if err := s.writeJSON(conn, v); err != nil {
			s.logger.Warn(ctx, "ws_push_failed", "send failed, reaping session", map[string]any{"error": err.Error()})
			s.reap(conn)
		}
	}
}

// reap drops a connection from every index it may be registered in. Called
// on any write failure; no retry.
func (s *Service) reap(conn *websocket.Conn) {
	s.mu.RLock()
	riderKey := s.connRider[conn]
	driverKey := s.connDriver[conn]
	rideKey := s.connRide[conn]
	s.mu.RUnlock()

	if riderKey != "" {
		s.riders.remove(riderKey, conn)
	}
	if driverKey != "" {
		s.drivers.remove(driverKey, conn)
	}
	if rideKey != "" {
		s.rides.remove(rideKey, conn)
	}
	s.browsers.remove(conn)

	s.mu.Lock()
	delete(s.connRider, conn)
	delete(s.connDriver, conn)
	delete(s.connRide, conn)
	s.mu.Unlock()

	s.forgetLock(conn)
	_ = conn.Close()
}
