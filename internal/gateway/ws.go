package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// clientFrame is the minimal envelope a session sends; unrecognized types
// get an error frame back at the transport boundary.
type clientFrame struct {
	Type   string          `json:"type"`
	Lat    float64         `json:"lat"`
	Lon    float64         `json:"lon"`
	Radius float64         `json:"radius"`
	Data   json.RawMessage `json:"data"`
}

// RegisterRoutes mounts the Fan-out's WebSocket and REST surface on mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/rider/{rider_id}", s.handleRiderWS)
	mux.HandleFunc("GET /ws/driver/{driver_id}", s.handleDriverWS)
	mux.HandleFunc("GET /ws/ride/{ride_id}", s.handleRideWS)
	mux.HandleFunc("GET /ws/nearby-drivers", s.handleNearbyDriversWS)
	mux.HandleFunc("GET /drivers/nearby", s.handleNearbyDriversREST)
}

func (s *Service) handleRiderWS(w http.ResponseWriter, r *http.Request) {
	riderID := r.PathValue("rider_id")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "ws_upgrade_failed", "rider websocket upgrade failed", map[string]any{"error": err.Error()})
		return
	}

	s.riders.add(riderID, conn)
	s.mu.Lock()
	s.connRider[conn] = riderID
	s.mu.Unlock()

	s.logger.Info(r.Context(), "rider_ws_connected", "rider websocket connected", map[string]any{"rider_id": riderID})
	s.serve(conn, func() {
		s.riders.remove(riderID, conn)
	})
}

func (s *Service) handleDriverWS(w http.ResponseWriter, r *http.Request) {
	driverID := r.PathValue("driver_id")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "ws_upgrade_failed", "driver websocket upgrade failed", map[string]any{"error": err.Error()})
		return
	}

	s.drivers.add(driverID, conn)
	s.mu.Lock()
	s.connDriver[conn] = driverID
	s.mu.Unlock()

	s.logger.Info(r.Context(), "driver_ws_connected", "driver websocket connected", map[string]any{"driver_id": driverID})
	s.serve(conn, func() {
		s.drivers.remove(driverID, conn)
	})
}

func (s *Service) handleRideWS(w http.ResponseWriter, r *http.Request) {
	rideID := r.PathValue("ride_id")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "ws_upgrade_failed", "ride websocket upgrade failed", map[string]any{"error": err.Error()})
		return
	}

	s.rides.add(rideID, conn)
	s.mu.Lock()
	s.connRide[conn] = rideID
	s.mu.Unlock()

	s.logger.Info(r.Context(), "ride_ws_connected", "ride websocket connected", map[string]any{"ride_id": rideID})
	s.serve(conn, func() {
		s.rides.remove(rideID, conn)
	})
}

// handleNearbyDriversWS registers the session in the browse set, sends an
// initial all_driver_locations snapshot, then serves get_nearby/get_all
// frames alongside the common heartbeat handling.
func (s *Service) handleNearbyDriversWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "ws_upgrade_failed", "nearby-drivers websocket upgrade failed", map[string]any{"error": err.Error()})
		return
	}

	s.browsers.add(conn)
	_ = s.writeJSON(conn, map[string]any{"type": "all_driver_locations", "drivers": s.allDriverLocations()})

	s.logger.Info(r.Context(), "browse_ws_connected", "nearby-drivers websocket connected", nil)
	s.serve(conn, func() {
		s.browsers.remove(conn)
	})
}

// serve runs the read loop shared by every session kind: ping ticker, pong
// handling, read-deadline resets, and dispatch on the client frame's type.
// cleanup removes the connection from whichever keyed registry it belongs
// to; browsers/reap handle the rest.
func (s *Service) serve(conn *websocket.Conn, cleanup func()) {
	defer func() {
		cleanup()
		s.browsers.remove(conn)
		s.forgetLock(conn)
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				mu := s.lockOf(conn)
				mu.Lock()
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn(context.Background(), "ws_unexpected_close", "websocket closed unexpectedly", map[string]any{"error": err.Error()})
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			_ = s.writeJSON(conn, map[string]any{"type": "error", "error": "malformed frame"})
			continue
		}

		switch frame.Type {
		case "heartbeat":
			_ = s.writeJSON(conn, map[string]any{"type": "heartbeat", "status": "connected"})
		case "get_nearby":
			radius := frame.Radius
			if radius <= 0 {
				radius = 5
			}
			_ = s.writeJSON(conn, map[string]any{"type": "nearby_drivers", "drivers": s.nearbyDrivers(frame.Lat, frame.Lon, radius)})
		case "get_all":
			_ = s.writeJSON(conn, map[string]any{"type": "all_driver_locations", "drivers": s.allDriverLocations()})
		default:
			_ = s.writeJSON(conn, map[string]any{"type": "error", "error": "unknown message type"})
		}
	}
}
