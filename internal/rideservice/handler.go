package rideservice

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"ride-hail/internal/common/log"
	"ride-hail/internal/domain/ride"
	"ride-hail/internal/ports"
)

// HTTPHandler adapts HTTP requests onto the Ride Service's RideService
// boundary. It exposes only the entry point this service needs to be
// reachable at all: creating a ride request. A full CRUD façade for
// reading/editing rides is an external collaborator's job, not this one
// endpoint's.
type HTTPHandler struct {
	svc    ports.RideService
	logger *log.Logger
}

// NewHTTPHandler wires an HTTP handler around the RideService.
func NewHTTPHandler(svc ports.RideService, logger *log.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the ride-creation endpoint on mux.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /rides", h.handleCreateRide)
	mux.HandleFunc("GET /rides/health", h.handleHealth)
}

type createRideRequest struct {
	RiderID              string  `json:"rider_id"`
	PickupLatitude       float64 `json:"pickup_lat"`
	PickupLongitude      float64 `json:"pickup_lon"`
	PickupAddress        string  `json:"pickup_address"`
	DestinationLatitude  float64 `json:"destination_lat"`
	DestinationLongitude float64 `json:"destination_lon"`
	DestinationAddress   string  `json:"destination_address"`
	VehicleType          string  `json:"vehicle_type"`
}

type createRideResponse struct {
	RideID int64  `json:"ride_id"`
	Status string `json:"status"`
}

func (h *HTTPHandler) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	ctx := h.withReqID(r.Context(), r)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		h.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	var req createRideRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			h.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		h.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	if strings.TrimSpace(req.RiderID) == "" {
		h.httpError(ctx, w, http.StatusBadRequest, "rider_id is required", nil)
		return
	}

	vt, err := ride.ParseVehicleType(req.VehicleType)
	if err != nil {
		h.httpError(ctx, w, http.StatusBadRequest, "vehicle_type must be one of: bike, sedan, suv", err)
		return
	}

	in := ports.CreateRideInput{
		RiderID:       strings.TrimSpace(req.RiderID),
		PickupLat:     req.PickupLatitude,
		PickupLon:     req.PickupLongitude,
		PickupAddress: strings.TrimSpace(req.PickupAddress),
		DestLat:       req.DestinationLatitude,
		DestLon:       req.DestinationLongitude,
		DestAddress:   strings.TrimSpace(req.DestinationAddress),
		VehicleType:   vt,
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rideID, err := h.svc.CreateRideRequest(ctxTimeout, in)
	if err != nil {
		if rideID == 0 {
			h.httpError(ctxTimeout, w, http.StatusBadRequest, err.Error(), err)
			return
		}
		// the row committed but the publish failed: the ride exists but the
		// Matching Service will never see it without a re-drive mechanism
		// (§9 open question, not resolved here).
		h.httpError(ctxTimeout, w, http.StatusAccepted, "ride created but not yet queued for matching", err)
		return
	}

	h.jsonResponse(ctxTimeout, w, http.StatusCreated, createRideResponse{RideID: rideID, Status: ride.StatusRequested.String()})
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	buf, err := json.Marshal(data)
	if err != nil {
		h.logger.Error(ctx, "response_encode_failed", "failed to encode response", err, nil)
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

func (h *HTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	}
	h.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	h.jsonResponse(ctx, w, status, errBody{Error: msg})
}

func (h *HTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return h.logger.WithRequestID(ctx, reqID)
}

func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
