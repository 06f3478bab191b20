package driverservice

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ride-hail/internal/common/log"
	"ride-hail/internal/ports"
)

// HTTPHandler adapts HTTP requests onto the Driver Service's DriverService
// boundary: availability, position, and the driver-initiated leg of the ride
// FSM. The availability and location handlers write the drivers table and
// then publish; the accept/start/complete handlers only publish to
// ride-updates and never touch ride rows.
type HTTPHandler struct {
	svc    ports.DriverService
	logger *log.Logger
}

// NewHTTPHandler wires an HTTP handler around the DriverService.
func NewHTTPHandler(svc ports.DriverService, logger *log.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the driver operational endpoints on mux.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /drivers/{driver_id}/availability", h.handleAvailability)
	mux.HandleFunc("POST /drivers/{driver_id}/location", h.handleLocation)
	mux.HandleFunc("POST /drivers/{driver_id}/rides/{ride_id}/accept", h.handleAccept)
	mux.HandleFunc("POST /drivers/{driver_id}/rides/{ride_id}/start", h.handleStart)
	mux.HandleFunc("POST /drivers/{driver_id}/rides/{ride_id}/complete", h.handleComplete)
	mux.HandleFunc("GET /drivers/health", h.handleHealth)
}

type availabilityRequest struct {
	Online bool `json:"online"`
}

func (h *HTTPHandler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := h.withReqID(r.Context(), r)
	driverID := r.PathValue("driver_id")

	var req availabilityRequest
	if err := h.decode(w, r, &req); err != nil {
		h.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.svc.UpdateDriverAvailability(ctxTimeout, driverID, req.Online); err != nil {
		h.httpError(ctxTimeout, w, http.StatusInternalServerError, err.Error(), err)
		return
	}
	h.jsonResponse(ctxTimeout, w, http.StatusOK, map[string]any{"driver_id": driverID, "online": req.Online})
}

type locationRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (h *HTTPHandler) handleLocation(w http.ResponseWriter, r *http.Request) {
	ctx := h.withReqID(r.Context(), r)
	driverID := r.PathValue("driver_id")

	var req locationRequest
	if err := h.decode(w, r, &req); err != nil {
		h.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.svc.UpdateDriverLocation(ctxTimeout, driverID, req.Lat, req.Lon); err != nil {
		h.httpError(ctxTimeout, w, http.StatusInternalServerError, err.Error(), err)
		return
	}
	h.jsonResponse(ctxTimeout, w, http.StatusOK, map[string]any{"driver_id": driverID, "lat": req.Lat, "lon": req.Lon})
}

func (h *HTTPHandler) handleAccept(w http.ResponseWriter, r *http.Request) {
	h.handleRideAction(w, r, h.svc.AcceptRide)
}

func (h *HTTPHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	h.handleRideAction(w, r, h.svc.StartRide)
}

type completeRequest struct {
	Fare float64 `json:"fare"`
}

func (h *HTTPHandler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := h.withReqID(r.Context(), r)
	driverID := r.PathValue("driver_id")

	rideID, err := h.rideIDFromPath(r)
	if err != nil {
		h.httpError(ctx, w, http.StatusBadRequest, "ride_id must be numeric", err)
		return
	}

	var req completeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}
	if req.Fare <= 0 {
		h.httpError(ctx, w, http.StatusBadRequest, "fare is required and must be positive", nil)
		return
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.svc.CompleteRide(ctxTimeout, driverID, rideID, req.Fare); err != nil {
		h.httpError(ctxTimeout, w, http.StatusInternalServerError, err.Error(), err)
		return
	}
	h.jsonResponse(ctxTimeout, w, http.StatusOK, map[string]any{"ride_id": rideID, "driver_id": driverID, "status": "completed"})
}

func (h *HTTPHandler) handleRideAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, driverID string, rideID int64) error) {
	ctx := h.withReqID(r.Context(), r)
	driverID := r.PathValue("driver_id")

	rideID, err := h.rideIDFromPath(r)
	if err != nil {
		h.httpError(ctx, w, http.StatusBadRequest, "ride_id must be numeric", err)
		return
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := action(ctxTimeout, driverID, rideID); err != nil {
		h.httpError(ctxTimeout, w, http.StatusInternalServerError, err.Error(), err)
		return
	}
	h.jsonResponse(ctxTimeout, w, http.StatusOK, map[string]any{"ride_id": rideID, "driver_id": driverID})
}

func (h *HTTPHandler) rideIDFromPath(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("ride_id"), 10, 64)
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
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
