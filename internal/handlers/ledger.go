package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/telana99/vehicle-record-ledger/internal/ledger"
	"github.com/telana99/vehicle-record-ledger/internal/middleware"
	"github.com/telana99/vehicle-record-ledger/internal/models"
)

// LedgerHandler exposes the ledger operations over HTTP
type LedgerHandler struct {
	ledger *ledger.Ledger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(l *ledger.Ledger) *LedgerHandler {
	return &LedgerHandler{ledger: l}
}

// Centers handles the service-center registry: POST authorizes a center,
// DELETE deactivates one (both owner-only), GET returns the public
// authorization status and display name for a principal.
func (h *LedgerHandler) Centers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.addCenter(w, r)
	case http.MethodDelete:
		h.removeCenter(w, r)
	case http.MethodGet:
		h.centerStatus(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *LedgerHandler) addCenter(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "Caller context not found", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req models.AddCenterRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.ledger.AddServiceCenter(r.Context(), caller, req.Principal, req.Name); err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.ledger.GetServiceCenter(req.Principal))
}

func (h *LedgerHandler) removeCenter(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "Caller context not found", http.StatusUnauthorized)
		return
	}

	center := models.Principal(r.URL.Query().Get("principal"))
	if center == "" {
		http.Error(w, "principal query parameter is required", http.StatusBadRequest)
		return
	}

	if err := h.ledger.RemoveServiceCenter(r.Context(), caller, center); err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Service center removed"})
}

func (h *LedgerHandler) centerStatus(w http.ResponseWriter, r *http.Request) {
	center := models.Principal(r.URL.Query().Get("principal"))
	if center == "" {
		http.Error(w, "principal query parameter is required", http.StatusBadRequest)
		return
	}

	// Pure lookup: unknown principals yield {active: false, name: ""}.
	writeJSON(w, http.StatusOK, h.ledger.GetServiceCenter(center))
}

// Records handles service records: POST appends one (active centers only),
// GET returns the vehicle history, or a single record when index is given.
func (h *LedgerHandler) Records(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.addRecord(w, r)
	case http.MethodGet:
		h.getRecords(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *LedgerHandler) addRecord(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "Caller context not found", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req models.AddRecordRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	record, err := h.ledger.AddServiceRecord(r.Context(), caller, req.VehicleID, req.ServiceType, req.Mileage, req.Description)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

func (h *LedgerHandler) getRecords(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.URL.Query().Get("vehicle_id")
	if vehicleID == "" {
		http.Error(w, "vehicle_id query parameter is required", http.StatusBadRequest)
		return
	}

	if indexStr := r.URL.Query().Get("index"); indexStr != "" {
		index, err := strconv.Atoi(indexStr)
		if err != nil {
			http.Error(w, "index must be an integer", http.StatusBadRequest)
			return
		}
		record, err := h.ledger.GetServiceRecordByIndex(vehicleID, index)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
		return
	}

	writeJSON(w, http.StatusOK, models.HistoryResponse{
		VehicleID: vehicleID,
		Records:   h.ledger.GetServiceHistory(vehicleID),
	})
}

// RecordCount returns the number of records for a vehicle
func (h *LedgerHandler) RecordCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	vehicleID := r.URL.Query().Get("vehicle_id")
	if vehicleID == "" {
		http.Error(w, "vehicle_id query parameter is required", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, models.CountResponse{
		VehicleID: vehicleID,
		Count:     h.ledger.GetRecordCount(vehicleID),
	})
}

// Info returns the ledger address and owner. Deployment tooling records the
// address and supplies it to later client connections.
func (h *LedgerHandler) Info(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, models.LedgerInfoResponse{
		Address: h.ledger.Address(),
		Owner:   h.ledger.Owner(),
	})
}

// Health is a liveness endpoint
func (h *LedgerHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeLedgerError maps the ledger error taxonomy onto HTTP statuses with a
// distinguishable code in the body.
func writeLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		status, code = http.StatusForbidden, "unauthorized"
	case errors.Is(err, ledger.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, ledger.ErrAlreadyExists):
		status, code = http.StatusConflict, "already_exists"
	case errors.Is(err, ledger.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, ledger.ErrOutOfBounds):
		status, code = http.StatusNotFound, "out_of_bounds"
	}
	writeJSON(w, status, models.ErrorResponse{Code: code, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
