package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/telana99/vehicle-record-ledger/internal/auth"
	"github.com/telana99/vehicle-record-ledger/internal/models"
)

// AuthHandler handles principal credential requests
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register creates a credential for a new principal
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var registerReq models.RegisterRequest
	if err := json.Unmarshal(body, &registerReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	cred, err := h.authService.Register(r.Context(), registerReq.Principal, registerReq.Secret)
	if err != nil {
		if errors.Is(err, auth.ErrPrincipalExists) {
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Code: "already_exists", Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Code: "invalid_argument", Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]models.Principal{"principal": cred.Principal})
}

// Token exchanges a principal credential for a bearer token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var tokenReq models.TokenRequest
	if err := json.Unmarshal(body, &tokenReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if tokenReq.Principal == "" || tokenReq.Secret == "" {
		http.Error(w, "Principal and secret are required", http.StatusBadRequest)
		return
	}

	token, err := h.authService.IssueToken(r.Context(), tokenReq.Principal, tokenReq.Secret)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Code: "invalid_credentials", Error: "invalid credentials"})
		return
	}

	writeJSON(w, http.StatusOK, models.TokenResponse{Token: token, Principal: tokenReq.Principal})
}
