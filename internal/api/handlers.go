// Package api is the reference implementation of the remote sync
// endpoint: JWT-authenticated register/login/refresh plus the combined
// push+pull delta operation over an in-memory versioned record store.
// It backs `studysync serve` and the end-to-end tests.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	syncpkg "github.com/hyperengineering/studysync/internal/sync"
)

// Handler implements the API handlers
type Handler struct {
	users    *userStore
	records  *recordStore
	issuer   *tokenIssuer
	validate *validator.Validate
	version  string
}

// NewHandler creates a Handler with fresh in-memory state. jwtSecret
// signs every token the server issues.
func NewHandler(jwtSecret, version string) *Handler {
	return &Handler{
		users:    newUserStore(),
		records:  newRecordStore(),
		issuer:   newTokenIssuer(jwtSecret),
		validate: validator.New(),
		version:  version,
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{Status: "healthy", Version: h.version})
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type authResponse struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Register handles POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteProblem(w, r, http.StatusUnprocessableEntity, "Email must be valid and password at least 8 characters")
		return
	}

	u, err := h.users.Register(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			WriteProblem(w, r, http.StatusConflict, "Email already registered")
			return
		}
		slog.Error("register failed", "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	h.writeAuthResponse(w, r, u.ID)
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	u, err := h.users.Authenticate(req.Email, req.Password)
	if err != nil {
		WriteProblem(w, r, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	h.writeAuthResponse(w, r, u.ID)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /api/v1/auth/refresh: trades a valid refresh
// token for a new token pair. The old refresh token is not revoked; the
// reference server keeps no token state.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	userID, err := h.issuer.Verify(req.RefreshToken, "refresh")
	if err != nil {
		WriteProblem(w, r, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	h.writeAuthResponse(w, r, userID)
}

func (h *Handler) writeAuthResponse(w http.ResponseWriter, r *http.Request, userID string) {
	access, refresh, err := h.issuer.IssuePair(userID)
	if err != nil {
		slog.Error("token issue failed", "error", err, "user_id", userID)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, authResponse{UserID: userID, AccessToken: access, RefreshToken: refresh})
}

// Delta handles POST /api/v1/sync/delta: one combined push+pull
// exchange against the caller's feed.
func (h *Handler) Delta(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	var req syncpkg.DeltaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	var pushRecords []syncpkg.ChangeRecord
	if req.Push != nil {
		pushRecords = req.Push.Records
	}
	var checkpoint string
	if req.Pull != nil {
		checkpoint = req.Pull.Checkpoint
	}

	pushResult, pullResult := h.records.Delta(userID, pushRecords, checkpoint)

	resp := syncpkg.DeltaResponse{Push: pushResult, Pull: pullResult}
	if req.Pull == nil {
		resp.Pull = nil
	}

	slog.Info("delta",
		"user_id", userID,
		"client_id", ClientIDFromContext(r.Context()),
		"pushed", len(pushRecords),
		"synced", pushResult.Synced,
		"conflicts", len(pushResult.Conflicts),
	)

	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
