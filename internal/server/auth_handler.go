package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	authservice "github.com/findoc-labs/findoc-analyzer/internal/domain/auth/service"
)

// AuthHandler serves registration and login
type AuthHandler struct {
	svc    *authservice.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *authservice.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TenantID string `json:"tenant_id,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID      string `json:"user_id"`
	TenantID    string `json:"tenant_id"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
	CreatedAt   string `json:"created_at"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	params := authservice.RegisterParams{Email: req.Email, Password: req.Password}
	if req.TenantID != "" {
		tenantID, err := uuid.Parse(req.TenantID)
		if err == nil {
			params.TenantID = tenantID
		}
	}

	result, err := h.svc.Register(r.Context(), params)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuthResponse(result))
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.svc.Login(r.Context(), authservice.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

func toAuthResponse(result *authservice.AuthResult) authResponse {
	return authResponse{
		UserID:      result.User.ID.String(),
		TenantID:    result.User.TenantID.String(),
		Email:       result.User.Email,
		AccessToken: result.AccessToken,
		CreatedAt:   result.User.CreatedAt.Format(time.RFC3339),
	}
}
