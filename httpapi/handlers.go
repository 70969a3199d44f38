package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/portalkit/authgate"
)

// genericResetMessage is returned for every allowed reset request, whether or
// not an account exists for the address.
const genericResetMessage = "If an account exists for that address, password reset instructions have been sent."

// ResetService is the slice of the engine the handlers need.
type ResetService interface {
	RequestReset(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Handler serves the password reset endpoints.
type Handler struct {
	service  ResetService
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler builds a Handler. A nil logger disables logging.
func NewHandler(service ResetService, logger *zerolog.Logger) *Handler {
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	return &Handler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// Routes returns the reset endpoints, mountable under /api/auth.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/request-reset", h.requestReset)
	r.Post("/validate-reset-token", h.validateResetToken)
	r.Post("/reset-password", h.resetPassword)
	return r
}

type requestResetRequest struct {
	Email string `json:"email" validate:"required"`
}

func (h *Handler) requestReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.RequestReset(r.Context(), req.Email)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": genericResetMessage})
	case errors.Is(err, authgate.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "A valid email address is required")
	case errors.Is(err, authgate.ErrResetRateLimited):
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", err.Error())
	default:
		h.log.Error().Err(err).Msg("reset request failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

type validateTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *Handler) validateResetToken(w http.ResponseWriter, r *http.Request) {
	var req validateTokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.ValidateResetToken(r.Context(), req.Token)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"valid": true})
	case errors.Is(err, authgate.ErrTokenUsed):
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": "USED"})
	case errors.Is(err, authgate.ErrTokenExpired):
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": "EXPIRED"})
	case errors.Is(err, authgate.ErrTokenInvalid):
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": "INVALID"})
	default:
		h.log.Error().Err(err).Msg("token validation failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset successfully"})
	case errors.Is(err, authgate.ErrTokenExpired):
		writeError(w, http.StatusBadRequest, "EXPIRED_TOKEN", "This reset link has expired, please request a new one")
	case errors.Is(err, authgate.ErrTokenInvalid):
		writeError(w, http.StatusBadRequest, "INVALID_TOKEN", "This reset link is invalid or has already been used")
	case errors.Is(err, authgate.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", "Password must be at least 8 characters")
	default:
		h.log.Error().Err(err).Msg("password reset failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

// decode unmarshals and validates the request body, writing the error
// response itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be valid JSON")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Missing required fields")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
