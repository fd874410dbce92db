package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/supply-chain-analytics/internal/auth"
	"github.com/ukydev/supply-chain-analytics/internal/models"
)

// AuthHandler handles operator login
type AuthHandler struct {
	authService *auth.Service
	log         *logrus.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

// Login exchanges operator credentials for a token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := decodeJSON(w, r, &loginReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Validate input
	if loginReq.Username == "" || loginReq.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	if err := h.authService.Authenticate(loginReq.Username, loginReq.Password); err != nil {
		if errors.Is(err, auth.ErrLoginDisabled) {
			h.log.Warn("Login attempted but no operator credentials are configured")
		}
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := h.authService.GenerateToken(loginReq.Username)
	if err != nil {
		h.log.WithError(err).Error("Failed to generate token")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	})
}
