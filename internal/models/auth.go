package models

// Claims represents JWT claims for the operator account.
type Claims struct {
	Subject string `json:"sub"`
	Exp     int64  `json:"exp"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}
