package auth

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the typed JWT issued when a review session starts.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}
