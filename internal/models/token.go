package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are the JWT claims carried by access and refresh tokens. The
// JTI of an access token doubles as its active-session key.
type TokenClaims struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id"`
	Handle    string `json:"handle"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}
