package domain

import "time"

// AuthClaims represents validated JWT claims
type AuthClaims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthService issues and validates operator bearer tokens for order intake.
type AuthService interface {
	GenerateAccessToken(subject string, ttl time.Duration) (string, error)
	ValidateToken(token string) (*AuthClaims, error)
}
