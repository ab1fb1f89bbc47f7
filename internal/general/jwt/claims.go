package jwt

import (
	"time"

	"ride-dispatch/internal/domain/user"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const Issuer = "ride-dispatch"

// Claims is the payload of an operator token for the monitoring board.
type Claims struct {
	Role user.Role `json:"role"`
	jwtlib.RegisteredClaims
}

var _ jwtlib.Claims = (*Claims)(nil)

// NewClaims builds claims for subject valid for ttl from now.
func NewClaims(subject string, role user.Role, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		Role: role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}
