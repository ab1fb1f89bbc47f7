package cli

import (
	"fmt"
	"time"

	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/jwt"
)

// GenerateToken mints a signed token for subject with roleStr, valid for ttl.
// Used by the token mode to hand operators a credential for the monitoring board.
func GenerateToken(secret string, ttl time.Duration, subject, roleStr string) (string, jwt.Claims, error) {
	role, err := user.ParseRole(roleStr)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("invalid role %q: %w", roleStr, err)
	}

	mgr, err := jwt.NewManager(secret, ttl)
	if err != nil {
		return "", jwt.Claims{}, err
	}

	token, claims, err := mgr.Issue(subject, role)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("issue token: %w", err)
	}
	return token, *claims, nil
}
