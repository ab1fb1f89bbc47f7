package token

import (
	"fmt"
	"io"
	"time"

	"ride-dispatch/internal/cli"
	"ride-dispatch/internal/general/config"
)

// Run mints a token for the monitoring board and prints it with its claims.
// An empty secret falls back to admin.jwt_secret from the configuration.
func Run(configPath, subject, role, secret string, ttl time.Duration, out io.Writer) error {
	if secret == "" || ttl <= 0 {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if secret == "" {
			secret = cfg.Admin.JWTSecret
		}
		if ttl <= 0 {
			ttl = cfg.Admin.TokenTTL
		}
	}

	token, claims, err := cli.GenerateToken(secret, ttl, subject, role)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "TOKEN:")
	fmt.Fprintln(out, token)
	fmt.Fprintln(out, "\nCLAIMS:")
	fmt.Fprintf(out, "  sub:  %s\n", claims.Subject)
	fmt.Fprintf(out, "  role: %s\n", claims.Role)
	fmt.Fprintf(out, "  iat:  %s\n", claims.IssuedAt.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "  exp:  %s\n", claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	return nil
}
