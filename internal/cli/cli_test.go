package cli

import (
	"bytes"
	"testing"
	"time"

	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		args     []string
		mode     string
		rest     []string
		wantFail bool
	}{
		{args: []string{"--mode=engine", "--max-concurrent=5"}, mode: ModeEngine, rest: []string{"--max-concurrent=5"}},
		{args: []string{"d", "--id=joao"}, mode: ModeDriver, rest: []string{"--id=joao"}},
		{args: []string{"--mode=dispatch-engine"}, mode: ModeEngine},
		{args: []string{"ctl", "list", "PENDING"}, mode: ModeCtl, rest: []string{"list", "PENDING"}},
		{args: []string{"key", "--role=ADMIN"}, mode: ModeToken, rest: []string{"--role=ADMIN"}},
		{args: []string{"--id=joao"}, wantFail: true},
		{args: []string{"--mode=bogus"}, wantFail: true},
	}

	for _, tt := range tests {
		mode, rest, err := ParseMode(tt.args)
		if tt.wantFail {
			assert.Error(t, err, tt.args)
			continue
		}
		require.NoError(t, err, tt.args)
		assert.Equal(t, tt.mode, mode)
		assert.Equal(t, tt.rest, rest)
	}
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	for _, mode := range []string{ModeEngine, ModeDriver, ModePassenger, ModeCtl, ModeDemo, ModeToken} {
		assert.Contains(t, buf.String(), mode)
	}
}

func TestGenerateToken(t *testing.T) {
	raw, claims, err := GenerateToken("s3cret", time.Hour, "ops", "admin")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, claims.Role)

	mgr, err := jwt.NewManager("s3cret", time.Hour)
	require.NoError(t, err)
	parsed, err := mgr.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "ops", parsed.Subject)

	_, _, err = GenerateToken("s3cret", time.Hour, "ops", "root")
	assert.ErrorIs(t, err, user.ErrInvalidRole)

	_, _, err = GenerateToken("", time.Hour, "ops", "ADMIN")
	assert.ErrorIs(t, err, jwt.ErrEmptySecret)
}
