package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/Prot0type/portfolio-website/cognito"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("DISABLE_AUTH", "true")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["init-schema"])
	assert.True(t, names["verify-token"])
}

func TestVerifyToken_Malformed(t *testing.T) {
	setTestEnv(t)

	out, err := execute(t, "verify-token", "not-a-jwt", "--issuer", "https://issuer.example.com", "--client-id", "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, cognito.ErrMalformedToken)
	assert.Contains(t, out, "rejected: malformed")
}

func TestVerifyToken_RequiresOneArgument(t *testing.T) {
	setTestEnv(t)

	_, err := execute(t, "verify-token")
	assert.Error(t, err)
}

func TestInitSchema_RequiresPostgres(t *testing.T) {
	setTestEnv(t)

	_, err := execute(t, "init-schema")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATA_BACKEND=postgres")
}

func TestFailureClass(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: bad", cognito.ErrMalformedToken), "malformed"},
		{fmt.Errorf("%w: kid", cognito.ErrUnknownKey), "unknown_key"},
		{cognito.ErrSignatureInvalid, "signature"},
		{cognito.ErrIssuerMismatch, "issuer"},
		{cognito.ErrTokenUseInvalid, "token_use"},
		{cognito.ErrTokenExpired, "expired"},
		{cognito.ErrAudienceMismatch, "audience"},
		{fmt.Errorf("%w: refused", cognito.ErrKeyFetch), "key_fetch"},
		{assert.AnError, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, failureClass(tt.err))
		})
	}
}
