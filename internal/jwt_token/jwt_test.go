package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "docket/pkg/domain-errors"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewService("test-signing-key", "docket", 15*time.Minute)

	token, err := svc.GenerateToken("ops@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Operator)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "docket", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateTokenRequiresOperator(t *testing.T) {
	svc := NewService("test-signing-key", "docket", 15*time.Minute)
	_, err := svc.GenerateToken("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	issuing := NewService("key-a", "docket", 15*time.Minute)
	validating := NewService("key-b", "docket", 15*time.Minute)

	token, err := issuing.GenerateToken("ops@example.com")
	require.NoError(t, err)

	_, err = validating.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewService("test-signing-key", "docket", -time.Minute)

	token, err := svc.GenerateToken("ops@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	other := NewService("test-signing-key", "someone-else", 15*time.Minute)
	svc := NewService("test-signing-key", "docket", 15*time.Minute)

	token, err := other.GenerateToken("ops@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewService("test-signing-key", "docket", 15*time.Minute)
	_, err := svc.ValidateToken("not.a.token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
