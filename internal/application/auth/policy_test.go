package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/vigia-auth/internal/application/auth"
	"github.com/jhoicas/vigia-auth/internal/domain"
)

func TestPasswordPolicy_Default(t *testing.T) {
	p := auth.DefaultPasswordPolicy()

	assert.ErrorIs(t, p.Check("12345"), domain.ErrWeakPassword)
	assert.NoError(t, p.Check("123456"))
	assert.NoError(t, p.Check("çãõéíú"), "se cuentan caracteres, no bytes")
	assert.ErrorIs(t, p.Check(strings.Repeat("a", 73)), domain.ErrWeakPassword)
}

func TestPasswordPolicy_LetraYDigito(t *testing.T) {
	p := auth.PasswordPolicy{MinLength: 8, RequireLetter: true, RequireDigit: true}

	assert.ErrorIs(t, p.Check("12345678"), domain.ErrWeakPassword)
	assert.ErrorIs(t, p.Check("abcdefgh"), domain.ErrWeakPassword)
	assert.NoError(t, p.Check("abcd1234"))
}

func TestBcryptHasher(t *testing.T) {
	h := auth.NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("segredo")
	require.NoError(t, err)
	assert.NotEqual(t, "segredo", hash)

	ok, err := h.Verify("segredo", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("outro", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Verify("segredo", "no-es-bcrypt")
	assert.Error(t, err)
}

func TestGenerateResetToken(t *testing.T) {
	tok1, hash1, err := auth.GenerateResetToken()
	require.NoError(t, err)
	tok2, _, err := auth.GenerateResetToken()
	require.NoError(t, err)

	assert.NotEqual(t, tok1, tok2)
	assert.Len(t, tok1, 43, "32 bytes en base64url sin padding")
	assert.Equal(t, hash1, auth.FingerprintToken(tok1))
	assert.NotEqual(t, tok1, hash1)
}
