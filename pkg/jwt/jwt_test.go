package jwt_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/vigia-auth/pkg/jwt"
)

const (
	secret = "test-secret"
	issuer = "vigia-test"
)

func TestGenerateParse_Sesion(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "u1", "c1", "admin", issuer, 3, 5)
	require.NoError(t, err)

	claims, err := pkgjwt.Parse(secret, issuer, tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "c1", claims.CompanyID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, pkgjwt.PurposeSession, claims.Purpose)
	assert.Equal(t, 3, claims.PasswordVersion)
}

func TestGenerateRotation(t *testing.T) {
	tok, err := pkgjwt.GenerateRotation(secret, "u1", "c1", issuer, 1, 5)
	require.NoError(t, err)

	claims, err := pkgjwt.Parse(secret, issuer, tok)
	require.NoError(t, err)
	assert.Equal(t, pkgjwt.PurposePasswordRotation, claims.Purpose)
	assert.Empty(t, claims.Role)
	assert.Equal(t, 1, claims.PasswordVersion)
}

func TestParse_Errores(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "u1", "c1", "member", issuer, 1, 5)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro-secret", issuer, tok)
	assert.Error(t, err, "firma incorrecta")

	expired, err := pkgjwt.Generate(secret, "u1", "c1", "member", issuer, 1, -1)
	require.NoError(t, err)
	_, err = pkgjwt.Parse(secret, issuer, expired)
	assert.Error(t, err, "expirado")

	_, err = pkgjwt.Parse("", issuer, tok)
	assert.Error(t, err)

	_, err = pkgjwt.Generate("", "u1", "c1", "member", issuer, 1, 5)
	assert.Error(t, err)
}

func TestParse_ExigeEmisor(t *testing.T) {
	// Mismo secreto compartido con otro servicio: la firma es válida pero el iss no.
	foreign, err := pkgjwt.Generate(secret, "u1", "c1", "admin", "otro-servicio", 1, 5)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(secret, issuer, foreign)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	// Sin emisor configurado no se compara el iss.
	_, err = pkgjwt.Parse(secret, "", foreign)
	assert.NoError(t, err)
}

func TestParse_SoloHS256(t *testing.T) {
	now := time.Now()
	claims := pkgjwt.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
		UserID:  "u1",
		Purpose: pkgjwt.PurposeSession,
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = pkgjwt.Parse(secret, issuer, hs512)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = pkgjwt.Parse(secret, issuer, none)
	assert.Error(t, err)
}
