package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vigia-auth/internal/domain/entity"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/session"
	"github.com/jhoicas/vigia-auth/pkg/jwt"
)

func TestJWTIssuer(t *testing.T) {
	iss := session.NewJWTIssuer(session.Config{Secret: "s", Issuer: "vigia-test"})
	admin := &entity.User{ID: "u1", CompanyID: "c1", IsAdmin: true, PasswordVersion: 4}

	tok, err := iss.IssueSession(admin)
	require.NoError(t, err)
	claims, err := jwt.Parse("s", "vigia-test", tok)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, claims.Role)
	assert.Equal(t, jwt.PurposeSession, claims.Purpose)
	assert.Equal(t, "vigia-test", claims.Issuer)
	assert.Equal(t, 4, claims.PasswordVersion)

	rot, err := iss.IssueRotation(&entity.User{ID: "u2", CompanyID: "c1", PasswordVersion: 2})
	require.NoError(t, err)
	claims, err = jwt.Parse("s", "vigia-test", rot)
	require.NoError(t, err)
	assert.Equal(t, "u2", claims.UserID)
	assert.Equal(t, jwt.PurposePasswordRotation, claims.Purpose)
	assert.Equal(t, 2, claims.PasswordVersion)

	_, err = jwt.Parse("s", "otro-emisor", rot)
	assert.Error(t, err)
}
