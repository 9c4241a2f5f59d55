package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"math/big"

	"github.com/samber/oops"
)

const (
	resetTokenBytes        = 32
	temporaryPasswordLen   = 12
	temporaryPasswordChars = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
)

// GenerateResetToken devuelve el token plano (para el correo) y su huella (para la DB).
func GenerateResetToken() (token, hash string, err error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", oops.Code("RESET_TOKEN_GENERATE_FAILED").In("auth").Wrap(err)
	}
	token = base64.RawURLEncoding.EncodeToString(b)
	return token, FingerprintToken(token), nil
}

// FingerprintToken SHA-256 en base64url. Es lo único que se guarda del token.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// generateTemporaryPassword sin caracteres ambiguos (0/O, 1/l/I) porque se dicta por teléfono.
func generateTemporaryPassword() (string, error) {
	out := make([]byte, temporaryPasswordLen)
	max := big.NewInt(int64(len(temporaryPasswordChars)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", oops.Code("TEMP_PASSWORD_GENERATE_FAILED").In("auth").Wrap(err)
		}
		out[i] = temporaryPasswordChars[n.Int64()]
	}
	return string(out), nil
}
