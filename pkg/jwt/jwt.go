package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Propósitos de token. Un token de rotación solo sirve para cambiar la contraseña.
const (
	PurposeSession          = "session"
	PurposePasswordRotation = "password_rotation"
)

// Claims incluye los claims estándar JWT más los campos propios de la aplicación.
// Role y Purpose permiten que el middleware decida sin consultar la DB.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role,omitempty"` // "admin" | "member"
	Purpose   string `json:"purpose"`
	// PasswordVersion del usuario al firmar; si cambió la contraseña el token deja de valer.
	PasswordVersion int `json:"pwv"`
}

// Generate genera un token de sesión firmado que incluye userID, companyID, role y la versión de contraseña.
func Generate(secret, userID, companyID, role, issuer string, pwv, expMinutes int) (string, error) {
	return sign(secret, Claims{
		UserID:          userID,
		CompanyID:       companyID,
		Role:            role,
		Purpose:         PurposeSession,
		PasswordVersion: pwv,
	}, issuer, expMinutes)
}

// GenerateRotation genera el token de corta duración que entrega un login con contraseña temporal.
func GenerateRotation(secret, userID, companyID, issuer string, pwv, expMinutes int) (string, error) {
	return sign(secret, Claims{
		UserID:          userID,
		CompanyID:       companyID,
		Purpose:         PurposePasswordRotation,
		PasswordVersion: pwv,
	}, issuer, expMinutes)
}

func sign(secret string, claims Claims, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse valida el token y devuelve sus claims.
// Solo acepta HS256 y, si issuer no es vacío, exige ese iss.
// Retorna error si el token es inválido, expirado, de otro emisor o tiene firma incorrecta.
func Parse(secret, issuer, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("claims inválidos")
	}
	if claims.Purpose == "" {
		claims.Purpose = PurposeSession
	}
	return claims, nil
}
