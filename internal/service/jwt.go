package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

// InitJWT sets the signing secret for admin dashboard tokens. With an empty
// secret the admin HTTP API stays disabled.
func InitJWT(secret string) {
	jwtSecret = []byte(secret)
}

// JWTEnabled reports whether admin tokens can be issued.
func JWTEnabled() bool {
	return len(jwtSecret) > 0
}

// GenerateAdminToken mints a 24h token for an allow-listed admin.
func GenerateAdminToken(adminID int64) (string, error) {
	if !JWTEnabled() {
		return "", errors.New("jwt secret not configured")
	}

	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"admin_id": adminID,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
		"iat":      now,
		"nbf":      now,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseAdminToken validates a token and returns the admin's Telegram ID.
func ParseAdminToken(tokenString string) (int64, error) {
	if !JWTEnabled() {
		return 0, errors.New("jwt secret not configured")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid claims")
	}

	now := time.Now().Unix()
	if exp, ok := claims["exp"].(float64); ok && int64(exp) < now {
		return 0, errors.New("token expired")
	}
	if nbf, ok := claims["nbf"].(float64); ok && int64(nbf) > now {
		return 0, errors.New("token not valid yet")
	}

	adminID, ok := claims["admin_id"].(float64)
	if !ok {
		return 0, errors.New("admin_id not found")
	}
	return int64(adminID), nil
}
