package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cycleassembly/internal/workflow"
)

func parseTTL() time.Duration {
	if s := os.Getenv("JWT_EXPIRES_IN"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return 24 * time.Hour
}

// TokenTTL is the session lifetime used when signing.
func TokenTTL() time.Duration { return parseTTL() }

func Sign(profileID, userCode string, role workflow.Role, jti string) (string, error) {
	key := []byte(os.Getenv("JWT_SECRET"))
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  profileID,
		"code": userCode,
		"role": string(role),
		"jti":  jti,
		"exp":  now.Add(parseTTL()).Unix(),
		"iat":  now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

func Verify(tokenStr string) (Claims, error) {
	key := []byte(os.Getenv("JWT_SECRET"))
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return Claims{}, errors.New("invalid token")
	}
	mapc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid claims")
	}
	sub, _ := mapc["sub"].(string)
	code, _ := mapc["code"].(string)
	jti, _ := mapc["jti"].(string)
	roleStr, _ := mapc["role"].(string)
	role, err := workflow.ParseRole(roleStr)
	if err != nil {
		return Claims{}, errors.New("invalid role claim")
	}
	return Claims{ProfileID: sub, UserCode: code, Role: role, JWTID: jti}, nil
}
