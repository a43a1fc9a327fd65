package utils // package utils provides helpers for the bearer tokens issued by the auth service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

// Claims is the subset of an access token the ledger relies on.
type Claims struct {
	UserID uint64
	Role   string
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The ledger
// never issues tokens in production; the auth service does, with the same
// claim layout: subject (sub), role, expiration (exp) and issued at (iat).
func NewAccessToken(secret string, userID uint64, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(userID, 10),
		"role": role,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAccessToken verifies an HS256 token and extracts its claims.  The
// subject may be encoded as a string or a number.
func ParseAccessToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject anything that is not HMAC signed.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, err
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Claims{}, errors.New("invalid claims")
	}
	var id uint64
	switch v := mc["sub"].(type) {
	case string:
		id, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Claims{}, errors.New("invalid subject")
		}
	case float64:
		id = uint64(v)
	default:
		return Claims{}, errors.New("missing subject")
	}
	if id == 0 {
		return Claims{}, errors.New("invalid subject")
	}
	role, _ := mc["role"].(string)
	return Claims{UserID: id, Role: role}, nil
}
