package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var errInvalidToken = errors.New("invalid or expired token")

type sessionClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// tokenIssuer mints and checks HMAC-signed session tokens. Changing the secret
// invalidates every token issued before.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func newTokenIssuer(secret string, ttl time.Duration) *tokenIssuer {
	return &tokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (ti *tokenIssuer) issue(id identity) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		UserID: id.ID,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

func (ti *tokenIssuer) verify(tokenStr string) (identity, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil {
		return identity{}, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" || claims.ExpiresAt == nil {
		return identity{}, errInvalidToken
	}
	return identity{ID: claims.UserID, Email: claims.Email}, nil
}
