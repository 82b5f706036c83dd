// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package authtoken issues and verifies the bearer token that gates the
// PTL diagnostics HTTP API. There is no persistent storage in this system,
// so a single config-supplied shared secret signs every diagnostics token
// instead of a per-client database-issued one.
package authtoken

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims for diagnostics API access.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies diagnostics tokens against one shared secret.
type Issuer struct {
	secret []byte
}

// New creates an Issuer bound to secret. Callers must supply a non-empty
// secret; config.check enforces this before the diagnostics server starts.
func New(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

// Generate creates a signed token for subject, valid for ttl.
func (i *Issuer) Generate(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "ptlsupervisor",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse validates a bearer token and returns its claims.
func (i *Issuer) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	})

	if parsed != nil {
		if claims, ok := parsed.Claims.(*Claims); ok && parsed.Valid {
			return claims, nil
		}
	}

	return nil, err
}
