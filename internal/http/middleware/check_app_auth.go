// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/rtlabs/ptl/internal/pkg/e"
)

// CheckAppAuth returns middleware that validates diagnostics bearer tokens.
//
// Behavior:
//   - Parses and verifies the token from the Authorization header.
//   - Writes a localized error response and aborts the request on failure.
func (m middleware) CheckAppAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		errCode, err := m.checkByToken(c)
		if errCode != e.SUCCESS {
			m.i18n.JSON(c, errCode, nil, err)
			c.Abort()
			return
		}

		c.Next()
	}
}

// checkByToken validates a bearer token and injects the caller's subject
// into the Gin context.
func (m middleware) checkByToken(c *gin.Context) (errCode int, err error) {
	errCode = e.InvalidParams

	token := strings.TrimPrefix(c.Request.Header.Get("Authorization"), "Bearer ")
	if token != "" {
		errCode = e.SUCCESS

		claims, parseErr := m.tokens.Parse(token)
		if parseErr != nil {
			err = parseErr
			switch {
			case errors.Is(parseErr, jwt.ErrTokenExpired):
				errCode = e.ServerAuthorizationExpired
			default:
				errCode = e.ServerUnauthorized
			}
		} else {
			c.Set("subject", claims.Subject)
		}
	}

	return
}
