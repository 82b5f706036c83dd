// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package middleware provides shared Gin middleware used by the
// diagnostics API.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sk-pkg/i18n"
	"github.com/sk-pkg/logger"

	"github.com/rtlabs/ptl/internal/pkg/authtoken"
	"github.com/rtlabs/ptl/internal/pkg/trace"
)

type (
	// Middleware groups all middleware factories used by the diagnostics
	// router.
	Middleware interface {
		// CheckAppAuth validates diagnostics bearer tokens.
		CheckAppAuth() gin.HandlerFunc

		// Cors adds CORS headers and handles preflight requests.
		Cors() gin.HandlerFunc

		// RequestLogger emits structured logs for incoming requests.
		RequestLogger() gin.HandlerFunc

		// SetTraceID attaches trace IDs to requests and responses.
		SetTraceID() gin.HandlerFunc
	}

	// middleware is the default Middleware implementation.
	middleware struct {
		logger  *logger.Manager
		i18n    *i18n.Manager
		tokens  *authtoken.Issuer
		traceID *trace.ID
	}
)

// New creates a middleware factory with shared runtime dependencies.
func New(logger *logger.Manager, i18n *i18n.Manager, tokens *authtoken.Issuer, traceID *trace.ID) Middleware {
	return &middleware{logger: logger, i18n: i18n, tokens: tokens, traceID: traceID}
}
