// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package router wires HTTP route groups and registers controller handlers
// for the read-only PTL diagnostics API.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sk-pkg/i18n"
	"github.com/sk-pkg/logger"

	"github.com/rtlabs/ptl/internal/http/controller/diagnostics"
	"github.com/rtlabs/ptl/internal/http/middleware"
	"github.com/rtlabs/ptl/internal/ptl"
)

// Core groups the dependencies diagnostics handlers need.
type Core struct {
	Logger     *logger.Manager
	I18n       *i18n.Manager
	Middleware middleware.Middleware
	Registry   *ptl.Registry
}

// New registers internal and external API groups under /ptl.
func New(mux *gin.Engine, core *Core) *gin.Engine {
	api := mux.Group("ptl")

	api.GET("ping", func(c *gin.Context) {
		core.I18n.JSON(c, 0, nil, nil)
	})

	ctrl := diagnostics.New(core.Registry, core.I18n)

	protected := api.Group("")
	protected.Use(core.Middleware.CheckAppAuth())
	protected.GET("trace", ctrl.Trace)
	protected.GET("stats", ctrl.Stats)
	protected.GET("tasks", ctrl.Tasks)
	protected.GET("tasks/:name", ctrl.TaskByName)

	return mux
}
