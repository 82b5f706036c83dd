// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package bootstrap initializes service dependencies and starts runtime workers.
package bootstrap

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sk-pkg/i18n"
	"github.com/sk-pkg/logger"

	"github.com/rtlabs/ptl/internal/config"
	"github.com/rtlabs/ptl/internal/http/middleware"
	"github.com/rtlabs/ptl/internal/pkg/authtoken"
	"github.com/rtlabs/ptl/internal/pkg/trace"
	"github.com/rtlabs/ptl/internal/ptl"
	"github.com/rtlabs/ptl/internal/ptl/kernel"
	"github.com/rtlabs/ptl/internal/ptl/ring"
	"github.com/rtlabs/ptl/internal/ptl/simkernel"
)

// App stores initialized dependencies required by the diagnostics HTTP API
// and the PTL supervisor.
type App struct {
	Config     *config.Config
	Logger     *logger.Manager
	I18n       *i18n.Manager
	Middleware middleware.Middleware
	Mux        *gin.Engine
	TraceID    *trace.ID
	Tokens     *authtoken.Issuer

	Kernel   kernel.Kernel
	Ring     *ring.Ring
	Registry *ptl.Registry
}

// NewApp creates a fully initialized application container.
func NewApp(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	// Trace IDs must be ready before logger initialization.
	a.loadTrace()

	ctx := context.WithValue(context.Background(), logger.TraceIDKey, a.TraceID.New())

	if err := a.loadLogger(ctx); err != nil {
		return nil, err
	}

	if err := a.loadI18n(ctx); err != nil {
		return nil, err
	}

	a.loadTokens(ctx)
	a.loadHTTPMiddlewares(ctx)
	a.loadMux(ctx)

	if err := a.loadPTL(ctx); err != nil {
		return nil, err
	}

	return a, nil
}

// Start launches all background subsystems of the application.
//
// Behavior:
//   - Starts the diagnostics HTTP server and the PTL supervisor
//     concurrently.
func (a *App) Start() {
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, a.TraceID.New())

	if a.Config.Diagnostics.Enable {
		go a.startHTTPServer(ctx)
	}

	go a.startSupervisor(ctx)
}

// loadTrace initializes the trace ID generator.
func (a *App) loadTrace() {
	a.TraceID = trace.NewTraceID()
}

// loadLogger initializes the logger manager.
func (a *App) loadLogger(ctx context.Context) error {
	var err error
	a.Logger, err = logger.New(
		logger.WithLevel(a.Config.Log.Level),
		logger.WithDriver(a.Config.Log.Driver),
		logger.WithLogPath(a.Config.Log.LogPath),
	)

	if err == nil {
		a.Logger.Info(ctx, "Loggers loaded successfully")
	}

	return err
}

// loadI18n initializes the i18n manager from runtime configuration.
func (a *App) loadI18n(ctx context.Context) error {
	var err error
	a.I18n, err = i18n.New(
		i18n.WithDebugMode(a.Config.System.DebugMode),
		i18n.WithEnvKey(a.Config.System.EnvKey),
		i18n.WithDefaultLang(a.Config.System.DefaultLang),
		i18n.WithLangDir(a.Config.System.LangDir),
	)

	if err == nil {
		a.Logger.Info(ctx, "I18n loaded successfully")
	}

	return err
}

// loadTokens initializes the diagnostics bearer-token issuer.
func (a *App) loadTokens(ctx context.Context) {
	if !a.Config.Diagnostics.Enable {
		return
	}
	a.Tokens = authtoken.New(a.Config.Diagnostics.AuthSecret)
	a.Logger.Info(ctx, "Diagnostics token issuer loaded successfully")
}

// loadHTTPMiddlewares builds middleware dependencies shared by all routes.
func (a *App) loadHTTPMiddlewares(ctx context.Context) {
	a.Middleware = middleware.New(a.Logger, a.I18n, a.Tokens, a.TraceID)
	a.Logger.Info(ctx, "Middlewares loaded successfully")
}

// loadPTL builds the simulated kernel, trace ring, and registry, then
// registers every task declared in config.PTL.Tasks.
func (a *App) loadPTL(ctx context.Context) error {
	tickInterval := a.Config.PTL.TickInterval * time.Millisecond
	if tickInterval <= 0 {
		tickInterval = time.Millisecond
	}

	a.Kernel = simkernel.New(tickInterval,
		simkernel.WithStackOverflowHook(a.onStackOverflow(ctx)),
		simkernel.WithSwitchHook(a.onTaskSwitch()),
	)
	a.Ring = ring.New(a.Config.PTL.RingCapacity, ring.WithISRGuard(a.Kernel.CriticalISR))
	a.Registry = ptl.NewRegistry(a.Kernel, a.Ring, a.Logger)

	global := &ptl.GlobalConfig{
		DefaultPolicy:  parsePolicy(a.Config.PTL.OverrunPolicy),
		TracingEnabled: a.Config.PTL.TracingEnabled,
		MaxTasks:       a.Config.PTL.MaxTasks,
	}

	configs, err := buildTaskConfigs(a.Config.PTL.Tasks, a.Logger)
	if err != nil {
		return err
	}

	if err := a.Registry.Init(ctx, global, configs); err != nil {
		return err
	}

	a.Logger.Info(ctx, "PTL registry loaded successfully")
	return nil
}
