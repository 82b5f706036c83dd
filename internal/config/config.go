// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package config defines the root configuration model and the
// bin/configs/<RUN_ENV>.json loader.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

const (
	envKey  = "RUN_ENV"
	nameKey = "APP_NAME"
)

// config stores the singleton configuration loaded by Load.
var config *Config

type (
	// Config is the root configuration model loaded from bin/configs/*.json.
	Config struct {
		System      SysConfig   `json:"system"`
		Log         LogConfig   `json:"log"`
		Monitor     Monitor     `json:"monitor"`
		Diagnostics Diagnostics `json:"diagnostics"`
		PTL         PTL         `json:"ptl"`
	}

	// LogConfig controls logger driver and severity level.
	LogConfig struct {
		Driver  string `json:"driver"`
		Level   string `json:"level"`
		LogPath string `json:"path"`
	}

	// SysConfig stores basic runtime properties for the service.
	SysConfig struct {
		Name         string        `json:"name"`
		RunMode      string        `json:"run_mode"`
		HTTPPort     string        `json:"http_port"`
		ReadTimeout  time.Duration `json:"read_timeout"`
		WriteTimeout time.Duration `json:"write_timeout"`
		Version      string        `json:"version"`
		RootPath     string        `json:"root_path"`
		DebugMode    bool          `json:"debug_mode"`
		LangDir      string        `json:"lang_dir"`
		DefaultLang  string        `json:"default_lang"`
		EnvKey       string        `json:"env_key"`
		Env          string        `json:"env"`
	}

	Monitor struct {
		PanicRobot PanicRobot `json:"panic_robot"`
	}

	PanicRobot struct {
		Enable bool        `json:"enable"`
		Wechat robotConfig `json:"wechat"`
		Feishu robotConfig `json:"feishu"`
	}

	robotConfig struct {
		Enable  bool   `json:"enable"`
		PushUrl string `json:"push_url"`
	}

	// Diagnostics controls the read-only HTTP surface over the running
	// supervisor (trace dump, stats, task list).
	Diagnostics struct {
		Enable     bool          `json:"enable"`
		HTTPPort   string        `json:"http_port"`
		AuthSecret string        `json:"auth_secret"`
		TokenTTL   time.Duration `json:"token_ttl"`
	}

	// PTL is the supervisor's own configuration surface: the global
	// policy/tracing/cap settings plus the static task table.
	PTL struct {
		OverrunPolicy  string        `json:"overrun_policy"`
		TracingEnabled bool          `json:"tracing_enabled"`
		MaxTasks       int           `json:"max_tasks"`
		TickInterval   time.Duration `json:"tick_interval_ms"`
		RingCapacity   int           `json:"ring_capacity"`
		Tasks          []TaskSpec    `json:"tasks"`
	}

	// TaskSpec is one row of the static task table as loaded from JSON.
	TaskSpec struct {
		Name          string `json:"name"`
		PeriodTicks   uint32 `json:"period_ticks"`
		DeadlineTicks uint32 `json:"deadline_ticks"`
		Priority      int    `json:"priority"`
		StackWords    int    `json:"stack_words"`
		OverrunPolicy string `json:"overrun_policy"`
		Body          string `json:"body"`
		WorkMs        int    `json:"work_ms"`
	}
)

// Load loads configuration from bin/configs/<RUN_ENV>.json.
//
// Behavior:
//   - Uses "local" when RUN_ENV is not provided.
//   - Applies APP_NAME override when present.
func Load() (*Config, error) {
	var (
		runEnv     string
		appName    string
		rootPath   string
		cfgContent []byte
		err        error
	)

	runEnv = os.Getenv(envKey)
	if runEnv == "" {
		runEnv = "local"
	}

	rootPath, err = os.Getwd()
	if err != nil {
		log.Fatalf("unable to resolve working directory: %v", err)
	}

	configFilePath := filepath.Join(rootPath, "bin", "configs", fmt.Sprintf("%s.json", runEnv))
	cfgContent, err = os.ReadFile(configFilePath)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(cfgContent, &config)
	if err != nil {
		return nil, err
	}

	appName = os.Getenv(nameKey)
	if appName != "" {
		config.System.Name = appName
	}

	config.System.Env = runEnv
	config.System.RootPath = rootPath
	config.System.EnvKey = envKey
	config.System.LangDir = filepath.Join(rootPath, "bin", "lang")

	if err := check(config); err != nil {
		return nil, err
	}

	return config, nil
}

// check validates required runtime configuration fields.
func check(conf *Config) error {
	if conf.Diagnostics.Enable && conf.Diagnostics.AuthSecret == "" {
		return fmt.Errorf("config: diagnostics.auth_secret can not be empty when diagnostics is enabled")
	}
	if len(conf.PTL.Tasks) == 0 {
		return fmt.Errorf("config: ptl.tasks must declare at least one task")
	}
	return nil
}

// Get returns the globally loaded configuration singleton.
func Get() *Config {
	return config
}
