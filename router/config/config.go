// Copyright 2025 Future Networks Research Group
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config contains the configuration of the click daemon.
package config

import (
	"io"
	"path/filepath"

	"github.com/fnrg-nfv/click/pkg/log"
	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/private/config"
	"github.com/fnrg-nfv/click/private/env"
	api "github.com/fnrg-nfv/click/private/mgmtapi"
)

var _ config.Config = (*Config)(nil)

// Config is the click daemon configuration.
type Config struct {
	General  env.General  `toml:"general,omitempty"`
	Features env.Features `toml:"features,omitempty"`
	Logging  log.Config   `toml:"log,omitempty"`
	Metrics  env.Metrics  `toml:"metrics,omitempty"`
	API      api.Config   `toml:"api,omitempty"`
	Tracing  env.Tracing  `toml:"tracing,omitempty"`
	Router   RouterConfig `toml:"router,omitempty"`
}

func (cfg *Config) InitDefaults() {
	config.InitAll(
		&cfg.General,
		&cfg.Features,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.API,
		&cfg.Tracing,
		&cfg.Router,
	)
}

func (cfg *Config) Validate() error {
	return config.ValidateAll(
		&cfg.General,
		&cfg.Features,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.API,
		&cfg.Tracing,
		&cfg.Router,
	)
}

func (cfg *Config) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteSample(dst, path, config.CtxMap{config.ID: idSample},
		&cfg.General,
		&cfg.Features,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.API,
		&cfg.Tracing,
		&cfg.Router,
	)
}

func (cfg *Config) ConfigName() string {
	return "click_config"
}

// PipelinePath returns the pipeline file location. Relative paths are
// resolved against the general config directory.
func (cfg *Config) PipelinePath() string {
	if filepath.IsAbs(cfg.Router.Pipeline) || cfg.General.ConfigDir == "" {
		return cfg.Router.Pipeline
	}
	return filepath.Join(cfg.General.ConfigDir, cfg.Router.Pipeline)
}

// RouterConfig contains the router specific config.
type RouterConfig struct {
	config.NoDefaulter
	// Pipeline is the path of the pipeline definition file.
	Pipeline string `toml:"pipeline,omitempty"`
}

func (cfg *RouterConfig) Validate() error {
	if cfg.Pipeline == "" {
		return serrors.New("pipeline must be set")
	}
	return nil
}

func (cfg *RouterConfig) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteString(dst, routerSample)
}

func (cfg *RouterConfig) ConfigName() string {
	return "router"
}
