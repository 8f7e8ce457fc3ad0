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

package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fnrg-nfv/click/pkg/log/logtest"
	"github.com/fnrg-nfv/click/pkg/private/xtest"
	"github.com/fnrg-nfv/click/private/config"
	"github.com/fnrg-nfv/click/private/env/envtest"
	apitest "github.com/fnrg-nfv/click/private/mgmtapi/mgmtapitest"
)

func TestConfigSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg Config
	cfg.Sample(&sample, nil, nil)

	InitTestConfig(&cfg)
	err := toml.NewDecoder(bytes.NewReader(sample.Bytes())).DisallowUnknownFields().Decode(&cfg)
	assert.NoError(t, err)
	CheckTestConfig(t, &cfg, idSample)
}

func TestConfigLoad(t *testing.T) {
	dir, cleanup := xtest.TempDir(t)
	defer cleanup()
	raw := fmt.Sprintf(`
[general]
id = "click-1"
config_dir = %q

[log.console]
level = "debug"

[metrics]
prometheus = "127.0.0.1:9090"

[api]
addr = "127.0.0.1:7777"

[router]
pipeline = "red.click"
`, dir)
	file := xtest.MustWriteToFile(t, []byte(raw), "click.toml")

	var cfg Config
	require.NoError(t, config.LoadFile(file, &cfg))
	cfg.InitDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "click-1", cfg.General.ID)
	assert.Equal(t, filepath.Join(dir, "red.click"), cfg.PipelinePath())
	assert.Equal(t, "debug", cfg.Logging.Console.Level)
	assert.Equal(t, "human", cfg.Logging.Console.Format)
	assert.Equal(t, "127.0.0.1:7777", cfg.API.Addr)
}

func TestPipelinePath(t *testing.T) {
	cfg := Config{}
	cfg.Router.Pipeline = "pipeline.click"
	assert.Equal(t, "pipeline.click", cfg.PipelinePath())

	cfg.General.ConfigDir = "/etc/click"
	assert.Equal(t, "/etc/click/pipeline.click", cfg.PipelinePath())

	cfg.Router.Pipeline = "/opt/pipeline.click"
	assert.Equal(t, "/opt/pipeline.click", cfg.PipelinePath())
}

func InitTestConfig(cfg *Config) {
	apitest.InitConfig(&cfg.API)
	envtest.InitTest(&cfg.General, &cfg.Metrics, &cfg.Tracing)
	logtest.InitTestLogging(&cfg.Logging)
}

func CheckTestConfig(t *testing.T, cfg *Config, id string) {
	apitest.CheckConfig(t, &cfg.API)
	envtest.CheckTest(t, &cfg.General, &cfg.Metrics, &cfg.Tracing, id)
	logtest.CheckTestLogging(t, &cfg.Logging, id)
	assert.Equal(t, "pipeline.click", cfg.Router.Pipeline)
}
