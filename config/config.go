// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package config holds petri's TOML/env-driven configuration, following the
// same struct-of-structs-with-a-TOML()-method convention as the reference
// codebase's config package (see config/storage.go, config/monitor.go).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v7"
	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/lindb/common/pkg/logger"
	"github.com/lindb/common/pkg/ltoml"
)

// NewDefaultPool reports the worker pool's default initial width: one
// runner per reported logical CPU, the same CPU-awareness the reference
// codebase's gopsutil-based collectors apply to host resource reporting,
// applied here to pool sizing instead. Falls back to 2 if the host's CPU
// count can't be read.
func NewDefaultPool() int {
	counts, err := cpu.Counts(true)
	if err != nil || counts <= 0 {
		return 2
	}
	return counts
}

// Engine holds the worker-pool and scheduler tuning knobs (spec §4.1, §4.3).
type Engine struct {
	InitialThreads     int            `env:"INITIAL_THREADS" toml:"initial-threads"`
	ManagerRescan      ltoml.Duration `env:"MANAGER_RESCAN" toml:"manager-rescan"`
	PoolIdleTimeout    ltoml.Duration `env:"POOL_IDLE_TIMEOUT" toml:"pool-idle-timeout"`
}

// TOML returns Engine's toml config string.
func (e *Engine) TOML() string {
	return fmt.Sprintf(`
## Engine related configuration.
[engine]
## initial width of the action-runner worker pool, grown on demand
## Default: %d
## Env: PETRI_ENGINE_INITIAL_THREADS
initial-threads = %d
## how often the manager re-scans to-be-activated for entries that have
## crossed their firing threshold while other entries are pending; the
## engine does not read this value and re-scans at a fixed 1ms
## Default: %s
## Env: PETRI_ENGINE_MANAGER_RESCAN
manager-rescan = "%s"
## how long an idle pool worker waits before exiting
## Default: %s
## Env: PETRI_ENGINE_POOL_IDLE_TIMEOUT
pool-idle-timeout = "%s"`,
		e.InitialThreads, e.InitialThreads,
		e.ManagerRescan.String(), e.ManagerRescan.String(),
		e.PoolIdleTimeout.String(), e.PoolIdleTimeout.String(),
	)
}

// Debug holds the out-of-process debug session's listener configuration
// (spec §4.6, §6).
type Debug struct {
	Enabled    bool           `env:"ENABLED" toml:"enabled"`
	ListenAddr string         `env:"LISTEN_ADDR" toml:"listen-addr"`
	AuthSecret string         `env:"AUTH_SECRET" toml:"auth-secret"`
	Heartbeat  ltoml.Duration `env:"HEARTBEAT" toml:"heartbeat"`
	AckTimeout ltoml.Duration `env:"ACK_TIMEOUT" toml:"ack-timeout"`
}

// TOML returns Debug's toml config string.
func (d *Debug) TOML() string {
	return fmt.Sprintf(`
## Debug session related configuration (spec 4.6).
[debug]
## whether to start the out-of-process debug TCP listener at all
## Default: %v
## Env: PETRI_DEBUG_ENABLED
enabled = %v
## address the single-client debug listener binds
## Default: %s
## Env: PETRI_DEBUG_LISTEN_ADDR
listen-addr = "%s"
## optional bearer-token secret required in every hello; empty disables auth
## Default: %s
## Env: PETRI_DEBUG_AUTH_SECRET
auth-secret = "%s"
## heartbeat period for the states/ack event; the debug session does not
## read this value and uses a fixed 1s period
## Default: %s
## Env: PETRI_DEBUG_HEARTBEAT
heartbeat = "%s"
## how long the heartbeat waits for a client ack before closing the session;
## the debug session does not read this value and uses a fixed 3s timeout
## Default: %s
## Env: PETRI_DEBUG_ACK_TIMEOUT
ack-timeout = "%s"`,
		d.Enabled, d.Enabled,
		d.ListenAddr, d.ListenAddr,
		d.AuthSecret, d.AuthSecret,
		d.Heartbeat.String(), d.Heartbeat.String(),
		d.AckTimeout.String(), d.AckTimeout.String(),
	)
}

// API holds the read-only HTTP introspection surface's configuration.
type API struct {
	Enabled    bool   `env:"ENABLED" toml:"enabled"`
	ListenAddr string `env:"LISTEN_ADDR" toml:"listen-addr"`
}

// TOML returns API's toml config string.
func (a *API) TOML() string {
	return fmt.Sprintf(`
## Read-only HTTP introspection configuration.
[api]
## whether to start the HTTP introspection/pprof server
## Default: %v
## Env: PETRI_API_ENABLED
enabled = %v
## address the HTTP introspection server binds
## Default: %s
## Env: PETRI_API_LISTEN_ADDR
listen-addr = "%s"`,
		a.Enabled, a.Enabled,
		a.ListenAddr, a.ListenAddr,
	)
}

// Config is the top-level, root configuration object (spec's "Environment"
// §6: "Port is configured by the host ... No environment variables are
// required by the core. Log sink is a host-provided function").
type Config struct {
	Engine  Engine         `envPrefix:"PETRI_ENGINE_" toml:"engine"`
	Debug   Debug          `envPrefix:"PETRI_DEBUG_" toml:"debug"`
	API     API            `envPrefix:"PETRI_API_" toml:"api"`
	Logging logger.Setting `envPrefix:"PETRI_LOGGING_" toml:"logging"`
}

// TOML returns the full configuration as a toml document, in the same
// concatenated-sections style as config/storage.go's Storage.TOML.
func (c *Config) TOML() string {
	return fmt.Sprintf(`%s
%s
%s
%s`,
		c.Engine.TOML(),
		c.Debug.TOML(),
		c.API.TOML(),
		c.Logging.TOML("PETRI"),
	)
}

// NewDefaultConfig returns a Config populated with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Engine: Engine{
			InitialThreads:  NewDefaultPool(),
			ManagerRescan:   ltoml.Duration(time.Millisecond),
			PoolIdleTimeout: ltoml.Duration(5 * time.Second),
		},
		Debug: Debug{
			Enabled:    false,
			ListenAddr: ":9999",
			Heartbeat:  ltoml.Duration(time.Second),
			AckTimeout: ltoml.Duration(3 * time.Second),
		},
		API: API{
			Enabled:    false,
			ListenAddr: ":9998",
		},
	}
}

// LoadAndSetConfig decodes path as toml into cfg, then overlays any
// PETRI_*-prefixed environment variables on top (teacher's go.mod already
// pairs BurntSushi/toml with caarlos0/env for exactly this combination; no
// loader from the original config package survived retrieval, so this
// follows the same decode-then-overlay order as cmd/lind/standalone.go's
// call site implies: file wins as a baseline, environment wins as an
// override). If path does not exist, cfg is left at its current values and
// only the environment overlay runs.
func LoadAndSetConfig(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("decode config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file %s: %w", path, err)
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse environment overrides: %w", err)
	}
	if cfg.Engine.InitialThreads <= 0 {
		cfg.Engine.InitialThreads = NewDefaultPool()
	}
	return nil
}
