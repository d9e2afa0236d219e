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

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/lindb/common/pkg/logger"

	"github.com/petrirun/petri/config"
	"github.com/petrirun/petri/debug"
	"github.com/petrirun/petri/internal/api"
	"github.com/petrirun/petri/internal/concurrent"
	"github.com/petrirun/petri/petri"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the petri engine with an out-of-process debug session",
		RunE:  serveRun,
	}
	runCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file path, default is %s", defaultCfgFile))
	runCmd.PersistentFlags().BoolVar(&pprof2, "pprof", false,
		"profiling Go programs with pprof")
	return runCmd
}

// pprof2 avoids shadowing the imported gin-contrib/pprof package name.
var pprof2 bool

// serveRun loads configuration, starts the (initially empty) debug session
// listener if the debug session is enabled, and — if the introspection API
// is enabled — a read-only HTTP
// surface alongside it. The engine itself is only instantiated once a
// debug client sends "start"; this command's job is to stand up the
// surrounding host process (spec §6 "Environment").
func serveRun(_ *cobra.Command, _ []string) error {
	ctx := newCtxWithSignals()

	cfg := config.NewDefaultConfig()
	path := cfgFile
	if path == "" {
		path = defaultCfgFile
	}
	if err := config.LoadAndSetConfig(path, cfg); err != nil {
		return err
	}
	if err := logger.InitLogger(cfg.Logging, defaultLogFileName); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	factory := func() *petri.Net {
		// Host processes wire a real topology in here; run with no net
		// configured yet is a no-op server waiting for a debug client.
		n := petri.NewNet("petri")
		n.SetPool(concurrent.NewPool("petri",
			cfg.Engine.InitialThreads,
			time.Duration(cfg.Engine.PoolIdleTimeout),
			concurrent.NewStatistics()))
		return n
	}

	var session *debug.Session
	if cfg.Debug.Enabled {
		session = debug.NewSession(factory, cfg.Debug.AuthSecret)
		go func() {
			if err := session.ListenAndServe(cfg.Debug.ListenAddr); err != nil {
				fmt.Println("debug session listener stopped:", err)
			}
		}()
	}

	var httpServer *http.Server
	if cfg.API.Enabled {
		gin.SetMode(gin.ReleaseMode)
		router := gin.New()
		router.Use(gin.Recovery())
		if pprof2 {
			pprof.Register(router)
		}
		if session != nil {
			api.NewStateAPI(session).Register(router.Group("/"))
		}
		api.NewHostAPI().Register(router.Group("/"))
		httpServer = &http.Server{Addr: cfg.API.ListenAddr, Handler: router}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Println("http introspection server stopped:", err)
			}
		}()
	}

	<-ctx.Done()
	if session != nil {
		session.Close()
	}
	if httpServer != nil {
		_ = httpServer.Close()
	}
	return nil
}
