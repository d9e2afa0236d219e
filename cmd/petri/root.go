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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lindb/common/pkg/fileutil"
)

const (
	currentDir            = "./"
	defaultCfgFileName    = "petri.toml"
	defaultCfgFile        = currentDir + defaultCfgFileName
	defaultLogFileName    = "petri.log"
)

var cfgFile string

// newCtxWithSignals returns a context canceled on SIGINT/SIGTERM, the same
// shutdown trigger the reference codebase's run commands use.
func newCtxWithSignals() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()
	return ctx
}

// checkExistenceOf refuses to overwrite an existing config file.
func checkExistenceOf(path string) error {
	if fileutil.Exist(path) {
		return fmt.Errorf("config file %s already exists", path)
	}
	return nil
}
