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

	"github.com/lindb/common/pkg/ltoml"
	"github.com/spf13/cobra"

	"github.com/petrirun/petri/config"
)

// newInitConfigCmd writes a default petri.toml, refusing to overwrite an
// existing one (same shape as cmd/lind/storage.go's init-config command).
func newInitConfigCmd() *cobra.Command {
	var path string
	initCmd := &cobra.Command{
		Use:   "init-config",
		Short: "create a new default petri config file",
		RunE: func(_ *cobra.Command, _ []string) error {
			if path == "" {
				path = defaultCfgFile
			}
			if err := checkExistenceOf(path); err != nil {
				return err
			}
			return ltoml.WriteConfig(path, config.NewDefaultConfig().TOML())
		},
	}
	initCmd.PersistentFlags().StringVar(&path, "config", "",
		fmt.Sprintf("config file path, default is %s", defaultCfgFile))
	return initCmd
}
