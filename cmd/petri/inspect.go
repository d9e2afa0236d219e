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
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// newInspectCmd polls a running petri process's read-only introspection API
// (internal/api) and renders its state as a table, the same
// query-the-running-process-and-render-a-table shape as lind's cluster
// inspection commands.
func newInspectCmd() *cobra.Command {
	var addr string
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "query a running petri process's debug session state",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInspect(addr)
		},
	}
	inspectCmd.PersistentFlags().StringVar(&addr, "addr", "http://localhost:9998",
		"base address of the running process's introspection API")
	return inspectCmd
}

func runInspect(addr string) error {
	var state struct {
		State string `json:"state"`
	}
	if err := getJSON(addr+"/state/session", &state); err != nil {
		return fmt.Errorf("fetch session state: %w", err)
	}

	var active []struct {
		ID    uint64 `json:"id"`
		Count int    `json:"count"`
	}
	if err := getJSON(addr+"/state/active", &active); err != nil {
		return fmt.Errorf("fetch active states: %w", err)
	}

	fmt.Printf("session state: %s\n", stateColor(state.State)(state.State))

	if len(active) == 0 {
		fmt.Println("no active states")
		return nil
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	writer := table.NewWriter()
	writer.AppendHeader(table.Row{"Action ID", "Depth"})
	for _, a := range active {
		writer.AppendRow(table.Row{a.ID, a.Count})
	}
	fmt.Println(writer.Render())
	return nil
}

// stateColor picks a display color the way an operator would read it at a
// glance: green while running, yellow when paused, red when stopped,
// plain otherwise.
func stateColor(state string) func(a ...interface{}) string {
	switch state {
	case "running":
		return color.New(color.FgGreen).SprintFunc()
	case "paused":
		return color.New(color.FgYellow).SprintFunc()
	case "stopped":
		return color.New(color.FgRed).SprintFunc()
	default:
		return fmt.Sprint
	}
}

func getJSON(url string, v interface{}) error {
	resp, err := http.Get(url) //nolint:gosec // operator-supplied local/trusted address
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
