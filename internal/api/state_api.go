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

// Package api exposes a read-only HTTP introspection surface over the debug
// session, following the reference codebase's internal/api convention: one
// struct per resource, each registering its own routes via Register(route
// gin.IRoutes) (see internal/api/request_handle.go, explore_handle.go).
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/lindb/common/pkg/http"

	"github.com/petrirun/petri/debug"
)

var (
	// StatePath reports the debug session's lifecycle state.
	StatePath = "/state/session"
	// ActiveStatesPath reports the net's currently active action depths.
	ActiveStatesPath = "/state/active"
)

// StateAPI exposes the debug session's lifecycle state and active-action
// snapshot over HTTP, without opening a second debug TCP connection.
type StateAPI struct {
	session *debug.Session
}

// NewStateAPI creates a StateAPI instance wrapping session.
func NewStateAPI(session *debug.Session) *StateAPI {
	return &StateAPI{session: session}
}

// Register adds the session state url routes.
func (api *StateAPI) Register(route gin.IRoutes) {
	route.GET(StatePath, api.GetState)
	route.GET(ActiveStatesPath, api.GetActiveStates)
}

type sessionStateResponse struct {
	State string `json:"state"`
}

// GetState returns the session's current lifecycle state.
func (api *StateAPI) GetState(c *gin.Context) {
	state, _ := api.session.Snapshot()
	http.OK(c, sessionStateResponse{State: state.String()})
}

// activeStateEntry mirrors debug.StateCount for the HTTP surface so a client
// never has to link the wire protocol package just to poll state.
type activeStateEntry struct {
	ID    uint64 `json:"id"`
	Count int    `json:"count"`
}

// GetActiveStates returns the depth of every action currently contributing
// to active_states, as tracked by the debug session's observer hooks.
func (api *StateAPI) GetActiveStates(c *gin.Context) {
	_, active := api.session.Snapshot()
	entries := make([]activeStateEntry, 0, len(active))
	for id, count := range active {
		entries = append(entries, activeStateEntry{ID: id, Count: count})
	}
	http.OK(c, entries)
}
