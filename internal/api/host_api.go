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

package api

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/lindb/common/pkg/http"
	"github.com/lindb/common/pkg/logger"
)

// HostPath reports host and process memory usage alongside the net's
// active-state snapshot, so an operator staring at a stuck-looking engine
// can tell a genuine deadlock (spec's "active_states reaches zero") apart
// from a host that's simply swapping.
var HostPath = "/state/host"

// HostAPI exposes host/process resource usage, the same introspection role
// internal/monitoring's system collector plays for the reference codebase's
// metric pipeline, minus the metric registry: this is a point-in-time GET,
// not a background collector.
type HostAPI struct {
	pid int32
	log logger.Logger
}

// NewHostAPI creates a HostAPI instance reporting on the current process.
func NewHostAPI() *HostAPI {
	return &HostAPI{
		pid: int32(os.Getpid()),
		log: logger.GetLogger("API", "Host"),
	}
}

// Register adds the host state url route.
func (a *HostAPI) Register(route gin.IRoutes) {
	route.GET(HostPath, a.GetHostStats)
}

type hostStatsResponse struct {
	HostMemoryUsedPercent float64 `json:"host_memory_used_percent"`
	ProcessRSSBytes       uint64  `json:"process_rss_bytes"`
}

// GetHostStats reports host memory pressure and this process's RSS.
func (a *HostAPI) GetHostStats(c *gin.Context) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		a.log.Warn("read host memory stats", logger.Error(err))
		http.Error(c, err)
		return
	}

	var rss uint64
	if proc, err := process.NewProcess(a.pid); err != nil {
		a.log.Warn("open process handle for memory stats", logger.Error(err))
	} else if info, err := proc.MemoryInfo(); err != nil {
		a.log.Warn("read process memory stats", logger.Error(err))
	} else {
		rss = info.RSS
	}

	http.OK(c, hostStatsResponse{
		HostMemoryUsedPercent: vm.UsedPercent,
		ProcessRSSBytes:       rss,
	})
}
