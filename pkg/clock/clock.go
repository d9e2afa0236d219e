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

// Package clock provides the engine's monotonic time source and
// per-goroutine thread naming, the two cross-cutting utilities the
// scheduler and action runner depend on but do not own.
package clock

import (
	"time"
)

// Clock abstracts monotonic time so tests can inject a fake one instead
// of sleeping real milliseconds to exercise the poll loop's timing rules.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// system is the production Clock, backed by the runtime's monotonic clock.
type system struct{}

// New returns the production, real-time Clock.
func New() Clock { return system{} }

func (system) Now() time.Time        { return time.Now() }
func (system) Sleep(d time.Duration) { time.Sleep(d) }

// SleepQuantum bounds the cancellation latency of the action runner's poll
// loop (spec §4.4 step 4d / §5 "bounded by 1 ms").
const SleepQuantum = time.Millisecond

// ManagerRescanInterval is the manager's busy-wait backstop for a missed
// activation signal (spec §4.3 step 7, §9 open question 2).
const ManagerRescanInterval = time.Millisecond
