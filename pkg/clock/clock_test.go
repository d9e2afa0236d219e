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

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClockNowAdvances(t *testing.T) {
	c := New()
	first := c.Now()
	c.Sleep(time.Millisecond)
	second := c.Now()
	assert.True(t, second.After(first), "Now should advance across a Sleep")
}

func TestSystemClockSleepBlocksForAtLeastDuration(t *testing.T) {
	c := New()
	start := time.Now()
	c.Sleep(10 * time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSetThreadNameDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		SetThreadName("petri-test-thread-name-too-long")
	})
}

func TestQuantumConstants(t *testing.T) {
	assert.Equal(t, time.Millisecond, SleepQuantum)
	assert.Equal(t, time.Millisecond, ManagerRescanInterval)
}
