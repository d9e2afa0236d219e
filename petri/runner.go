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

// This file implements the action runner (spec §4.4): the per-activation
// task that invokes user code, polls outgoing transitions respecting each
// one's minimum evaluation spacing, and hands fulfilled successors back to
// the scheduler.
package petri

import (
	"time"

	"github.com/lindb/common/pkg/logger"

	"github.com/petrirun/petri/pkg/clock"
)

// runAction executes one activation of a, following the protocol of spec
// §4.4 steps 1-7. Submitted as a pool task by enableState.
func (n *Net) runAction(a *Action) {
	res := a.invoke()

	transitions := a.Transitions()
	for _, t := range transitions {
		t.willTest()
	}

	c := clock.New()
	// Zero value, not c.Now(): spec §4.4 step 3 initializes last_test to 0
	// (the original's default-constructed ClockType::time_point(), far in
	// the past), so the first poll's elapsed time always clears every
	// transition's delay_between_evaluation and evaluates immediately.
	lastTest := make([]time.Time, len(transitions))

	for len(transitions) > 0 && n.Running() {
		now := c.Now()
		fulfilledAny := false
		minRemaining := time.Duration(-1)

		for i, t := range transitions {
			elapsed := now.Sub(lastTest[i])
			if elapsed >= t.DelayBetweenEvaluation() {
				lastTest[i] = now
				if t.test(res, func(err error) {
					n.log.Error("transition condition panicked, treating as non-fulfilled",
						logger.String("action", a.name), logger.String("transition", t.name), logger.Error(err))
				}) {
					n.activateTokens(t.next, 1)
					fulfilledAny = true
				}
				remaining := t.DelayBetweenEvaluation()
				if minRemaining < 0 || remaining < minRemaining {
					minRemaining = remaining
				}
			} else {
				remaining := t.DelayBetweenEvaluation() - elapsed
				if minRemaining < 0 || remaining < minRemaining {
					minRemaining = remaining
				}
			}
		}

		if fulfilledAny {
			break
		}
		if minRemaining < 0 {
			minRemaining = 0
		}

		deadline := now.Add(minRemaining)
		for c.Now().Before(deadline) && n.Running() {
			quantum := clock.SleepQuantum
			if remaining := deadline.Sub(c.Now()); remaining < quantum {
				quantum = remaining
			}
			if quantum <= 0 {
				break
			}
			c.Sleep(quantum)
		}
	}

	for _, t := range transitions {
		t.didTest()
	}

	n.disableAction(a)
}
