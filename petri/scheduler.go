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

// This file implements the manager thread (spec §4.3 "Scheduler (state
// manager)"): the single goroutine that owns the activation lock, drains
// to-be-disabled, promotes ready to-be-activated entries to the pool, and
// stops the net when no state remains active.
package petri

import (
	"context"
	"time"

	"github.com/lindb/common/pkg/logger"

	"github.com/petrirun/petri/internal/concurrent"
	"github.com/petrirun/petri/pkg/clock"
	petrierrors "github.com/petrirun/petri/pkg/errors"
)

// Run starts the net (spec §4.3 run()): fails if already running or if the
// initial marking is empty.
func (n *Net) Run() error {
	n.mu.Lock()
	if n.running.Load() {
		n.mu.Unlock()
		return petrierrors.Programming("Run", errAlreadyRunning())
	}
	if len(n.initialMarking) == 0 {
		n.mu.Unlock()
		n.log.Warn("refusing to run net with empty initial marking", logger.String("net", n.name))
		return petrierrors.Configuration("Run", errEmptyInitialMarking())
	}
	for _, a := range n.actionOrder {
		a.seal()
	}
	if n.pool == nil {
		n.pool = concurrent.NewPool(n.name, InitialThreadsActions, 5*time.Second, concurrent.NewStatistics())
	}
	// Initial marking entries already meet threshold by construction
	// (AddAction sets current_tokens = required_tokens); count them now so
	// active_states is correct before the manager's first scan.
	for _, a := range n.toBeActivated {
		a.counted = true
		n.activeStates.Inc()
	}
	n.running.Store(true)
	n.mu.Unlock()

	n.managerWG.Add(1)
	go n.runManager()
	return nil
}

// Stop stops the net (spec §4.3 stop()): idempotent, joins the manager
// and joins the worker pool. It always waits for the manager goroutine to
// exit, so it must not be called on that goroutine (for example from an
// Observer hook); the manager's own zero-active-states stop runs Stop on a
// separate goroutine for this reason.
func (n *Net) Stop() {
	n.stopOnce.Do(func() {
		n.mu.Lock()
		n.running.Store(false)
		n.cond.Broadcast()
		n.mu.Unlock()

		n.managerWG.Wait()

		if n.pool != nil {
			n.pool.Stop()
		}
		if n.observer != nil {
			n.observer.OnTerminate()
		}
	})
}

// runManager is the manager thread's loop body (spec §4.3 "Manager loop").
func (n *Net) runManager() {
	defer n.managerWG.Done()
	clock.SetThreadName(n.name + " states manager")

	for {
		n.mu.Lock()
		for len(n.toBeActivated) == 0 && len(n.toBeDisabled) == 0 && n.running.Load() {
			n.cond.Wait()
		}
		if !n.running.Load() {
			n.mu.Unlock()
			return
		}

		// step 3: drain to-be-disabled
		disabled := n.toBeDisabled
		n.toBeDisabled = nil
		n.mu.Unlock()
		for _, a := range disabled {
			n.disableState(a)
		}

		n.mu.Lock()
		// step 4: scan to-be-activated, promote ready entries
		for id, a := range n.toBeActivated {
			if !a.meetsThreshold() {
				continue
			}
			if int(n.activeStates.Load()) >= n.pool.WorkerCount() {
				n.pool.AddWorker()
			}
			a.fire()
			delete(n.toBeActivated, id)
			n.enableState(a)
		}
		activeNow := n.activeStates.Load()
		pendingBelowThreshold := len(n.toBeActivated) > 0
		n.mu.Unlock()

		// step 6/7
		if activeNow == 0 {
			if pendingBelowThreshold {
				n.log.Warn("deadlock: active_states reached zero with pending entries below threshold",
					logger.String("net", n.name))
			}
			go n.Stop() // stop() joins this very goroutine; must not self-join
			return
		}
		if pendingBelowThreshold {
			time.Sleep(clock.ManagerRescanInterval)
		}
	}
}

// enableState submits an action runner task for a (spec §4.5 on enable).
// Fires the debug observer hook before submission so a breakpoint can
// block the runner before it ever starts.
func (n *Net) enableState(a *Action) {
	if n.observer != nil {
		n.observer.OnEnableState(a)
	}
	n.pool.Submit(context.Background(), concurrent.NewTask(func() {
		n.runAction(a)
	}, func(err error) {
		n.log.Error("action runner panicked", logger.String("action", a.name), logger.Error(err))
		n.disableAction(a)
	}))
}

// disableState pops a from the caller's already-drained to-be-disabled
// batch and notifies the observer (spec §9: "disable_state in the source
// pops from to-be-disabled inside the callee rather than the manager").
// Clears counted so a future activation (the action may fire again in a
// cyclic net) is counted again.
func (n *Net) disableState(a *Action) {
	n.mu.Lock()
	a.counted = false
	n.mu.Unlock()
	n.activeStates.Dec()
	if n.observer != nil {
		n.observer.OnDisableState(a)
	}
}

// disableAction is the runner-side enqueue of a onto to-be-disabled,
// followed by a signal to the manager (spec §4.4 steps 6-7).
func (n *Net) disableAction(a *Action) {
	n.mu.Lock()
	n.toBeDisabled = append(n.toBeDisabled, a)
	n.cond.Signal()
	n.mu.Unlock()
}

// activateTokens delivers tokens to a under the activation lock and
// enqueues it into to-be-activated if not already pending. active_states is
// bumped exactly once per action, the moment its token count first reaches
// required_tokens (spec §3 invariant 2, §8 property 2) — not on every
// sub-threshold delivery, so an action stuck below threshold forever (S5)
// does not keep the net's active-state count above zero.
func (n *Net) activateTokens(a *Action, tokens int) {
	n.mu.Lock()
	meetsThreshold := a.addTokens(tokens)
	if _, already := n.toBeActivated[a.id]; !already {
		n.toBeActivated[a.id] = a
	}
	if meetsThreshold && !a.counted {
		a.counted = true
		n.activeStates.Inc()
	}
	n.cond.Signal()
	n.mu.Unlock()
}
