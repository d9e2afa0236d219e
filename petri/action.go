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

// Package petri implements the net execution engine: the action/transition
// data model, the scheduler, and the action runner (spec §3, §4.2-§4.4).
package petri

import (
	"sync"

	petrierrors "github.com/petrirun/petri/pkg/errors"
)

// Result is the opaque integer-like tag an action's callable produces.
// Transition conditions are evaluated against it.
type Result int

// Callable is the user code an action invokes when it runs. The default
// action (no callable configured) always produces Result(0).
type Callable func() Result

// Condition is the user predicate a transition evaluates against its
// previous action's Result to decide whether tokens should flow.
type Condition func(Result) bool

// Hooks let a transition observe the polling lifecycle around its
// condition (spec §4.4 step 2/5): WillTest fires once before the poll
// loop begins evaluating this transition, DidTest once after it ends.
type Hooks struct {
	WillTest func()
	DidTest  func()
}

// Action is a node in the net (a "place"): executable code plus a token
// counter. Identity is the stable Id assigned by the Net that owns it;
// Action values must not be copied after being added to a Net.
type Action struct {
	id   uint64
	name string

	mu             sync.Mutex
	requiredTokens int
	currentTokens  int

	callable    Callable
	transitions []*Transition

	sealed bool // true once the net has started running

	// counted is true while this action is contributing to the net's
	// active_states counter: set the moment current_tokens first reaches
	// required_tokens, cleared on disableState. Guarded by the net's
	// activation lock, not mu (Run, runners delivering tokens and the
	// manager all touch it, always under that lock).
	counted bool
}

// NewAction constructs an action. requiredTokens must be >= 1 (spec §8
// "Action with required_tokens = 0 is a programming error at construction").
func NewAction(id uint64, name string, callable Callable, requiredTokens int) (*Action, error) {
	if requiredTokens < 1 {
		return nil, petrierrors.Programming("NewAction",
			errRequiredTokens(name))
	}
	if callable == nil {
		callable = func() Result { return 0 }
	}
	return &Action{
		id:             id,
		name:           name,
		requiredTokens: requiredTokens,
		callable:       callable,
	}, nil
}

// ID returns the action's stable identity.
func (a *Action) ID() uint64 { return a.id }

// Name returns the action's display name.
func (a *Action) Name() string { return a.name }

// RequiredTokens returns the firing threshold.
func (a *Action) RequiredTokens() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requiredTokens
}

// CurrentTokens returns the current token count. Safe to call at any time;
// the value may be stale the instant after it is read while the net runs.
func (a *Action) CurrentTokens() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentTokens
}

// Transitions returns the action's outgoing transitions in insertion order.
// The returned slice must not be mutated by the caller.
func (a *Action) Transitions() []*Transition { return a.transitions }

// connect appends an outgoing transition. Net-internal: called only before
// the net starts running, or under the net's construction discipline.
func (a *Action) connect(t *Transition) error {
	if a.sealed {
		return petrierrors.Programming("connect", errMutateAfterRun(a.name))
	}
	a.transitions = append(a.transitions, t)
	return nil
}

// seal forbids further structural mutation once the net starts running
// (spec §4.2: "Mutation of required_tokens, name, callable, or the
// transition list after run() is forbidden").
func (a *Action) seal() { a.sealed = true }

// addTokens adds n tokens under the caller-held activation lock and
// reports whether the action now meets its firing threshold. Must only be
// called while holding the owning Net's activation lock (spec §4.2).
func (a *Action) addTokens(n int) (meetsThreshold bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentTokens += n
	return a.currentTokens >= a.requiredTokens
}

// setTokens forces the token count, used for initial-marking activation.
func (a *Action) setTokens(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentTokens = n
}

// meetsThreshold reports whether current_tokens >= required_tokens, without
// mutating anything.
func (a *Action) meetsThreshold() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentTokens >= a.requiredTokens
}

// fire subtracts required_tokens from current_tokens (spec's token rule:
// the remainder persists for future firings). Must be called under the
// owning Net's activation lock.
func (a *Action) fire() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentTokens -= a.requiredTokens
}

// invoke runs the action's callable. User-code faults (panics) are the
// caller's responsibility to recover; invoke itself does not recover so
// that the runner can attribute the panic to this specific action.
func (a *Action) invoke() Result {
	return a.callable()
}
