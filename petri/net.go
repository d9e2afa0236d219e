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

package petri

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/atomic"

	"github.com/lindb/common/pkg/logger"

	"github.com/petrirun/petri/internal/concurrent"
	petrierrors "github.com/petrirun/petri/pkg/errors"
)

// InitialThreadsActions is the worker pool's initial width when a Net is
// created without an explicit override (spec §4.1: "implementation-defined >= 2").
const InitialThreadsActions = 2

// Observer is the debug-observer-hook extension point (spec §4.5). The
// zero value (all nils) costs nothing on the hot path: a production Net
// leaves Observer nil and checks for it once per call site.
type Observer interface {
	// OnEnableState is called as an action is about to be submitted to the
	// pool. Returning lets the runner proceed; a debug implementation may
	// block here until a pause is lifted (breakpoints).
	OnEnableState(a *Action)
	// OnDisableState is called once an action runner has finished and been
	// popped off the to-be-disabled queue.
	OnDisableState(a *Action)
	// OnTerminate is called exactly once when the net stops, whether its
	// active state count reached zero or Stop was called explicitly.
	OnTerminate()
}

// Net is the graph of actions and transitions plus the runtime state the
// scheduler and action runners share (spec §3 "Net", §5).
type Net struct {
	name string

	actionsByID map[uint64]*Action
	actionOrder []*Action

	initialMarking []uint64

	pool concurrent.Pool

	log logger.Logger

	observer Observer

	// activation lock: protects toBeActivated, toBeDisabled, every
	// Action's token counter (transitively, via Action.mu), and activeStates.
	mu            sync.Mutex
	cond          *sync.Cond
	toBeActivated map[uint64]*Action // set keyed by action identity (spec §4.3 "Tie-breaking")
	toBeDisabled  []*Action
	activeStates  atomic.Int64

	running atomic.Bool

	managerWG sync.WaitGroup

	stopOnce sync.Once
}

// NewNet constructs an empty net. Call AddAction to populate it, then Run.
func NewNet(name string) *Net {
	n := &Net{
		name:          name,
		actionsByID:   make(map[uint64]*Action),
		toBeActivated: make(map[uint64]*Action),
		log:           logger.GetLogger("Petri", "Net"),
	}
	n.cond = sync.NewCond(&n.mu)
	return n
}

// Name returns the net's display name.
func (n *Net) Name() string { return n.name }

// SetObserver installs the debug-observer-hook implementation. Must be
// called before Run.
func (n *Net) SetObserver(o Observer) { n.observer = o }

// SetPool installs a pre-built worker pool (for tests that want to inject a
// fake one). If never called, Run builds a default one sized InitialThreadsActions.
func (n *Net) SetPool(p concurrent.Pool) { n.pool = p }

// StateWithID is the debug-only introspection operation (spec §6): looks up
// an action by id without affecting engine state.
func (n *Net) StateWithID(id uint64) (*Action, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	a, ok := n.actionsByID[id]
	return a, ok
}

// ActiveStates returns the current active-state count (spec §3 invariant,
// §8 testable property 2).
func (n *Net) ActiveStates() int { return int(n.activeStates.Load()) }

// Running reports whether the net is currently executing.
func (n *Net) Running() bool { return n.running.Load() }

// Hash returns the net's structural identity fingerprint, used by the debug
// session for hello/version negotiation (spec §6). Substituted for the
// spec's literal SHA-1 with xxhash (see DESIGN.md).
func (n *Net) Hash() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	h := xxhash.New()
	for _, a := range n.actionOrder {
		_, _ = h.WriteString(a.name)
		for _, t := range a.transitions {
			_, _ = h.WriteString(t.name)
		}
	}
	return h.Sum64()
}

// AddAction appends action to the net (spec §4.3 add_action). If active,
// the action is pre-loaded to its firing threshold and queued for
// activation once Run starts. Fails if the net is already running.
func (n *Net) AddAction(a *Action, active bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running.Load() {
		return petrierrors.Programming("AddAction", errAlreadyRunning())
	}
	n.actionsByID[a.id] = a
	n.actionOrder = append(n.actionOrder, a)
	if active {
		a.setTokens(a.requiredTokens)
		n.initialMarking = append(n.initialMarking, a.id)
		n.toBeActivated[a.id] = a
	}
	return nil
}

// Connect adds a transition from a to b (spec §6 net.connect). Pass delay
// < 0 to request DefaultDelayBetweenEvaluation.
func (n *Net) Connect(id uint64, name string, a, b *Action, condition Condition, delay time.Duration) (*Transition, error) {
	n.mu.Lock()
	running := n.running.Load()
	n.mu.Unlock()
	if running {
		return nil, petrierrors.Programming("Connect", errAlreadyRunning())
	}
	t := NewTransition(id, name, a, b, condition, delay)
	if err := a.connect(t); err != nil {
		return nil, err
	}
	return t, nil
}
