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

// This file is the debug-observer-hook extension point (spec §4.5): the
// Observer interface is declared in net.go; NullObserver below is the
// zero-overhead production default, grounded on the callback-list pattern
// of coordinator/master_controller.go's WatchMasterElected, reduced to a
// single pluggable slot since the engine only ever has one observer.
package petri

// NullObserver is a no-op Observer. Production nets may leave Net.observer
// nil entirely (checked once per call site); NullObserver exists for
// callers that want an explicit, named do-nothing implementation instead
// (e.g. tests asserting the hook points are reached without caring what
// happens).
type NullObserver struct{}

func (NullObserver) OnEnableState(*Action)  {}
func (NullObserver) OnDisableState(*Action) {}
func (NullObserver) OnTerminate()           {}

// FuncObserver adapts three plain functions into an Observer, useful for
// tests that want to assert on call order without declaring a named type.
type FuncObserver struct {
	EnableFn    func(a *Action)
	DisableFn   func(a *Action)
	TerminateFn func()
}

func (f FuncObserver) OnEnableState(a *Action) {
	if f.EnableFn != nil {
		f.EnableFn(a)
	}
}

func (f FuncObserver) OnDisableState(a *Action) {
	if f.DisableFn != nil {
		f.DisableFn(a)
	}
}

func (f FuncObserver) OnTerminate() {
	if f.TerminateFn != nil {
		f.TerminateFn()
	}
}
