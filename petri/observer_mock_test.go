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
	"reflect"

	"go.uber.org/mock/gomock"
)

// MockObserver is a gomock-backed Observer, following the reference
// codebase's generated-mock-plus-EXPECT() convention (see
// coordinator/discovery/registry_test.go's state.NewMockRepository), hand
// maintained here in mockgen's own output shape rather than run through
// mockgen, since the Observer interface is tiny and rarely changes.
type MockObserver struct {
	ctrl     *gomock.Controller
	recorder *MockObserverMockRecorder
}

// MockObserverMockRecorder exposes EXPECT() call builders for MockObserver.
type MockObserverMockRecorder struct {
	mock *MockObserver
}

// NewMockObserver creates a MockObserver bound to ctrl.
func NewMockObserver(ctrl *gomock.Controller) *MockObserver {
	m := &MockObserver{ctrl: ctrl}
	m.recorder = &MockObserverMockRecorder{mock: m}
	return m
}

// EXPECT returns the recorder used to set call expectations.
func (m *MockObserver) EXPECT() *MockObserverMockRecorder {
	return m.recorder
}

func (m *MockObserver) OnEnableState(a *Action) {
	m.ctrl.Call(m, "OnEnableState", a)
}

func (mr *MockObserverMockRecorder) OnEnableState(a interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnEnableState",
		reflect.TypeOf((*MockObserver)(nil).OnEnableState), a)
}

func (m *MockObserver) OnDisableState(a *Action) {
	m.ctrl.Call(m, "OnDisableState", a)
}

func (mr *MockObserverMockRecorder) OnDisableState(a interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnDisableState",
		reflect.TypeOf((*MockObserver)(nil).OnDisableState), a)
}

func (m *MockObserver) OnTerminate() {
	m.ctrl.Call(m, "OnTerminate")
}

func (mr *MockObserverMockRecorder) OnTerminate() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnTerminate",
		reflect.TypeOf((*MockObserver)(nil).OnTerminate))
}

var _ Observer = (*MockObserver)(nil)
