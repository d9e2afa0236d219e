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

package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	err := Programming("Net.AddAction", fmt.Errorf("net already running"))
	assert.Equal(t, "programming: Net.AddAction: net already running", err.Error())

	bare := Deadlock("Net.run")
	assert.Equal(t, "deadlock: Net.run", bare.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := IOFault("Session.send", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestErrorIsMatchesByKind(t *testing.T) {
	a := Configuration("Net.AddAction", fmt.Errorf("empty initial marking"))
	b := Configuration("Net.Connect", fmt.Errorf("unknown action id"))
	other := UserCodeFault("Runner.run", fmt.Errorf("panic recovered"))

	assert.True(t, errors.Is(a, b), "two errors of the same Kind should match via Is")
	assert.False(t, errors.Is(a, other), "errors of different Kind should not match")
}

func TestKindOf(t *testing.T) {
	err := Deadlock("Net.run")
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindDeadlock, kind)

	_, ok = KindOf(fmt.Errorf("plain error"))
	assert.False(t, ok)
}

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	inner := Programming("Pool.Submit", fmt.Errorf("pool closed"))
	wrapped := fmt.Errorf("dispatch failed: %w", inner)

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindProgramming, kind)
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindProgramming:   "programming",
		KindConfiguration: "configuration",
		KindUserCodeFault: "user-code-fault",
		KindIOFault:       "io-fault",
		KindDeadlock:      "deadlock",
		Kind(99):          "unknown",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}
