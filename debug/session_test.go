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

package debug

import (
	"bufio"
	"bytes"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrirun/petri/petri"
)

// newLinearFactory returns a Factory building A(active,1)->B(1) with an
// instrumented callable on B, plus the counter it increments.
func newLinearFactory(t *testing.T) (Factory, *int32) {
	t.Helper()
	var runsB int32
	factory := func() *petri.Net {
		n := petri.NewNet("debug-test-net")
		a, err := petri.NewAction(1, "A", nil, 1)
		require.NoError(t, err)
		b, err := petri.NewAction(2, "B", func() petri.Result {
			atomic.AddInt32(&runsB, 1)
			return 0
		}, 1)
		require.NoError(t, err)
		require.NoError(t, n.AddAction(a, true))
		require.NoError(t, n.AddAction(b, false))
		_, err = n.Connect(1, "A->B", a, b, nil, 0)
		require.NoError(t, err)
		return n
	}
	return factory, &runsB
}

func frameFor(t *testing.T, typ string, payload interface{}) *Frame {
	t.Helper()
	raw, err := jsonAPI.Marshal(payload)
	require.NoError(t, err)
	return &Frame{Type: typ, Payload: raw}
}

// TestBreakpointPause is scenario S4: a breakpoint on B holds the net at
// the enable checkpoint until the client sends pause(false).
func TestBreakpointPause(t *testing.T) {
	factory, runsB := newLinearFactory(t)
	s := NewSession(factory, "")

	s.handleBreakpoints(frameFor(t, CmdBreakpoints, BreakpointsPayload{ActionIDs: []uint64{2}}))
	s.handleStart()
	defer s.engine.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(runsB), "B must not run while paused at its breakpoint")

	s.handlePause(frameFor(t, CmdPause, PausePayload{Paused: false}))

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(runsB) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("B never ran after pause was lifted")
		}
		time.Sleep(time.Millisecond)
	}
}

// TestGlobalPauseBlocksAllActivations verifies the plain "pause" command
// (no breakpoint involved) holds every activation at its enable checkpoint.
func TestGlobalPauseBlocksAllActivations(t *testing.T) {
	factory, runsB := newLinearFactory(t)
	s := NewSession(factory, "")

	s.handlePause(frameFor(t, CmdPause, PausePayload{Paused: true}))
	s.handleStart()
	defer s.engine.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(runsB))

	s.handlePause(frameFor(t, CmdPause, PausePayload{Paused: false}))

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(runsB) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("B never ran after global pause was lifted")
		}
		time.Sleep(time.Millisecond)
	}
}

// TestBreakpointsReplaceClearsAll verifies breakpoints([x,y]) then
// breakpoints([]) clears the set entirely (round-trip property).
func TestBreakpointsReplaceClearsAll(t *testing.T) {
	factory, _ := newLinearFactory(t)
	s := NewSession(factory, "")

	s.handleBreakpoints(frameFor(t, CmdBreakpoints, BreakpointsPayload{ActionIDs: []uint64{1, 2}}))
	assert.True(t, s.isBreakpoint(1))
	assert.True(t, s.isBreakpoint(2))

	s.handleBreakpoints(frameFor(t, CmdBreakpoints, BreakpointsPayload{ActionIDs: nil}))
	assert.False(t, s.isBreakpoint(1))
	assert.False(t, s.isBreakpoint(2))
}

// TestDebugHashMismatch is scenario S6: a hello with the wrong hash gets an
// error frame and the session refuses to proceed; the engine (never even
// started) is unaffected.
func TestDebugHashMismatch(t *testing.T) {
	factory, _ := newLinearFactory(t)
	s := NewSession(factory, "")

	var buf bytes.Buffer
	s.writer = bufio.NewWriter(&buf)

	ok := s.handleHello(frameFor(t, CmdHello, HelloPayload{
		Version: ProtocolVersion,
		Hash:    s.referenceHash + 1,
	}))
	require.NoError(t, s.writer.Flush())

	assert.False(t, ok)
	assert.Nil(t, s.engine)

	r := bufio.NewReader(&buf)
	got, err := readFrame(r)
	require.NoError(t, err)
	assert.Equal(t, EvtError, got.Type)
}

// TestHelloVersionMismatch covers the companion version-negotiation branch
// (spec §6: "mismatch -> error and close").
func TestHelloVersionMismatch(t *testing.T) {
	factory, _ := newLinearFactory(t)
	s := NewSession(factory, "")

	var buf bytes.Buffer
	s.writer = bufio.NewWriter(&buf)

	ok := s.handleHello(frameFor(t, CmdHello, HelloPayload{
		Version: ProtocolVersion + 1,
		Hash:    s.referenceHash,
	}))
	assert.False(t, ok)
}

// TestHelloSucceedsWithMatchingHash is the happy-path companion to S6.
func TestHelloSucceedsWithMatchingHash(t *testing.T) {
	factory, _ := newLinearFactory(t)
	s := NewSession(factory, "")

	var buf bytes.Buffer
	s.writer = bufio.NewWriter(&buf)

	ok := s.handleHello(frameFor(t, CmdHello, HelloPayload{
		Version: ProtocolVersion,
		Hash:    s.referenceHash,
	}))
	assert.True(t, ok)
}
