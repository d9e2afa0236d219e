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

// Package debug implements the out-of-process debug protocol (spec §4.6,
// §6): a single-client TCP session that exposes pause/resume, breakpoints,
// and a periodic snapshot of the net's active states, without ever blocking
// the engine itself.
//
// Framing is length-prefixed: a decimal byte count, a single ':' sentinel,
// then exactly that many bytes of JSON — grounded on the Content-Length
// framing used by jsonrpc.go in the example pack, simplified to a single
// sentinel byte instead of a header block since the protocol here has no
// other headers to carry.
package debug

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	petrierrors "github.com/petrirun/petri/pkg/errors"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// MaxFrameBytes bounds a single frame's declared length, guarding the
// reception goroutine against a misbehaving or hostile peer claiming an
// unbounded body.
const MaxFrameBytes = 1 << 20 // 1 MiB

// Frame is the envelope required on every message in both directions
// (spec §6: "Required fields on every message: type: string, payload: object").
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Command type names (received).
const (
	CmdHello       = "hello"
	CmdStart       = "start"
	CmdStop        = "stop"
	CmdPause       = "pause"
	CmdReload      = "reload"
	CmdBreakpoints = "breakpoints"
	CmdExit        = "exit"
)

// Event type names (sent).
const (
	EvtStates = "states"
	EvtAck    = "ack"
	EvtError  = "error"
	EvtExit   = "exit"
)

// HelloPayload is the payload of a client's hello command: its protocol
// version and the net-hash it expects to be debugging, plus an optional
// bearer token (spec's domain-stack hardening, see DESIGN.md).
type HelloPayload struct {
	Version uint32 `json:"version"`
	Hash    uint64 `json:"hash"`
	Token   string `json:"token,omitempty"`
}

// AckHelloPayload answers a hello.
type AckHelloPayload struct {
	Version   uint32 `json:"version"`
	Hash      uint64 `json:"hash"`
	SessionID string `json:"session_id"`
}

// PausePayload is the payload of a pause command.
type PausePayload struct {
	Paused bool `json:"paused"`
}

// BreakpointsPayload is the payload of a breakpoints command: the full
// replacement set of action ids (spec: "replace the breakpoint set under
// its mutex").
type BreakpointsPayload struct {
	ActionIDs []uint64 `json:"action_ids"`
}

// StateCount is one entry of a states event: an action id and its current
// active depth.
type StateCount struct {
	ID    uint64 `json:"id"`
	Count int    `json:"count"`
}

// StatesPayload is the payload of a states event.
type StatesPayload struct {
	States []StateCount `json:"states"`
}

// ErrorPayload is the payload of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ExitPayload is the payload of an exit event.
type ExitPayload struct {
	Reason string `json:"reason"`
}

// ProtocolVersion is the version this server expects of hello frames.
const ProtocolVersion uint32 = 1

// writeFrame marshals v into payload, wraps it in a Frame of the given
// type, and writes the length-prefixed wire form to w. Does not serialize
// concurrent writers; callers hold the session's send mutex.
func writeFrame(w io.Writer, typ string, v interface{}) error {
	payload, err := jsonAPI.Marshal(v)
	if err != nil {
		return petrierrors.Programming("writeFrame", fmt.Errorf("marshal %s payload: %w", typ, err))
	}
	frame := Frame{Type: typ, Payload: payload}
	body, err := jsonAPI.Marshal(frame)
	if err != nil {
		return petrierrors.Programming("writeFrame", fmt.Errorf("marshal %s frame: %w", typ, err))
	}
	header := strconv.Itoa(len(body)) + ":"
	if _, err := io.WriteString(w, header); err != nil {
		return petrierrors.IOFault("writeFrame", err)
	}
	if _, err := w.Write(body); err != nil {
		return petrierrors.IOFault("writeFrame", err)
	}
	return nil
}

// readFrame reads one length-prefixed frame from r.
func readFrame(r *bufio.Reader) (*Frame, error) {
	lengthStr, err := r.ReadString(':')
	if err != nil {
		return nil, petrierrors.IOFault("readFrame", err)
	}
	lengthStr = lengthStr[:len(lengthStr)-1]
	n, err := strconv.Atoi(lengthStr)
	if err != nil {
		return nil, petrierrors.IOFault("readFrame", fmt.Errorf("invalid frame length %q: %w", lengthStr, err))
	}
	if n < 0 || n > MaxFrameBytes {
		return nil, petrierrors.IOFault("readFrame", fmt.Errorf("frame length %d exceeds limit", n))
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, petrierrors.IOFault("readFrame", err)
	}
	var frame Frame
	if err := jsonAPI.Unmarshal(body, &frame); err != nil {
		return nil, petrierrors.IOFault("readFrame", fmt.Errorf("unmarshal frame: %w", err))
	}
	return &frame, nil
}
