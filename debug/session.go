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
	"net"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"github.com/lindb/common/pkg/logger"

	"github.com/petrirun/petri/petri"
	"github.com/petrirun/petri/pkg/clock"
)

// State is the session's state machine (spec §4.6: "idle -> connected ->
// running -> stopped -> idle, with paused sub-state of running").
type State int

const (
	StateIdle State = iota
	StateConnected
	StateRunning
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Factory builds a fresh net on "start"/"reload", grounded on the host
// supplying net topology the debug session never constructs itself.
type Factory func() *petri.Net

// HeartbeatInterval is the default heartbeat period (spec: "default 1 Hz").
const HeartbeatInterval = time.Second

// AckTimeout is how long the heartbeat waits for a client acknowledgment
// before tearing the session down (spec: "implementation-defined, e.g. 3s").
const AckTimeout = 3 * time.Second

// Session is a single-client out-of-process debug endpoint (spec §4.6). It
// implements petri.Observer so the engine can notify it of state changes
// without the engine ever importing this package.
type Session struct {
	id      string
	factory Factory
	log     logger.Logger
	clock   clock.Clock

	authSecret []byte // optional; nil disables bearer-token checks

	// referenceHash is computed once, from a throwaway factory-built net,
	// purely for hello version negotiation (spec §6) — independent of
	// whatever net "start"/"reload" later puts in engine.
	referenceHash uint64

	listener net.Listener

	// send_mutex: serializes all writes to the wire (spec §5 "Shared-resource policy").
	sendMu sync.Mutex
	conn   net.Conn
	writer *bufio.Writer

	// state_change_mutex: buffers engine notifications for the heartbeat
	// goroutine to drain on its next tick, without the engine ever blocking
	// on I/O (the ticker's own period stands in for the condition variable
	// the spec describes; the heartbeat already wakes on a fixed cadence).
	stateMu     sync.Mutex
	active      map[uint64]int // action id -> depth
	stateChange bool

	// breakpoint set, its own mutex (spec: "command handling never blocks on the engine").
	bpMu         sync.Mutex
	breakpoints  map[uint64]bool
	pauseMu      sync.Mutex
	pauseCond    *sync.Cond
	paused       bool

	mu      sync.Mutex
	state   State
	engine  *petri.Net
	running bool // session accept loop alive; false after "exit"

	lastAck   time.Time
	lastAckMu sync.Mutex

	wg sync.WaitGroup
}

// NewSession constructs a debug session bound to factory, which builds a
// fresh net on every "start"/"reload". authSecret, if non-empty, requires a
// matching bearer token in every hello (spec's domain-stack hardening).
func NewSession(factory Factory, authSecret string) *Session {
	s := &Session{
		id:            uuid.NewString(),
		factory:       factory,
		log:           logger.GetLogger("Debug", "Session"),
		clock:         clock.New(),
		active:        make(map[uint64]int),
		breakpoints:   make(map[uint64]bool),
		state:         StateIdle,
		referenceHash: factory().Hash(),
	}
	if authSecret != "" {
		s.authSecret = []byte(authSecret)
	}
	s.pauseCond = sync.NewCond(&s.pauseMu)
	return s
}

// ListenAndServe binds addr and accepts client connections until Close is
// called. Only one client is served at a time; a connection attempt while
// one is active is refused (spec §6: "Listener accepts one client").
func (s *Session) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			stillRunning := s.running
			s.mu.Unlock()
			if !stillRunning {
				return nil
			}
			return err
		}

		s.mu.Lock()
		busy := s.conn != nil
		if !busy {
			s.conn = conn
		}
		s.mu.Unlock()
		if busy {
			s.log.Warn("refusing second debug client while one is connected",
				logger.String("remote", conn.RemoteAddr().String()))
			_ = conn.Close()
			continue
		}

		go s.handleConn(conn)
	}
}

// Close tears the listener and any active client connection down.
func (s *Session) Close() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.terminate("session closed")
}

// handleConn runs the reception and heartbeat goroutines for one client
// connection and blocks until the connection ends (spec: "Two background
// threads: a reception thread ... a heartbeat thread ...").
func (s *Session) handleConn(conn net.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.writer = bufio.NewWriter(conn)
	s.state = StateConnected
	s.mu.Unlock()

	s.touchAck()

	s.wg.Add(2)
	done := make(chan struct{})
	go func() {
		defer s.wg.Done()
		s.receptionLoop(conn, done)
	}()
	go func() {
		defer s.wg.Done()
		s.heartbeatLoop(done)
	}()
	s.wg.Wait()
}

// receptionLoop reads commands off conn and dispatches them until the
// connection errors, the client sends "exit", or done is already closed.
func (s *Session) receptionLoop(conn net.Conn, done chan struct{}) {
	r := bufio.NewReader(conn)
	helloed := false
	for {
		frame, err := readFrame(r)
		if err != nil {
			s.log.Warn("debug session read fault, terminating session", logger.Error(err))
			s.closeDone(done)
			return
		}

		if !helloed && frame.Type != CmdHello {
			s.sendError("first message must be hello")
			continue
		}

		switch frame.Type {
		case CmdHello:
			ok := s.handleHello(frame)
			helloed = ok
			if !ok {
				s.closeDone(done)
				return
			}
		case CmdStart:
			s.handleStart()
		case CmdStop:
			s.handleStop()
		case CmdPause:
			s.handlePause(frame)
		case CmdReload:
			s.handleReload()
		case CmdBreakpoints:
			s.handleBreakpoints(frame)
		case CmdExit:
			s.sendAck(nil)
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			if s.listener != nil {
				_ = s.listener.Close()
			}
			s.closeDone(done)
			return
		default:
			s.sendError("unknown command: " + frame.Type)
		}
	}
}

func (s *Session) closeDone(done chan struct{}) {
	select {
	case <-done:
	default:
		close(done)
	}
	s.terminate("connection closed")
}

// heartbeatLoop emits a states event (only when state_change is set) plus
// an ack on every tick, and tears the session down if the client has not
// acknowledged within AckTimeout.
func (s *Session) heartbeatLoop(done chan struct{}) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if s.clock.Now().Sub(s.lastAckTime()) > AckTimeout {
				s.log.Warn("debug client missed heartbeat ack, terminating session")
				s.closeDone(done)
				return
			}
			s.emitStatesIfChanged()
			s.send(EvtAck, nil)
		}
	}
}

func (s *Session) lastAckTime() time.Time {
	s.lastAckMu.Lock()
	defer s.lastAckMu.Unlock()
	return s.lastAck
}

func (s *Session) touchAck() {
	s.lastAckMu.Lock()
	s.lastAck = s.clock.Now()
	s.lastAckMu.Unlock()
}

// emitStatesIfChanged drains the buffered active-state map under
// state_change_mutex and writes a states event, but only when something
// actually changed since the last tick (spec: "emitted only when
// state_change is set").
func (s *Session) emitStatesIfChanged() {
	s.stateMu.Lock()
	if !s.stateChange {
		s.stateMu.Unlock()
		return
	}
	snapshot := make([]StateCount, 0, len(s.active))
	for id, count := range s.active {
		snapshot = append(snapshot, StateCount{ID: id, Count: count})
	}
	s.stateChange = false
	s.stateMu.Unlock()

	s.send(EvtStates, StatesPayload{States: snapshot})
}

// send serializes one frame write under send_mutex; I/O faults log and
// terminate the session, never the engine (spec §7, §8).
func (s *Session) send(typ string, payload interface{}) {
	s.sendMu.Lock()
	if s.writer == nil {
		s.sendMu.Unlock()
		return
	}
	err := writeFrame(s.writer, typ, payload)
	if err == nil {
		err = s.writer.Flush()
	}
	s.sendMu.Unlock()
	if err != nil {
		s.log.Error("debug session write fault, terminating session", logger.Error(err))
		s.terminate("write fault")
	}
}

func (s *Session) sendAck(payload interface{}) {
	s.touchAck()
	s.send(EvtAck, payload)
}

func (s *Session) sendError(message string) {
	s.send(EvtError, ErrorPayload{Message: message})
}

func (s *Session) handleHello(frame *Frame) bool {
	var p HelloPayload
	if err := jsonAPI.Unmarshal(frame.Payload, &p); err != nil {
		s.sendError("malformed hello payload")
		return false
	}
	if s.authSecret != nil {
		if !s.validToken(p.Token) {
			s.sendError("unauthorized")
			return false
		}
	}
	if p.Version != ProtocolVersion {
		s.sendError("protocol version mismatch")
		return false
	}

	if p.Hash != s.referenceHash {
		// spec §6: "server compares hash against the net's SHA-1 identity;
		// mismatch -> error and close".
		s.sendError("net hash mismatch")
		return false
	}

	s.touchAck()
	s.send(EvtAck, AckHelloPayload{Version: ProtocolVersion, Hash: s.referenceHash, SessionID: s.id})
	return true
}

// validToken checks an optional bearer token carried in hello against the
// configured auth secret, HMAC-signed per the reference codebase's
// dgrijalva/jwt-go convention.
func (s *Session) validToken(token string) bool {
	if token == "" {
		return false
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return s.authSecret, nil
	})
	return err == nil && parsed.Valid
}

func (s *Session) handleStart() {
	n := s.factory()
	n.SetObserver(s)
	s.mu.Lock()
	s.engine = n
	s.state = StateRunning
	s.mu.Unlock()

	if err := n.Run(); err != nil {
		s.sendError(err.Error())
		return
	}
	s.sendAck(nil)
}

func (s *Session) handleStop() {
	s.mu.Lock()
	n := s.engine
	s.mu.Unlock()
	if n != nil {
		n.Stop()
	}
	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	s.sendAck(nil)
}

func (s *Session) handleReload() {
	s.handleStop()
	s.mu.Lock()
	s.engine = nil
	s.state = StateIdle
	s.mu.Unlock()
	s.handleStart()
}

func (s *Session) handlePause(frame *Frame) {
	var p PausePayload
	if err := jsonAPI.Unmarshal(frame.Payload, &p); err != nil {
		s.sendError("malformed pause payload")
		return
	}
	s.pauseMu.Lock()
	s.paused = p.Paused
	if !s.paused {
		s.pauseCond.Broadcast()
	}
	s.pauseMu.Unlock()

	s.mu.Lock()
	if p.Paused {
		s.state = StatePaused
	} else if s.state == StatePaused {
		s.state = StateRunning
	}
	s.mu.Unlock()

	s.sendAck(nil)
}

func (s *Session) handleBreakpoints(frame *Frame) {
	var p BreakpointsPayload
	if err := jsonAPI.Unmarshal(frame.Payload, &p); err != nil {
		s.sendError("malformed breakpoints payload")
		return
	}
	replacement := make(map[uint64]bool, len(p.ActionIDs))
	for _, id := range p.ActionIDs {
		replacement[id] = true
	}
	s.bpMu.Lock()
	s.breakpoints = replacement
	s.bpMu.Unlock()
	s.sendAck(nil)
}

func (s *Session) isBreakpoint(id uint64) bool {
	s.bpMu.Lock()
	defer s.bpMu.Unlock()
	return s.breakpoints[id]
}

// terminate logs and tears down the current client connection; the engine
// (if any net is running) is unaffected (spec §7 "I/O fault").
func (s *Session) terminate(reason string) {
	s.sendMu.Lock()
	conn := s.conn
	s.conn = nil
	s.writer = nil
	s.sendMu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}

	s.pauseMu.Lock()
	s.paused = false
	s.pauseCond.Broadcast()
	s.pauseMu.Unlock()

	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()

	s.log.Info("debug session terminated", logger.String("reason", reason))
}

// --- petri.Observer ---

// OnEnableState bumps the session's buffered active-state depth for a, then
// blocks the calling manager goroutine at this enable checkpoint if either
// an explicit "pause" command is in effect (spec §4.6: "runners block at
// enable checkpoint until resumed") or a itself is a breakpoint, in which
// case hitting it requests the same pause (spec §4.5: "if a ∈ breakpoints,
// request pause before submitting the runner"). This runs on the
// enableState call path, before the pool task is submitted, and the
// manager holds the engine's activation lock while it waits here: while
// paused, runners reporting results and Net.Stop block on that lock until
// the pause is lifted or the session terminates.
func (s *Session) OnEnableState(a *petri.Action) {
	s.bumpActive(a.ID(), 1)

	s.pauseMu.Lock()
	if s.isBreakpoint(a.ID()) {
		s.paused = true
	}
	for s.paused {
		s.pauseCond.Wait()
	}
	s.pauseMu.Unlock()
}

// OnDisableState decrements the session's buffered depth for a.
func (s *Session) OnDisableState(a *petri.Action) {
	s.bumpActive(a.ID(), -1)
}

// OnTerminate notifies the session the net has stopped on its own (spec
// §4.6: "stopped ... can be entered autonomously when the net reaches zero
// active states").
func (s *Session) OnTerminate() {
	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	s.send(EvtExit, ExitPayload{Reason: "net terminated"})
}

// Snapshot returns the session's current state and a copy of its buffered
// active-action depths, for the read-only HTTP introspection surface
// (internal/api). Safe for concurrent use.
func (s *Session) Snapshot() (state State, active map[uint64]int) {
	s.mu.Lock()
	state = s.state
	s.mu.Unlock()

	s.stateMu.Lock()
	active = make(map[uint64]int, len(s.active))
	for id, count := range s.active {
		active[id] = count
	}
	s.stateMu.Unlock()
	return state, active
}

func (s *Session) bumpActive(id uint64, delta int) {
	s.stateMu.Lock()
	s.active[id] += delta
	if s.active[id] <= 0 {
		delete(s.active, id)
	}
	s.stateChange = true
	s.stateMu.Unlock()
}
