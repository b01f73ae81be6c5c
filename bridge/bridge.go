// Package bridge implements the Invocation Bridge: the in-memory rendezvous
// between one long-polling runtime connection and at most one in-flight
// external invoke caller. All state transitions are serialized under a
// single mutex, per spec §5.
package bridge

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const invocationDeadline = 5 * time.Minute

// activeInvocation tracks the metadata of a triggered invocation without
// holding the external caller's http.ResponseWriter - the server layer owns
// writing that response itself once Invocation.Done() fires (spec §9's
// resolution of the leaky SessionCleanupCallback back-channel).
type activeInvocation struct {
	requestID    string
	functionName string
	doneCh       chan Outcome
}

// Invocation is the handle returned by Trigger. The server awaits Done()
// and writes the external response from the Outcome it receives.
type Invocation struct {
	RequestID    string
	FunctionName string
	doneCh       chan Outcome
}

// Done returns the channel the eventual Outcome is delivered on. It receives
// at most one Outcome, and none if the invocation is abandoned.
func (i *Invocation) Done() <-chan Outcome {
	return i.doneCh
}

// Bridge is the process-wide invocation coordinator.
type Bridge struct {
	mu sync.Mutex

	nextConn             *heldConnection
	invoke               *activeInvocation
	runtimeEverConnected bool

	// OnFirstConnect, if set, runs exactly once the first time a runtime
	// connects via HoldNext - wired by the server to Store.ReloadOnce.
	OnFirstConnect func()
}

// New returns an idle Bridge.
func New() *Bridge {
	return &Bridge{}
}

// HoldNext registers w as the held runtime-next connection. If one was
// already held, it is preempted with a 503 (spec I7 / P5). The caller's HTTP
// handler must then block on the returned connection's Done channel until it's closed (trigger
// consumed the connection) or the request context is done (client
// disconnected, in which case call ClearNext).
func (b *Bridge) HoldNext(w http.ResponseWriter) *heldConnection {
	b.mu.Lock()
	first := !b.runtimeEverConnected
	b.runtimeEverConnected = true

	if b.nextConn != nil {
		preempted := b.nextConn
		b.nextConn = nil
		go preempt(preempted)
	}

	conn := &heldConnection{w: w, done: make(chan struct{}), heldSince: time.Now()}
	b.nextConn = conn
	onFirstConnect := b.OnFirstConnect
	b.mu.Unlock()

	if first && onFirstConnect != nil {
		onFirstConnect()
	}

	return conn
}

func preempt(conn *heldConnection) {
	log.Warn().Dur("held_for", time.Since(conn.heldSince)).Msg("preempting stale runtime connection")
	conn.w.Header().Set("Content-Type", "application/json")
	conn.w.WriteHeader(http.StatusServiceUnavailable)
	_ = json.NewEncoder(conn.w).Encode(map[string]string{"error": "Another runtime connected"})
	close(conn.done)
}

// ClearNext removes conn from the held-next slot if it is still the current
// one (a premature client disconnect). It is a no-op if conn was already
// consumed by Trigger or preempted by a later HoldNext.
func (b *Bridge) ClearNext(conn *heldConnection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nextConn == conn {
		b.nextConn = nil
	}
}

// Trigger attempts to start a new invocation. It succeeds iff a runtime
// connection is held and no invocation is currently in flight (spec I3).
func (b *Bridge) Trigger(name string, params map[string]interface{}, invocationContext interface{}) (*Invocation, bool) {
	b.mu.Lock()
	if b.nextConn == nil || b.invoke != nil {
		b.mu.Unlock()
		return nil, false
	}

	conn := b.nextConn
	b.nextConn = nil

	requestID := uuid.New().String()
	doneCh := make(chan Outcome, 1)
	b.invoke = &activeInvocation{requestID: requestID, functionName: name, doneCh: doneCh}
	b.mu.Unlock()

	deadline := time.Now().Add(invocationDeadline).UnixMilli()
	conn.w.Header().Set("Lambda-Runtime-Aws-Request-Id", requestID)
	conn.w.Header().Set("Lambda-Runtime-Deadline-Ms", fmt.Sprintf("%d", deadline))
	conn.w.Header().Set("Lambda-Runtime-Invoked-Function-Arn", syntheticArn(name))
	conn.w.Header().Set("Content-Type", "application/json")
	conn.w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(conn.w).Encode(struct {
		FunctionName string      `json:"functionName"`
		Params       interface{} `json:"params"`
		Context      interface{} `json:"context"`
	}{FunctionName: name, Params: params, Context: invocationContext})
	close(conn.done)

	return &Invocation{RequestID: requestID, FunctionName: name, doneCh: doneCh}, true
}

// CompleteWithSuccess resolves the in-flight invocation with requestID iff
// it is the current one (spec I4). It returns false without mutating state
// on any mismatch.
func (b *Bridge) CompleteWithSuccess(requestID string, result interface{}) bool {
	return b.complete(requestID, Outcome{Kind: outcomeSuccess, Result: result})
}

// CompleteWithError resolves the in-flight invocation with requestID iff it
// is the current one.
func (b *Bridge) CompleteWithError(requestID string, errShape RuntimeErrorShape) bool {
	return b.complete(requestID, Outcome{Kind: outcomeError, Err: errShape})
}

func (b *Bridge) complete(requestID string, outcome Outcome) bool {
	b.mu.Lock()
	if b.invoke == nil || b.invoke.requestID != requestID {
		b.mu.Unlock()
		return false
	}
	doneCh := b.invoke.doneCh
	b.invoke = nil
	b.mu.Unlock()

	doneCh <- outcome
	return true
}

// Abandon clears the in-flight invocation if it still matches requestID,
// used when the external caller disconnects prematurely. No outcome is
// delivered since nothing is listening.
func (b *Bridge) Abandon(requestID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.invoke != nil && b.invoke.requestID == requestID {
		b.invoke = nil
	}
}

// HasRuntimeConnected reports whether a runtime-next connection is currently
// held. It turns false again once Trigger consumes that connection.
func (b *Bridge) HasRuntimeConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextConn != nil
}

// InvokeInFlight reports whether an invocation is currently active.
func (b *Bridge) InvokeInFlight() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.invoke != nil
}

func syntheticArn(name string) string {
	return fmt.Sprintf("arn:aws:lambda:local:000000000000:function:%s", name)
}
