package bridge

import (
	"net/http"
	"time"
)

// heldConnection is an open HTTP response plus the time it started waiting.
type heldConnection struct {
	w         http.ResponseWriter
	done      chan struct{}
	heldSince time.Time
}

// Done returns the channel that closes once the connection has been
// consumed by Trigger or preempted by a later HoldNext.
func (c *heldConnection) Done() <-chan struct{} {
	return c.done
}

// outcomeKind is what a trigger()'d invocation eventually resolves to.
type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeError
)

// Outcome is delivered on an Invocation's Done channel once the runtime
// posts a matching response or error.
type Outcome struct {
	Kind   outcomeKind
	Result interface{}
	Err    RuntimeErrorShape
}

// Success reports whether this outcome is a successful result.
func (o Outcome) Success() bool { return o.Kind == outcomeSuccess }

// RuntimeErrorShape mirrors models.RuntimeError without importing models,
// keeping the bridge's exported surface small; httpserver adapts between the
// two.
type RuntimeErrorShape struct {
	Message    string
	Type       string
	StackTrace []string
}
