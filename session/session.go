// Package session implements the Session Provider Adapter: a thin interface
// over an external browser-session API, generalized from the teacher's
// docker.Manager (external-process interaction with a timeout-bounded
// context and structured zerolog error logging).
package session

import "context"

// Session is the remote resource acquired before an invocation begins and
// released after it terminates.
type Session struct {
	ID         string
	ConnectURL string
	Extra      map[string]interface{}
}

// Provider creates and releases Sessions. Release SHOULD NOT return an error
// that the caller must act on - implementations log and swallow failures,
// per spec §4.7.
type Provider interface {
	Create(ctx context.Context, config map[string]interface{}) (Session, error)
	Release(ctx context.Context, id string) error
}
