package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// StaticProvider is an in-memory Provider used in tests and local
// development without a real Browserbase account, grounded on the teacher's
// mutex-guarded in-memory FunctionStore.
type StaticProvider struct {
	mu       sync.Mutex
	sessions map[string]Session
	fail     bool
}

// NewStaticProvider returns a Provider that hands out synthetic sessions.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{sessions: make(map[string]Session)}
}

// FailNextCreate causes the next Create call to return an error, used to
// exercise SessionProvisionFailed paths in tests.
func (p *StaticProvider) FailNextCreate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = true
}

func (p *StaticProvider) Create(_ context.Context, config map[string]interface{}) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fail {
		p.fail = false
		return Session{}, fmt.Errorf("static provider: forced failure")
	}

	id := uuid.New().String()
	s := Session{ID: id, ConnectURL: "ws://local-static/" + id, Extra: config}
	p.sessions[id] = s
	return s, nil
}

func (p *StaticProvider) Release(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, id)
	return nil
}

// Active reports how many sessions are currently unreleased, used by tests
// to assert P4 (exactly-once release).
func (p *StaticProvider) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

var _ Provider = (*StaticProvider)(nil)
