package bridge

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerFailsWithoutHeldNext(t *testing.T) {
	b := New()
	inv, ok := b.Trigger("echo", map[string]interface{}{}, nil)
	assert.False(t, ok)
	assert.Nil(t, inv)
}

func TestHoldNextThenTriggerSucceeds(t *testing.T) {
	b := New()
	rec := httptest.NewRecorder()

	conn := b.HoldNext(rec)
	inv, ok := b.Trigger("echo", map[string]interface{}{"x": 1.0}, map[string]string{"region": "local"})
	require.True(t, ok)
	require.NotNil(t, inv)

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Fatal("trigger did not close the held connection")
	}

	assert.Equal(t, 200, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Lambda-Runtime-Aws-Request-Id"))
	assert.NotEmpty(t, rec.Header().Get("Lambda-Runtime-Deadline-Ms"))
	assert.Contains(t, rec.Body.String(), "echo")
}

func TestSingleFlightRejectsSecondTrigger(t *testing.T) {
	b := New()
	b.HoldNext(httptest.NewRecorder())
	_, ok := b.Trigger("fn-a", nil, nil)
	require.True(t, ok)

	// no nextConn held now; second trigger must fail
	_, ok = b.Trigger("fn-b", nil, nil)
	assert.False(t, ok)
}

func TestCompleteWithMismatchedIDIsRejected(t *testing.T) {
	b := New()
	b.HoldNext(httptest.NewRecorder())
	inv, ok := b.Trigger("echo", nil, nil)
	require.True(t, ok)

	assert.False(t, b.CompleteWithSuccess("not-the-id", "result"))

	// the real id still resolves afterward
	assert.True(t, b.CompleteWithSuccess(inv.RequestID, "result"))
	select {
	case outcome := <-inv.Done():
		assert.True(t, outcome.Success())
		assert.Equal(t, "result", outcome.Result)
	case <-time.After(time.Second):
		t.Fatal("outcome never delivered")
	}
}

func TestCompleteWithErrorDeliversOutcome(t *testing.T) {
	b := New()
	b.HoldNext(httptest.NewRecorder())
	inv, ok := b.Trigger("echo", nil, nil)
	require.True(t, ok)

	ok = b.CompleteWithError(inv.RequestID, RuntimeErrorShape{Message: "boom", Type: "Error", StackTrace: []string{"l1"}})
	require.True(t, ok)

	outcome := <-inv.Done()
	assert.False(t, outcome.Success())
	assert.Equal(t, "boom", outcome.Err.Message)
}

func TestPreemptionSendsUnavailableToFirstConnection(t *testing.T) {
	b := New()
	first := httptest.NewRecorder()
	second := httptest.NewRecorder()

	firstConn := b.HoldNext(first)
	b.HoldNext(second)

	select {
	case <-firstConn.Done():
	case <-time.After(time.Second):
		t.Fatal("first connection was never preempted")
	}
	assert.Equal(t, 503, first.Code)
	assert.Contains(t, first.Body.String(), "Another runtime connected")

	// second is still live and can be triggered
	_, ok := b.Trigger("echo", nil, nil)
	assert.True(t, ok)
}

func TestAbandonClearsInFlightInvocation(t *testing.T) {
	b := New()
	b.HoldNext(httptest.NewRecorder())
	inv, ok := b.Trigger("echo", nil, nil)
	require.True(t, ok)

	b.Abandon(inv.RequestID)
	assert.False(t, b.InvokeInFlight())

	// a late completion for the abandoned id is now a no-op mismatch
	assert.False(t, b.CompleteWithSuccess(inv.RequestID, "too late"))
}

func TestHoldNextTriggersOnFirstConnectExactlyOnce(t *testing.T) {
	b := New()
	calls := 0
	b.OnFirstConnect = func() { calls++ }

	b.HoldNext(httptest.NewRecorder())
	b.Trigger("echo", nil, nil)
	b.HoldNext(httptest.NewRecorder())

	assert.Equal(t, 1, calls)
}

func TestClearNextIsNoOpAfterTrigger(t *testing.T) {
	b := New()
	conn := b.HoldNext(httptest.NewRecorder())
	b.Trigger("echo", nil, nil)

	b.ClearNext(conn)
	assert.False(t, b.HasRuntimeConnected())
}
