package runtimeloop

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/browserbase/sdk-functions-go/registry"
)

func echoHandler(_ context.Context, params map[string]interface{}) (interface{}, error) {
	return params, nil
}

func TestIterateHappyPathPostsResponse(t *testing.T) {
	var posted string
	var postedBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/next"):
			w.Header().Set("Lambda-Runtime-Aws-Request-Id", "req-1")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"functionName": "echo",
				"params":       map[string]interface{}{"x": 1.0},
			})
		case strings.HasSuffix(r.URL.Path, "/response"):
			posted = "response"
			postedBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusAccepted)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	reg := registry.New()
	reg.Register("echo", echoHandler, registry.Config{})

	loop := New(strings.TrimPrefix(srv.URL, "http://"), reg, false)
	ok := loop.iterate(context.Background())

	assert.True(t, ok)
	assert.Equal(t, "response", posted)
	assert.Contains(t, string(postedBody), `"x":1`)
}

func TestIterateHandlerErrorPostsError(t *testing.T) {
	var posted string
	var postedBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/next"):
			w.Header().Set("Lambda-Runtime-Aws-Request-Id", "req-2")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"functionName": "boom"})
		case strings.HasSuffix(r.URL.Path, "/error"):
			posted = "error"
			postedBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusAccepted)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	reg := registry.New()
	reg.Register("boom", func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
		return nil, assertErr
	}, registry.Config{})

	loop := New(strings.TrimPrefix(srv.URL, "http://"), reg, false)
	ok := loop.iterate(context.Background())

	assert.True(t, ok)
	assert.Equal(t, "error", posted)
	assert.Contains(t, string(postedBody), "boom failed")
}

type testErr struct{ msg string }

func (e testErr) Error() string { return e.msg }

var assertErr = testErr{msg: "boom failed"}

func TestIterateUnknownFunctionIsSystemErrorButNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Lambda-Runtime-Aws-Request-Id", "req-3")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"functionName": "ghost"})
	}))
	defer srv.Close()

	reg := registry.New()
	loop := New(strings.TrimPrefix(srv.URL, "http://"), reg, false)

	ok := loop.iterate(context.Background())
	assert.True(t, ok, "non-production system errors must not stop the loop")
}

func TestIterateFetchNextTransportFailureIsSystemError(t *testing.T) {
	reg := registry.New()
	loop := New("127.0.0.1:0", reg, false)

	ok := loop.iterate(context.Background())
	assert.True(t, ok)
}

