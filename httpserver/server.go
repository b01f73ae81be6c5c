// Package httpserver implements the HTTP Server component: it routes the
// four bridge endpoints, parses and validates request bodies, and drives
// session acquisition/release around the external invoke path. Adapted from
// the teacher's handlers.ServerHandler (struct-of-collaborators,
// RegisterRoutes, one method per endpoint).
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/browserbase/sdk-functions-go/bridge"
	"github.com/browserbase/sdk-functions-go/config"
	apierrors "github.com/browserbase/sdk-functions-go/errors"
	"github.com/browserbase/sdk-functions-go/manifest"
	"github.com/browserbase/sdk-functions-go/metrics"
	"github.com/browserbase/sdk-functions-go/middleware"
	"github.com/browserbase/sdk-functions-go/models"
	"github.com/browserbase/sdk-functions-go/session"
)

// Server holds every collaborator the HTTP layer needs.
type Server struct {
	cfg            *config.Config
	bridge         *bridge.Bridge
	manifests      *manifest.Store
	sessions       session.Provider
	metrics        *metrics.Metrics
	metricsHandler http.Handler
}

// New builds a Server. The manifest store's ReloadOnce is wired to the
// bridge's first runtime connection here, per spec §4.3.
func New(cfg *config.Config, br *bridge.Bridge, manifests *manifest.Store, sessions session.Provider, m *metrics.Metrics, metricsHandler http.Handler) *Server {
	s := &Server{
		cfg:            cfg,
		bridge:         br,
		manifests:      manifests,
		sessions:       sessions,
		metrics:        m,
		metricsHandler: metricsHandler,
	}
	br.OnFirstConnect = manifests.ReloadOnce
	return s
}

// handleHealth implements GET / -> 200 {"ok":true}; anything else under "/"
// falls through to 404, per spec §4.6.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleInvoke implements POST /v1/functions/{name}/invoke.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	const prefix = "/v1/functions/"
	const suffix = "/invoke"

	requestID, _ := r.Context().Value(middleware.RequestIDKey{}).(string)

	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !strings.HasPrefix(r.URL.Path, prefix) || !strings.HasSuffix(r.URL.Path, suffix) {
		writeJSONError(w, http.StatusNotFound, "Not found")
		return
	}
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix), suffix)
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "Function name is required")
		return
	}

	started := time.Now()

	var body models.InvokeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
	}
	if body.Params == nil {
		body.Params = map[string]interface{}{}
	}

	pm, ok := s.manifests.Get(name)
	if !ok {
		log.Warn().Str("request_id", requestID).Str("function", name).Msg("function not found in registry")
		writeJSONError(w, http.StatusNotFound, "Not Found")
		return
	}

	sessCfg := pm.Config.SessionConfig
	if sessCfg == nil {
		sessCfg = map[string]interface{}{}
	}

	sess, err := s.sessions.Create(r.Context(), sessCfg)
	if err != nil {
		log.Error().Str("request_id", requestID).Str("function", name).Err(err).Msg("failed to create browser session")
		writeJSONError(w, http.StatusInternalServerError, "Failed to create browser session", err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if err := s.sessions.Release(context.Background(), sess.ID); err != nil {
			log.Warn().Str("session_id", sess.ID).Err(err).Msg("session release returned an error")
		}
		if s.metrics != nil {
			s.metrics.SessionsReleased.Inc()
		}
	}
	defer release()

	invocationContext := body.Context
	if invocationContext == nil {
		invocationContext = &models.InvocationContext{
			Invocation: models.InvocationMeta{ID: newInvocationID(), Region: "local"},
		}
	}
	// context.session is always replaced by the session just acquired,
	// including the provider's extra fields; whatever the caller supplied
	// under context.session is dropped.
	invocationContext.Session = models.Session{ID: sess.ID, ConnectURL: sess.ConnectURL, Extra: sess.Extra}

	inv, ok := s.bridge.Trigger(name, body.Params, invocationContext)
	if !ok {
		release()
		if s.bridge.InvokeInFlight() {
			writeJSONMessage(w, http.StatusServiceUnavailable, "Another invocation is in progress")
		} else {
			writeJSONMessage(w, http.StatusServiceUnavailable, "No runtime connected")
		}
		return
	}

	if s.metrics != nil {
		s.metrics.InFlightInvokes.Inc()
		defer s.metrics.InFlightInvokes.Dec()
	}

	select {
	case outcome := <-inv.Done():
		if s.metrics != nil {
			s.metrics.InvokeLatencySecs.Observe(time.Since(started).Seconds())
		}
		if outcome.Success() {
			if s.metrics != nil {
				s.metrics.InvocationsTotal.WithLabelValues("success").Inc()
			}
			writeJSON(w, http.StatusOK, outcome.Result)
			return
		}
		if s.metrics != nil {
			s.metrics.InvocationsTotal.WithLabelValues("error").Inc()
		}
		apierrors.WriteRuntimeError(w, models.RuntimeError{
			ErrorMessage: outcome.Err.Message,
			ErrorType:    outcome.Err.Type,
			StackTrace:   outcome.Err.StackTrace,
		})
	case <-r.Context().Done():
		s.bridge.Abandon(inv.RequestID)
		if s.metrics != nil {
			s.metrics.InvocationsTotal.WithLabelValues("client_disconnect").Inc()
		}
	}
}

// handleNext implements GET /2018-06-01/runtime/invocation/next.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	conn := s.bridge.HoldNext(w)

	select {
	case <-conn.Done():
		return
	case <-r.Context().Done():
		s.bridge.ClearNext(conn)
	}
}

// handleRuntimeOutcome implements the response/error POST endpoints, sharing
// a single handler since both parse a requestID from the path and differ
// only in body shape and which Bridge method they call.
func (s *Server) handleRuntimeOutcome(w http.ResponseWriter, r *http.Request) {
	const base = "/2018-06-01/runtime/invocation/"

	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, base)
	var requestID, kind string
	switch {
	case strings.HasSuffix(rest, "/response"):
		requestID = strings.TrimSuffix(rest, "/response")
		kind = "response"
	case strings.HasSuffix(rest, "/error"):
		requestID = strings.TrimSuffix(rest, "/error")
		kind = "error"
	default:
		writeJSONError(w, http.StatusNotFound, "Not found")
		return
	}
	if requestID == "" {
		writeJSONError(w, http.StatusBadRequest, "Request id is required")
		return
	}

	if kind == "response" {
		var result interface{}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
				writeJSONError(w, http.StatusBadRequest, "Invalid request body", err.Error())
				return
			}
		} else {
			result = map[string]interface{}{}
		}

		if !s.bridge.CompleteWithSuccess(requestID, result) {
			writeJSONError(w, http.StatusBadRequest, "Request id does not match the active invocation")
			return
		}
		writeJSON(w, http.StatusAccepted, models.AcceptedResponse{Status: "accepted"})
		return
	}

	var re models.RuntimeError
	if err := json.NewDecoder(r.Body).Decode(&re); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if re.ErrorMessage == "" || re.ErrorType == "" {
		writeJSONError(w, http.StatusBadRequest, "errorMessage and errorType are required")
		return
	}
	if re.StackTrace == nil {
		re.StackTrace = []string{}
	}

	if !s.bridge.CompleteWithError(requestID, bridge.RuntimeErrorShape{
		Message:    re.ErrorMessage,
		Type:       re.ErrorType,
		StackTrace: re.StackTrace,
	}) {
		writeJSONError(w, http.StatusBadRequest, "Request id does not match the active invocation")
		return
	}
	writeJSON(w, http.StatusAccepted, models.AcceptedResponse{Status: "accepted"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newInvocationID() string {
	return uuid.New().String()
}

// writeJSONMessage renders {"message": ...}, matching the seed scenario for
// the bridge's trigger-false responses (spec §8 scenario 6), distinct from
// writeJSONError's {"error", "details"} shape used everywhere else.
func writeJSONMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, struct {
		Message string `json:"message"`
	}{Message: message})
}

func writeJSONError(w http.ResponseWriter, status int, message string, details ...string) {
	d := ""
	if len(details) > 0 {
		d = details[0]
	}
	writeJSON(w, status, struct {
		Error   string `json:"error"`
		Details string `json:"details,omitempty"`
	}{Error: message, Details: d})
}
