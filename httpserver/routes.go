package httpserver

import (
	"net/http"

	"github.com/browserbase/sdk-functions-go/middleware"
)

// RegisterRoutes wires every endpoint spec §4.6 names onto mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	withCommon := func(h http.HandlerFunc) http.Handler {
		return middleware.CORSMiddleware(
			middleware.RecoverMiddleware(
				middleware.LoggingMiddleware(http.HandlerFunc(h)),
			),
		)
	}

	mux.Handle("/", withCommon(s.handleHealth))
	mux.Handle("/v1/functions/", withCommon(s.handleInvoke))
	mux.Handle("/2018-06-01/runtime/invocation/next", withCommon(s.handleNext))
	// No route is wrapped in TimeoutMiddleware: the next long poll and the
	// external invoke block until the rendezvous completes, and
	// handleRuntimeOutcome is a fast POST.
	mux.Handle("/2018-06-01/runtime/invocation/", withCommon(s.handleRuntimeOutcome))
}

// RegisterMetricsRoutes mounts the Prometheus handler, served on a separate
// listener per SPEC_FULL §3.1 (BB_METRICS_ADDR).
func (s *Server) RegisterMetricsRoutes(mux *http.ServeMux) {
	mux.Handle("/metrics", s.metricsHandler)
}
