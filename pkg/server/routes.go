package server

import (
	"net/http"
)

// Handler returns the full HTTP handler: routes wrapped in request ids,
// method filtering, rate limiting and response headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.handleGetValue(w, r, s.metrics)
	})
	mux.HandleFunc("PUT /api/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.handlePutValue(w, r, s.metrics)
	})

	mux.HandleFunc("GET /api/parameters", func(w http.ResponseWriter, r *http.Request) {
		s.handleGetValue(w, r, s.params.MetricStore)
	})
	mux.HandleFunc("PUT /api/parameters", func(w http.ResponseWriter, r *http.Request) {
		s.handlePutValue(w, r, s.params.MetricStore)
	})

	mux.HandleFunc("GET /api/runs/{run_name}/{run_time}/parameters", func(w http.ResponseWriter, r *http.Request) {
		s.handleBindParams(w, r)
	})

	mux.HandleFunc("GET /api/config", func(w http.ResponseWriter, r *http.Request) {
		s.handleConfig(w, r)
	})

	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		s.handlePrometheus(w, r)
	})

	rl := newRateLimitMiddleware(s.limiter)
	return requestIDMiddleware(s.logger,
		allowMethods(rl(noCacheMiddleware(securityHeadersMiddleware(mux))),
			http.MethodGet, http.MethodHead, http.MethodPut))
}
