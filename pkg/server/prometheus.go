package server

import (
	"fmt"
	"net/http"
	"strings"
)

// handlePrometheus writes Prometheus-formatted counters for every store
// operation seen so far.
func (s *Server) handlePrometheus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")

	w.Write([]byte("# HELP metricstore_operations_total Store operations by store and op.\n"))
	w.Write([]byte("# TYPE metricstore_operations_total counter\n"))
	w.Write([]byte("# HELP metricstore_operation_failures_total Failed store operations by store and op.\n"))
	w.Write([]byte("# TYPE metricstore_operation_failures_total counter\n"))
	w.Write([]byte("# HELP metricstore_operation_duration_seconds_total Time spent in store operations.\n"))
	w.Write([]byte("# TYPE metricstore_operation_duration_seconds_total counter\n"))

	for _, st := range s.stats.Snapshot() {
		labels := fmt.Sprintf(`store="%s", op="%s"`,
			sanitizePrometheusLabel(st.Store),
			sanitizePrometheusLabel(string(st.Op)),
		)
		w.Write(fmt.Appendf([]byte{}, "metricstore_operations_total{%s} %d\n", labels, st.Total))
		w.Write(fmt.Appendf([]byte{}, "metricstore_operation_failures_total{%s} %d\n", labels, st.Failures))
		w.Write(fmt.Appendf([]byte{}, "metricstore_operation_duration_seconds_total{%s} %g\n", labels, st.Duration.Seconds()))
	}
}

// sanitizePrometheusLabel escapes backslash, double-quote, and newline
// characters in a Prometheus label value.
func sanitizePrometheusLabel(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
