package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kylerisse/metricstore/pkg/config"
	"github.com/kylerisse/metricstore/pkg/identifier"
	"github.com/kylerisse/metricstore/pkg/store"
)

const maxBodyBytes = 1 << 20

// ValueResponse is the body of value reads and writes.
type ValueResponse struct {
	Value any `json:"value"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg, RequestID: RequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// metricKeyFromQuery builds a key from the run_name, run_time,
// data_asset_name, suite, metric and metric_kwargs_id query parameters.
// run_time, suite and metric are required.
func metricKeyFromQuery(r *http.Request) (identifier.ValidationMetricIdentifier, error) {
	q := r.URL.Query()
	var key identifier.ValidationMetricIdentifier

	rawTime := q.Get("run_time")
	if rawTime == "" {
		return key, errors.New("run_time is required")
	}
	runTime, err := identifier.ParseRunTime(rawTime)
	if err != nil {
		return key, err
	}
	suite := q.Get("suite")
	if suite == "" {
		return key, errors.New("suite is required")
	}
	metric := q.Get("metric")
	if metric == "" {
		return key, errors.New("metric is required")
	}

	key.RunID = identifier.NewRunIdentifier(q.Get("run_name"), runTime)
	key.DataAssetName = q.Get("data_asset_name")
	key.ExpectationSuiteIdentifier = identifier.ExpectationSuiteIdentifier{Name: suite}
	key.MetricName = metric
	key.MetricKwargsID = q.Get("metric_kwargs_id")
	return key, nil
}

func (s *Server) handleGetValue(w http.ResponseWriter, r *http.Request, st *store.MetricStore) {
	key, err := metricKeyFromQuery(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	value, ok, err := st.Get(r.Context(), key)
	if err != nil {
		s.logger.WithField("request_id", RequestID(r.Context())).Errorf("API Handler: failed to get %v from %s (%v)", key.ToTuple(), st.Name(), err)
		s.writeError(w, r, http.StatusInternalServerError, "failed to read value")
		return
	}
	if !ok {
		s.writeError(w, r, http.StatusNotFound, "no value stored for key")
		return
	}
	writeJSON(w, ValueResponse{Value: value})
}

func (s *Server) handlePutValue(w http.ResponseWriter, r *http.Request, st *store.MetricStore) {
	key, err := metricKeyFromQuery(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var body map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	value, ok := body["value"]
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, `body must contain "value"`)
		return
	}

	if err := st.Set(r.Context(), key, value); err != nil {
		if store.IsValidationError(err) {
			s.writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.WithField("request_id", RequestID(r.Context())).Errorf("API Handler: failed to set %v in %s (%v)", key.ToTuple(), st.Name(), err)
		s.writeError(w, r, http.StatusInternalServerError, "failed to store value")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBindParams(w http.ResponseWriter, r *http.Request) {
	runName := r.PathValue("run_name")
	if runName == identifier.NoRunName {
		runName = ""
	}
	runTime, err := identifier.ParseRunTime(r.PathValue("run_time"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	params, err := s.params.GetBindParams(r.Context(), identifier.NewRunIdentifier(runName, runTime))
	if err != nil {
		s.logger.WithField("request_id", RequestID(r.Context())).Errorf("API Handler: failed to get bind params (%v)", err)
		s.writeError(w, r, http.StatusInternalServerError, "failed to read parameters")
		return
	}
	writeJSON(w, params)
}

// handleConfig returns the evaluation parameter store configuration with
// secrets masked.
func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, config.Redact(s.params.Config()))
}
