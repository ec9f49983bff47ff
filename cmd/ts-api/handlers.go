package main

import (
	"TraceSpectra/internal/model"
	"TraceSpectra/internal/observability"
	"TraceSpectra/internal/priority"
	"TraceSpectra/internal/query"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	querier query.Querier
}

// deltaResponse is the JSON form of a band delta. Value is omitted when undefined.
type deltaResponse struct {
	Value   *float64 `json:"value,omitempty"`
	Display string   `json:"display"`
}

type compareResponse struct {
	Baseline   string                       `json:"baseline"`
	Comparison string                       `json:"comparison"`
	Metric     model.Metric                 `json:"metric"`
	Deltas     map[model.Band]deltaResponse `json:"deltas"`
}

type sampleResponse struct {
	Label   string                 `json:"label"`
	Samples []model.PrioritySample `json:"samples"`
}

func newRouter(h *APIHandler, metrics *observability.Metrics) http.Handler {
	r := mux.NewRouter()
	r.Use(metrics.Middleware)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/runs", h.listRunsHandler).Methods("GET")
	api.HandleFunc("/runs/{name}/fct", h.runStatsHandler).Methods("GET")
	api.HandleFunc("/runs/{name}/samples", h.samplesHandler).Methods("GET")
	api.HandleFunc("/runs/{name}/iterations", h.iterationsHandler).Methods("GET")
	api.HandleFunc("/compare", h.compareHandler).Methods("GET")

	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	return handlers.CORS(handlers.AllowedMethods([]string{"GET"}))(r)
}

func (h *APIHandler) listRunsHandler(w http.ResponseWriter, r *http.Request) {
	runs, err := h.querier.ListRuns(r.Context())
	if err != nil {
		writeError(w, fmt.Errorf("failed to list runs: %w", err))
		return
	}
	writeJSON(w, runs)
}

func (h *APIHandler) runStatsHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	stats, err := h.querier.RunStats(r.Context(), name)
	if err != nil {
		writeError(w, fmt.Errorf("failed to query run statistics: %w", err))
		return
	}
	writeJSON(w, stats)
}

func (h *APIHandler) samplesHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	class := r.URL.Query().Get("priority")
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf("invalid limit %q", s), http.StatusBadRequest)
			return
		}
		limit = n
	}

	samples, err := h.querier.PrioritySamples(r.Context(), name, class, limit)
	if err != nil {
		writeError(w, fmt.Errorf("failed to query priority samples: %w", err))
		return
	}

	byClass := make(map[string]*sampleResponse)
	for _, s := range samples {
		resp, ok := byClass[s.Priority]
		if !ok {
			resp = &sampleResponse{Label: priority.DisplayLabel(s.Priority)}
			byClass[s.Priority] = resp
		}
		resp.Samples = append(resp.Samples, s)
	}
	writeJSON(w, byClass)
}

func (h *APIHandler) iterationsHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	iterations, err := h.querier.IterationDurations(r.Context(), name)
	if err != nil {
		writeError(w, fmt.Errorf("failed to query iteration durations: %w", err))
		return
	}
	writeJSON(w, iterations)
}

func (h *APIHandler) compareHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	baseline, comparison := q.Get("baseline"), q.Get("comparison")
	if baseline == "" || comparison == "" {
		http.Error(w, "baseline and comparison are required", http.StatusBadRequest)
		return
	}
	metricName := q.Get("metric")
	if metricName == "" {
		metricName = string(model.MetricMean)
	}
	metric, err := model.ParseMetric(metricName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	deltas, err := query.Compare(r.Context(), h.querier, baseline, comparison, metric)
	if err != nil {
		writeError(w, fmt.Errorf("failed to compare runs: %w", err))
		return
	}

	resp := compareResponse{
		Baseline:   baseline,
		Comparison: comparison,
		Metric:     metric,
		Deltas:     make(map[model.Band]deltaResponse, len(deltas)),
	}
	for band, d := range deltas {
		dr := deltaResponse{Display: d.String()}
		if d.Defined() {
			v := d.Value
			dr.Value = &v
		}
		resp.Deltas[band] = dr
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, query.ErrRunNotFound) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}
