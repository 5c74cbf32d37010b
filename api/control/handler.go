// Package control exposes the control service over HTTP.
//
//	POST /control  runs a request document (JSON, or YAML with a yaml
//	               content type) and returns the result document
//	GET  /runs     lists run log records, filtered by limit, status,
//	               request_id, start and end (RFC 3339)
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	corecontrol "github.com/kilianp07/gridbalance/core/control"
	"github.com/kilianp07/gridbalance/core/model"
	"github.com/kilianp07/gridbalance/core/runlog"
)

// maxBody bounds request documents.
const maxBody = 8 << 20

// Runner runs requests and exposes the run history.
type Runner interface {
	Run(ctx context.Context, req model.Request) (model.Result, error)
	History(ctx context.Context, q runlog.Query) ([]runlog.Record, error)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// NewHandler returns the API handler. Requests must include an
// Authorization header with "Bearer <token>" when token is non-empty.
func NewHandler(r Runner, token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /control", func(w http.ResponseWriter, req *http.Request) {
		handleControl(w, req, r)
	})
	mux.HandleFunc("GET /runs", func(w http.ResponseWriter, req *http.Request) {
		handleRuns(w, req, r)
	})
	if token == "" {
		return mux
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, req)
	})
}

func handleControl(w http.ResponseWriter, r *http.Request, runner Runner) {
	format := "json"
	if ct := r.Header.Get("Content-Type"); strings.Contains(ct, "yaml") {
		format = "yaml"
	}
	req, err := model.DecodeRequest(io.LimitReader(r.Body, maxBody), format)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	res, err := runner.Run(r.Context(), req)
	if err != nil {
		status, body := classify(err)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func classify(err error) (int, errorBody) {
	var verr *model.ValidationError
	var cerr *corecontrol.ConfigurationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Error: err.Error(), Field: verr.Field}
	case errors.As(err, &cerr):
		return http.StatusUnprocessableEntity, errorBody{Error: err.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Error: err.Error()}
	}
}

func handleRuns(w http.ResponseWriter, r *http.Request, runner Runner) {
	q, err := parseQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	recs, err := runner.History(r.Context(), q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	if recs == nil {
		recs = []runlog.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func parseQuery(r *http.Request) (runlog.Query, error) {
	v := r.URL.Query()
	q := runlog.Query{
		RequestID: v.Get("request_id"),
		Status:    model.Status(v.Get("status")),
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid limit %q", s)
		}
		q.Limit = n
	}
	var err error
	if q.Start, err = parseTime(v.Get("start")); err != nil {
		return q, fmt.Errorf("invalid start: %w", err)
	}
	if q.End, err = parseTime(v.Get("end")); err != nil {
		return q, fmt.Errorf("invalid end: %w", err)
	}
	return q, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
