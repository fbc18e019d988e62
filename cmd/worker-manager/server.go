package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readinessTimeout = 5 * time.Second

type readinessCheck func(ctx context.Context) error

func newHealthServer(port int, checks map[string]readinessCheck) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           newHealthMux(checks),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newHealthMux(checks map[string]readinessCheck) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		failures := runChecks(ctx, checks)
		body := map[string]interface{}{
			"status": "ready",
			"time":   time.Now().UTC().Format(time.RFC3339),
		}
		code := http.StatusOK
		if len(failures) > 0 {
			body["status"] = "not ready"
			body["failures"] = failures
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, body)
	})

	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// runChecks returns the failing dependencies and their errors.
func runChecks(ctx context.Context, checks map[string]readinessCheck) map[string]string {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failures := map[string]string{}
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	return failures
}

func writeStatus(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func serve(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
