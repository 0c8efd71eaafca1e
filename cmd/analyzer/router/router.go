// Package router configures HTTP routes for the analyzer's HTTP API.
//
// The analyzer exposes an HTTP server on port 8082 (configurable) that
// provides report retrieval, health checks, and Prometheus metrics.
//
// Routes configured:
//   - GET /report/latest?site=<name> - Retrieve the latest energy report
//   - GET /healthz - Health check endpoint (returns 200 OK)
//   - GET /metrics - Prometheus metrics endpoint
//
// The /report/latest endpoint returns the stored report as JSON, including
// the calibrated burner power, the per-circuit energy totals, and the
// steady-state fraction. Reports older than the stale threshold include an
// X-Hydronic-Stale header.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/hydronic/pkg/httpx"
	"github.com/HatiCode/hydronic/pkg/storage"
)

var siteNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,251}[a-zA-Z0-9])?$`)

// SetupRoutes configures HTTP endpoints for the analyzer.
func SetupRoutes(store storage.Store, staleAfter time.Duration, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/healthz", httpx.HealthHandler())

	mux.HandleFunc("/report/latest", handleGetReport(store, staleAfter, logger))

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// handleGetReport returns a handler for GET /report/latest?site=<name>.
func handleGetReport(store storage.Store, staleAfter time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		site := r.URL.Query().Get("site")
		if site == "" {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "site parameter required")
			return
		}

		if !siteNameRegex.MatchString(site) {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid site name format")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		report, found, err := store.GetLatest(ctx, site)
		if err != nil {
			logger.Error("failed to get report", "site", site, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !found {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("report not found for site %q", site))
			return
		}

		if staleAfter > 0 && time.Since(report.GeneratedAt) > staleAfter {
			w.Header().Set("X-Hydronic-Stale", "true")
		}

		resp := map[string]any{
			"site":                report.Site,
			"generatedAt":         report.GeneratedAt.Format(time.RFC3339),
			"burnerPowerKW":       report.BurnerPowerKW,
			"calibrationStrategy": report.CalibrationStrategy,
			"samples":             report.Samples,
			"rangeFrom":           report.RangeFrom.Format(time.RFC3339),
			"rangeTo":             report.RangeTo.Format(time.RFC3339),
			"energyDHWKWh":        report.EnergyDHWKWh,
			"energyRadiatorKWh":   report.EnergyRadiatorKWh,
			"energyUnderfloorKWh": report.EnergyUnderfloorKWh,
			"energyGeneratedKWh":  report.EnergyGeneratedKWh,
			"steadyFraction":      report.SteadyFraction,
		}

		if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}
