package metrics

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/newcomers/internal/middleware"
)

// HealthFunc はワーカーの状態を返す。nil 以外のエラーは503として返す。
type HealthFunc func() error

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupOpsRouter は/metricsと/healthを提供する運用向けのルーターを返す。
func SetupOpsRouter(gatherer prometheus.Gatherer, health HealthFunc, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))

	r.Method(http.MethodGet, "/metrics", Handler(gatherer))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, map[string]string{"status": "ok"}
		if health != nil {
			if err := health(); err != nil {
				status, body = http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	})

	return r
}
