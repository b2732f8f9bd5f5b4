package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// TestSetupOpsRouter_ServesMetrics は/metricsパスでメトリクスが返ることを検証する。
func TestSetupOpsRouter_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRecordsSelected(2)

	var buf bytes.Buffer
	handler := SetupOpsRouter(reg, nil, newTestLogger(&buf))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "newcomers_records_selected_total 2") {
		t.Error("response should contain newcomers_records_selected_total")
	}
}

// TestSetupOpsRouter_Health はヘルスチェックの結果がステータスに反映されることを検証する。
func TestSetupOpsRouter_Health(t *testing.T) {
	tests := []struct {
		name       string
		health     HealthFunc
		wantStatus int
		wantBody   string
	}{
		{"未設定", nil, http.StatusOK, "ok"},
		{"正常", func() error { return nil }, http.StatusOK, "ok"},
		{"異常", func() error { return errors.New("last cycle failed") }, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := SetupOpsRouter(prometheus.NewRegistry(), tt.health, newTestLogger(&buf))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to parse body: %v", err)
			}
			if body["status"] != tt.wantBody {
				t.Errorf("status field = %q, want %q", body["status"], tt.wantBody)
			}
		})
	}
}

// TestSetupOpsRouter_UnknownPath は未定義のパスに404を返すことを検証する。
func TestSetupOpsRouter_UnknownPath(t *testing.T) {
	var buf bytes.Buffer
	handler := SetupOpsRouter(prometheus.NewRegistry(), nil, newTestLogger(&buf))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feeds", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
