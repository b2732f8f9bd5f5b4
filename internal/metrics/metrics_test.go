package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// find は名前とラベルが一致するメトリクスを返す。
func find(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			return m
		}
	}
	t.Fatalf("%s %v metric not found", name, labels)
	return nil
}

// TestRecordRowsDropped_IncrementsByReason は理由別に除外行数が記録されることを検証する。
func TestRecordRowsDropped_IncrementsByReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRowsDropped("missing_required", 2)
	c.RecordRowsDropped("missing_required", 1)
	c.RecordRowsDropped("unsigned_contract", 4)

	if v := find(t, reg, "newcomers_rows_dropped_total", map[string]string{"reason": "missing_required"}).GetCounter().GetValue(); v != 3 {
		t.Errorf("missing_required = %v, want 3", v)
	}
	if v := find(t, reg, "newcomers_rows_dropped_total", map[string]string{"reason": "unsigned_contract"}).GetCounter().GetValue(); v != 4 {
		t.Errorf("unsigned_contract = %v, want 4", v)
	}
}

// TestRecordTrackingAndNotification はラベル付きカウンタが記録されることを検証する。
func TestRecordTrackingAndNotification(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTracking(TrackingCreated)
	c.RecordTracking(TrackingCreated)
	c.RecordTracking(TrackingConflict)
	c.RecordNotification(KindWelcome, ResultSuccess)
	c.RecordNotification(KindReport, ResultFailed)

	if v := find(t, reg, "newcomers_tracked_items_total", map[string]string{"outcome": "created"}).GetCounter().GetValue(); v != 2 {
		t.Errorf("created = %v, want 2", v)
	}
	if v := find(t, reg, "newcomers_notifications_total", map[string]string{"kind": "report", "result": "failed"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("report failed = %v, want 1", v)
	}
}

// TestRecordCycle_ObservesHistogram はサイクルの所要時間がヒストグラムに記録されることを検証する。
func TestRecordCycle_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCycle(ResultSuccess, 2*time.Second)
	c.RecordCycle(ResultFailed, 500*time.Millisecond)

	h := find(t, reg, "newcomers_cycle_duration_seconds", nil).GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
	}
	if h.GetSampleSum() < 2.4 || h.GetSampleSum() > 2.6 {
		t.Errorf("sample_sum = %v, want ~2.5", h.GetSampleSum())
	}
	if v := find(t, reg, "newcomers_cycles_total", map[string]string{"result": "failed"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("failed cycles = %v, want 1", v)
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	var _ MetricsCollector = NewCollector(prometheus.NewRegistry())
}

// TestPush_SendsToPushgateway はPushgatewayにジョブ名付きで送信されることを検証する。
func TestPush_SendsToPushgateway(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRecordsSelected(3)

	if err := Push(context.Background(), server.URL, "newcomers", reg); err != nil {
		t.Fatalf("Push がエラーを返した: %v", err)
	}
	if gotPath != "/metrics/job/newcomers" {
		t.Errorf("path = %q, want /metrics/job/newcomers", gotPath)
	}
	if gotBody == "" {
		t.Error("body should not be empty")
	}
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordUncredentialed(1)
	c2.RecordUncredentialed(2)

	if v := find(t, reg1, "newcomers_uncredentialed_total", nil).GetCounter().GetValue(); v != 1 {
		t.Errorf("reg1 = %v, want 1", v)
	}
	if v := find(t, reg2, "newcomers_uncredentialed_total", nil).GetCounter().GetValue(); v != 2 {
		t.Errorf("reg2 = %v, want 2", v)
	}
}

func TestHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordResolution("resolved")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(w.Body.String(), `newcomers_identity_resolutions_total{outcome="resolved"} 1`) {
		t.Errorf("body = %s", w.Body.String())
	}
}
