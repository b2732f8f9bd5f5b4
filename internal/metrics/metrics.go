// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// 結果ラベルの値。
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"

	TrackingCreated  = "created"
	TrackingConflict = "conflict"
	TrackingFailed   = "failed"
	TrackingDeferred = "deferred"

	KindWelcome = "welcome"
	KindReport  = "report"
)

// MetricsCollector はメトリクス収集のインターフェース。
// オンボーディングワーカーから利用する。
type MetricsCollector interface {
	RecordRowsDropped(reason string, count int)
	RecordRecordsSelected(count int)
	RecordDateParseFailures(count int)
	RecordResolution(outcome string)
	RecordUncredentialed(count int)
	RecordTracking(outcome string)
	RecordNotification(kind, result string)
	RecordAddressValidation(result string)
	RecordCycle(result string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	rowsDropped        *prometheus.CounterVec
	recordsSelected    prometheus.Counter
	dateParseFailures  prometheus.Counter
	resolutions        *prometheus.CounterVec
	uncredentialed     prometheus.Counter
	tracking           *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	addressValidations *prometheus.CounterVec
	cycles             *prometheus.CounterVec
	cycleDuration      prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newcomers_rows_dropped_total",
			Help: "正規化で除外された行の合計数（理由別）",
		}, []string{"reason"}),
		recordsSelected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newcomers_records_selected_total",
			Help: "開始日ウィンドウ内として選択されたレコードの合計数",
		}),
		dateParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newcomers_date_parse_failures_total",
			Help: "開始日を解析できずに読み飛ばしたレコードの合計数",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newcomers_identity_resolutions_total",
			Help: "本人確認の結果別の件数",
		}, []string{"outcome"}),
		uncredentialed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newcomers_uncredentialed_total",
			Help: "資格情報リストに存在せずフォールバックリンクを割り当てた従業員の合計数",
		}),
		tracking: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newcomers_tracked_items_total",
			Help: "追跡アイテム作成の結果別の件数",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newcomers_notifications_total",
			Help: "送信したメールの種類・結果別の件数",
		}, []string{"kind", "result"}),
		addressValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newcomers_address_validations_total",
			Help: "住所検証の結果別の件数",
		}, []string{"result"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newcomers_cycles_total",
			Help: "シートごとの処理サイクルの結果別の件数",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newcomers_cycle_duration_seconds",
			Help:    "シートごとの処理サイクルの所要時間（秒）",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),
	}

	reg.MustRegister(
		c.rowsDropped,
		c.recordsSelected,
		c.dateParseFailures,
		c.resolutions,
		c.uncredentialed,
		c.tracking,
		c.notifications,
		c.addressValidations,
		c.cycles,
		c.cycleDuration,
	)

	return c
}

// RecordRowsDropped は除外された行数を記録する。
func (c *Collector) RecordRowsDropped(reason string, count int) {
	c.rowsDropped.WithLabelValues(reason).Add(float64(count))
}

// RecordRecordsSelected は選択されたレコード数を記録する。
func (c *Collector) RecordRecordsSelected(count int) {
	c.recordsSelected.Add(float64(count))
}

// RecordDateParseFailures は開始日の解析に失敗したレコード数を記録する。
func (c *Collector) RecordDateParseFailures(count int) {
	c.dateParseFailures.Add(float64(count))
}

// RecordResolution は本人確認の結果を記録する。
func (c *Collector) RecordResolution(outcome string) {
	c.resolutions.WithLabelValues(outcome).Inc()
}

// RecordUncredentialed はフォールバックリンクを割り当てた人数を記録する。
func (c *Collector) RecordUncredentialed(count int) {
	c.uncredentialed.Add(float64(count))
}

// RecordTracking は追跡アイテム作成の結果を記録する。
func (c *Collector) RecordTracking(outcome string) {
	c.tracking.WithLabelValues(outcome).Inc()
}

// RecordNotification はメール送信の結果を記録する。
func (c *Collector) RecordNotification(kind, result string) {
	c.notifications.WithLabelValues(kind, result).Inc()
}

// RecordAddressValidation は住所検証の結果を記録する。
func (c *Collector) RecordAddressValidation(result string) {
	c.addressValidations.WithLabelValues(result).Inc()
}

// RecordCycle はサイクルの結果と所要時間を記録する。
func (c *Collector) RecordCycle(result string, duration time.Duration) {
	c.cycles.WithLabelValues(result).Inc()
	c.cycleDuration.Observe(duration.Seconds())
}

// Push は収集済みのメトリクスをPushgatewayに送る。
// 1回で終了する run モードではスクレイプされないため、終了前に呼び出す。
func Push(ctx context.Context, url, job string, gatherer prometheus.Gatherer) error {
	return push.New(url, job).Gatherer(gatherer).PushContext(ctx)
}
