// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordDoseRecorded(skipped bool)
	RecordDoseDeleted()
	RecordReminderSent(kind string)
	RecordHTTPStatus(statusCode int)
	RecordProjectionLatency(operation string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	dosesRecorded     prometheus.Counter
	dosesSkipped      prometheus.Counter
	dosesDeleted      prometheus.Counter
	remindersSent     *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
	projectionLatency *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		dosesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eyedropit_doses_recorded_total",
			Help: "作成された点眼記録の合計数（スキップを含む）",
		}),
		dosesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eyedropit_doses_skipped_total",
			Help: "スキップとして記録された点眼の合計数",
		}),
		dosesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eyedropit_doses_deleted_total",
			Help: "削除された点眼記録の合計数",
		}),
		remindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eyedropit_reminders_sent_total",
			Help: "種別ごとの送信済みリマインダーの合計数",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eyedropit_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		projectionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eyedropit_projection_latency_seconds",
			Help:    "射影計算（次回予定・遵守統計）のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(
		c.dosesRecorded,
		c.dosesSkipped,
		c.dosesDeleted,
		c.remindersSent,
		c.httpStatus,
		c.projectionLatency,
	)

	return c
}

// RecordDoseRecorded は点眼記録の作成を記録する。
func (c *Collector) RecordDoseRecorded(skipped bool) {
	c.dosesRecorded.Inc()
	if skipped {
		c.dosesSkipped.Inc()
	}
}

// RecordDoseDeleted は点眼記録の削除を記録する。
func (c *Collector) RecordDoseDeleted() {
	c.dosesDeleted.Inc()
}

// RecordReminderSent はリマインダー送信を記録する。
// kindは"dose"または"appointment"。
func (c *Collector) RecordReminderSent(kind string) {
	c.remindersSent.WithLabelValues(kind).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordProjectionLatency は射影計算のレイテンシを記録する。
// operationは"next_doses"または"adherence_stats"。
func (c *Collector) RecordProjectionLatency(operation string, duration time.Duration) {
	c.projectionLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
