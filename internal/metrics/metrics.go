// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 記録結果のラベル値
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultTimeout = "timeout"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証サービス、従業員情報コントローラー、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	// RecordAuth は認証操作（signup, signin, signout）の結果を記録する。
	// resultは成功時ResultSuccess、失敗時はエラーコード。
	RecordAuth(action, result string)
	// RecordValidationFailure はフォーム検証で不合格になったフィールドを記録する。
	RecordValidationFailure(form, field string)
	// RecordStoreOperation はレコードストア操作（fetch, create, replace）の結果と所要時間を記録する。
	RecordStoreOperation(op, result string, duration time.Duration)
	// RecordTransition はコントローラーの状態遷移を記録する。
	RecordTransition(from, to string)
	// SetActiveControllers は保持中のコントローラー数を記録する。
	SetActiveControllers(n int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authTotal         *prometheus.CounterVec
	validationFail    *prometheus.CounterVec
	storeOps          *prometheus.CounterVec
	storeLatency      *prometheus.HistogramVec
	transitions       *prometheus.CounterVec
	activeControllers prometheus.Gauge
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "employeeinfo_auth_total",
			Help: "認証操作の結果別の合計数",
		}, []string{"action", "result"}),
		validationFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "employeeinfo_validation_failures_total",
			Help: "フォーム検証で不合格になったフィールドの合計数",
		}, []string{"form", "field"}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "employeeinfo_store_operations_total",
			Help: "レコードストア操作の結果別の合計数",
		}, []string{"op", "result"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "employeeinfo_store_latency_seconds",
			Help:    "レコードストア操作のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "employeeinfo_controller_transitions_total",
			Help: "従業員情報コントローラーの状態遷移数",
		}, []string{"from", "to"}),
		activeControllers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "employeeinfo_active_controllers",
			Help: "保持中の従業員情報コントローラー数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "employeeinfo_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.authTotal,
		c.validationFail,
		c.storeOps,
		c.storeLatency,
		c.transitions,
		c.activeControllers,
		c.httpStatus,
	)

	return c
}

// RecordAuth は認証操作の結果を記録する。
func (c *Collector) RecordAuth(action, result string) {
	c.authTotal.WithLabelValues(action, result).Inc()
}

// RecordValidationFailure は不合格フィールドを記録する。
func (c *Collector) RecordValidationFailure(form, field string) {
	c.validationFail.WithLabelValues(form, field).Inc()
}

// RecordStoreOperation はストア操作の結果とレイテンシを記録する。
func (c *Collector) RecordStoreOperation(op, result string, duration time.Duration) {
	c.storeOps.WithLabelValues(op, result).Inc()
	c.storeLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordTransition は状態遷移を記録する。
func (c *Collector) RecordTransition(from, to string) {
	c.transitions.WithLabelValues(from, to).Inc()
}

// SetActiveControllers は保持中のコントローラー数を設定する。
func (c *Collector) SetActiveControllers(n int) {
	c.activeControllers.Set(float64(n))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop は何も記録しないMetricsCollector。メトリクスを使わないテストや構成で使う。
type Noop struct{}

func (Noop) RecordAuth(string, string)                           {}
func (Noop) RecordValidationFailure(string, string)              {}
func (Noop) RecordStoreOperation(string, string, time.Duration) {}
func (Noop) RecordTransition(string, string)                     {}
func (Noop) SetActiveControllers(int)                            {}
func (Noop) RecordHTTPStatus(int)                                {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Noop{}
)
