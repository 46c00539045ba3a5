package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名のメトリクスからラベルが一致するものを探す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != want {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func TestRecordAuth_CountsByActionAndResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuth("signin", ResultSuccess)
	c.RecordAuth("signin", ResultSuccess)
	c.RecordAuth("signin", "INVALID_CREDENTIALS")

	m := findMetric(t, reg, "employeeinfo_auth_total", map[string]string{"action": "signin", "result": ResultSuccess})
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("auth_total{signin,success} = %v, want 2", got)
	}
	m = findMetric(t, reg, "employeeinfo_auth_total", map[string]string{"action": "signin", "result": "INVALID_CREDENTIALS"})
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("auth_total{signin,INVALID_CREDENTIALS} = %v, want 1", got)
	}
}

func TestRecordValidationFailure_LabelsField(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordValidationFailure("profile", "birthDate")

	m := findMetric(t, reg, "employeeinfo_validation_failures_total", map[string]string{"form": "profile", "field": "birthDate"})
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("validation_failures_total = %v, want 1", got)
	}
}

// TestRecordStoreOperation_CountsAndObservesLatency は件数とヒストグラムの両方が記録されることを検証する。
func TestRecordStoreOperation_CountsAndObservesLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordStoreOperation("fetch", ResultSuccess, 100*time.Millisecond)
	c.RecordStoreOperation("fetch", ResultTimeout, 2*time.Second)

	m := findMetric(t, reg, "employeeinfo_store_operations_total", map[string]string{"op": "fetch", "result": ResultTimeout})
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("store_operations_total{fetch,timeout} = %v, want 1", got)
	}

	h := findMetric(t, reg, "employeeinfo_store_latency_seconds", map[string]string{"op": "fetch"}).GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
	}
	// 合計は0.1 + 2.0 = 2.1秒
	if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
		t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
	}
}

func TestRecordTransition(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTransition("empty_form", "summary")

	m := findMetric(t, reg, "employeeinfo_controller_transitions_total", map[string]string{"from": "empty_form", "to": "summary"})
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("transitions_total = %v, want 1", got)
	}
}

func TestSetActiveControllers(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetActiveControllers(3)
	c.SetActiveControllers(1)

	m := findMetric(t, reg, "employeeinfo_active_controllers", nil)
	if got := m.GetGauge().GetValue(); got != 1 {
		t.Errorf("active_controllers = %v, want 1", got)
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	if got := findMetric(t, reg, "employeeinfo_http_status_total", map[string]string{"status_code": "200"}).GetCounter().GetValue(); got != 2 {
		t.Errorf("http_status_total{200} = %v, want 2", got)
	}
	if got := findMetric(t, reg, "employeeinfo_http_status_total", map[string]string{"status_code": "404"}).GetCounter().GetValue(); got != 1 {
		t.Errorf("http_status_total{404} = %v, want 1", got)
	}
}

// TestNewCollector_DuplicateRegistrationPanics は同一レジストリへの二重登録がpanicすることを検証する。
func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	_ = NewCollector(reg)
}
