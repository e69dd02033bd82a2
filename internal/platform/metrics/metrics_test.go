package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRecordActionResult(t *testing.T) {
	c := ActionResultsTotal.WithLabelValues("handle_patient_action", "create_patient", "success")
	before := counterValue(t, c)
	RecordActionResult("handle_patient_action", "create_patient", "success")
	if got := counterValue(t, c) - before; got != 1 {
		t.Errorf("expected counter to increase by 1, got %v", got)
	}
}

func TestRecordLLMCall(t *testing.T) {
	c := LLMCallsTotal.WithLabelValues("m", "error")
	before := counterValue(t, c)
	RecordLLMCall("m", errors.New("boom"))
	if got := counterValue(t, c) - before; got != 1 {
		t.Errorf("expected 1 error call, got %v", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	c := HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")
	before := counterValue(t, c)
	RecordHTTPRequest("GET", "/health", 200, 5*time.Millisecond)
	if got := counterValue(t, c) - before; got != 1 {
		t.Errorf("expected 1 request, got %v", got)
	}
}
