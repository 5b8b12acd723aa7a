package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersByLabel(t *testing.T) {
	m := New()
	m.Evaluation("re-negotiate")
	m.Evaluation("re-negotiate")
	m.Annotation(true)
	m.Annotation(false)
	m.Email(true)
	m.TurnError("analysis")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.evaluations.WithLabelValues("re-negotiate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.annotations.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emails.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turnErrors.WithLabelValues("analysis")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Evaluation("cautious-approach")
	m.Annotation(true)
	m.Email(false)
	m.TurnError("fetch")
	m.ObserveAnalysis(time.Second)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveAnalysis(1500 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "contract_analysis_duration_seconds_count 1"))
	assert.Contains(t, body, "go_goroutines")
}
