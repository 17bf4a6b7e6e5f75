package metricsvc

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morris0411/ManavisGradesApp/core"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, OutcomeRejected, Outcome(core.NewRejectionError("twice")))
	assert.Equal(t, OutcomeRejected, Outcome(errors.Wrap(core.NewValidationError(errors.New("cols")), "reading")))
	assert.Equal(t, OutcomeError, Outcome(errors.New("db down")))
}

func TestMetrics(t *testing.T) {
	m := New("test")
	m.ObserveRun(KindExams, time.Now(), nil)
	m.ObserveRun(KindExams, time.Now(), core.NewRejectionError("duplicate"))
	m.AddRows(KindExams, "inserted", 3)
	m.AddRows(KindExams, "skipped", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(KindExams, OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(KindExams, OutcomeRejected)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rows.WithLabelValues(KindExams, "inserted")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_runs_total{kind="exams",outcome="ok"} 1`)
}
