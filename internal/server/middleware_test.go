package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ayusman/formcheck/internal/metrics"
)

type panicRecTestHandler struct {
	panic  bool
	called bool
}

func (p *panicRecTestHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	p.called = true
	if p.panic {
		panic("YOLO")
	}
	w.WriteHeader(http.StatusTeapot)
}

func Test_panicRecoveryMiddleware_nonPanic(t *testing.T) {
	m := metrics.NewTestManager()
	next := &panicRecTestHandler{}

	rr := httptest.NewRecorder()
	PanicRecovery(m)(next).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	assert.True(t, next.called)
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.CounterHandleRequestPanic))
}

func Test_panicRecoveryMiddleware_panic(t *testing.T) {
	m := metrics.NewTestManager()
	next := &panicRecTestHandler{panic: true}

	rr := httptest.NewRecorder()
	PanicRecovery(m)(next).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	assert.True(t, next.called)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterHandleRequestPanic))
}

func TestRequestMetrics(t *testing.T) {
	m := metrics.NewTestManager()
	h := chain(&panicRecTestHandler{}, RequestMetrics(m), DrainAndCloseRequest())

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/", nil))
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(m.CounterRequests.WithLabelValues("POST", "418")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HistRequestDuration))
}

func TestResponseWriter_HijackUnsupported(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	_, _, err := rw.Hijack()
	assert.Error(t, err)
}
