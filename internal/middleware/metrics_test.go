package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordedStatuses struct {
	codes []int
}

func (r *recordedStatuses) RecordHTTPStatus(statusCode int) {
	r.codes = append(r.codes, statusCode)
}

func TestMetricsMiddleware_RecordsStatusCode(t *testing.T) {
	rec := &recordedStatuses{}
	mw := NewMetricsMiddleware(rec)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(rec.codes) != 1 || rec.codes[0] != http.StatusNotFound {
		t.Errorf("codes = %v, want [404]", rec.codes)
	}
}

func TestMetricsMiddleware_DefaultsTo200(t *testing.T) {
	rec := &recordedStatuses{}
	mw := NewMetricsMiddleware(rec)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(rec.codes) != 1 || rec.codes[0] != http.StatusOK {
		t.Errorf("codes = %v, want [200]", rec.codes)
	}
}

func TestMetricsMiddleware_NilRecorderPassesThrough(t *testing.T) {
	mw := NewMetricsMiddleware(nil)

	called := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("next handler was not called")
	}
}
