package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AuthEvent("login", "success")
		m.MailSent("welcome", errors.New("down"))
	})
}

func TestCounters(t *testing.T) {
	m := New()
	m.AuthEvent("login", "success")
	m.AuthEvent("login", "success")
	m.MailSent("welcome", nil)
	m.MailSent("welcome", errors.New("down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MailSentTotal.WithLabelValues("welcome", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MailSentTotal.WithLabelValues("welcome", "failure")))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	m := New()
	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/api/auth/resetpassword/{resettoken}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}).Methods(http.MethodPut)

	req := httptest.NewRequest(http.MethodPut, "/api/auth/resetpassword/deadbeef", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodPut, "/api/auth/resetpassword/{resettoken}", "400")))
}
