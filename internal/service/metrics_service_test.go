package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gin-admin-kit/internal/admin"
	"github.com/noah-isme/gin-admin-kit/internal/bus"
)

func TestMetricsServiceCounts(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, 10*time.Millisecond)
	m.ObserveAdmin(context.Background(), admin.Event{Action: admin.ActionCreate, Resource: "users"})
	m.ObserveAdmin(context.Background(), admin.Event{Action: admin.ActionCreate, Resource: "users", Err: errors.New("x")})
	m.ObserveDispatch(bus.KindCommand, "service.LoginUser", time.Millisecond, nil)
	m.ObserveDispatch(bus.KindCommand, "service.LoginUser", time.Millisecond, errors.New("bad"))
	m.ObserveSession("load", time.Millisecond, nil)
	m.ObserveTransaction(time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.adminActions.WithLabelValues("create", "users", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.adminActions.WithLabelValues("create", "users", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("GET", "/health", "200")))

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.Equal(t, uint64(2), snap.DispatchTotal)
	assert.Equal(t, uint64(1), snap.DispatchErrors)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bus_dispatch_duration_seconds")
	assert.Contains(t, rec.Body.String(), "admin_session_store_duration_seconds")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", 200, time.Millisecond)
	m.ObserveDispatch(bus.KindQuery, "x", 0, nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
