package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/watchdesk/internal/testutil"
	"github.com/HerbHall/watchdesk/pkg/models"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()
	m := New()
	m.logger = testutil.Logger()
	st := testutil.NewStore(t)
	require.NoError(t, st.Migrate(context.Background(), "inventory", migrations()))
	m.repo = NewSQLiteDeviceRepository(st.DB())
	return m
}

func serveRoute(m *Module, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	for _, route := range m.Routes() {
		mux.HandleFunc(route.Method+" "+route.Path, route.Handler)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateDevice(t *testing.T) {
	m := newTestModule(t)

	body := `{"name":"core-sw","ip_address":"10.1.1.1","device_type":"switch"}`
	req := httptest.NewRequest("POST", "/devices", strings.NewReader(body))
	rec := serveRoute(m, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got models.Device
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "core-sw", got.Name)
	assert.Equal(t, models.DeviceTypeSwitch, got.DeviceType)
	assert.Equal(t, models.DefaultThresholds(), got.Thresholds)
	assert.True(t, got.Monitored)
}

func TestHandleCreateDeviceValidation(t *testing.T) {
	m := newTestModule(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing name", `{"ip_address":"10.1.1.1"}`},
		{"bad ip", `{"name":"x","ip_address":"not-an-ip"}`},
		{"bad version", `{"name":"x","ip_address":"10.1.1.1","snmp_version":"3"}`},
		{"bad type", `{"name":"x","ip_address":"10.1.1.1","device_type":"toaster"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/devices", strings.NewReader(tt.body))
			rec := serveRoute(m, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestHandleCreateDeviceConflict(t *testing.T) {
	m := newTestModule(t)

	body := `{"name":"dup","ip_address":"10.1.1.1"}`
	rec := serveRoute(m, httptest.NewRequest("POST", "/devices", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serveRoute(m, httptest.NewRequest("POST", "/devices", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleGetDevice(t *testing.T) {
	m := newTestModule(t)
	d := testutil.NewDevice()
	require.NoError(t, m.repo.Create(context.Background(), &d))

	rec := serveRoute(m, httptest.NewRequest("GET", "/devices/"+d.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Device
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, d.ID, got.ID)
}

func TestHandleGetDeviceNotFound(t *testing.T) {
	m := newTestModule(t)
	rec := serveRoute(m, httptest.NewRequest("GET", "/devices/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListDevices(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()
	a := testutil.NewDevice(testutil.WithName("alpha"), testutil.WithIP("10.0.0.1"))
	b := testutil.NewDevice(testutil.WithName("beta"), testutil.WithIP("10.0.0.2"))
	require.NoError(t, m.repo.Create(ctx, &a))
	require.NoError(t, m.repo.Create(ctx, &b))

	rec := serveRoute(m, httptest.NewRequest("GET", "/devices?search=alp", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var result ListResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Items, 1)
	assert.Equal(t, "alpha", result.Items[0].Name)
	assert.Equal(t, 1, result.Total)
}

func TestHandleUpdateDevice(t *testing.T) {
	m := newTestModule(t)
	d := testutil.NewDevice()
	require.NoError(t, m.repo.Create(context.Background(), &d))

	body, _ := json.Marshal(map[string]any{
		"name":       "renamed",
		"thresholds": models.Thresholds{CPU: models.ThresholdPair{Warning: 50, Critical: 75}},
	})
	req := httptest.NewRequest("PUT", "/devices/"+d.ID, bytes.NewReader(body))
	rec := serveRoute(m, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := m.repo.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, 50.0, got.Thresholds.CPU.Warning)
}

func TestHandleUpdateDeviceNotFound(t *testing.T) {
	m := newTestModule(t)
	req := httptest.NewRequest("PUT", "/devices/missing", strings.NewReader(`{"name":"x"}`))
	rec := serveRoute(m, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDeleteDevice(t *testing.T) {
	m := newTestModule(t)
	d := testutil.NewDevice()
	require.NoError(t, m.repo.Create(context.Background(), &d))

	rec := serveRoute(m, httptest.NewRequest("DELETE", "/devices/"+d.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serveRoute(m, httptest.NewRequest("DELETE", "/devices/"+d.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleToggleMonitoring(t *testing.T) {
	m := newTestModule(t)
	d := testutil.NewDevice(testutil.WithMonitored(true))
	require.NoError(t, m.repo.Create(context.Background(), &d))

	rec := serveRoute(m, httptest.NewRequest("PATCH", "/devices/"+d.ID+"/monitoring", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := m.repo.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.False(t, got.Monitored)
}
