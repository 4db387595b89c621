package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"tlsync/internal/models"
	"tlsync/internal/structures"
	"tlsync/internal/testutil"
	"tlsync/internal/trakt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	json "github.com/goccy/go-json"
)

// --- local mocks (scoped to controller tests) ---

type mockAuthFlow struct {
	startResult *trakt.DeviceCode
	startErr    error
	completeErr error
	completed   []*trakt.DeviceCode
}

func (m *mockAuthFlow) Start(_ context.Context) (*trakt.DeviceCode, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	return m.startResult, nil
}

func (m *mockAuthFlow) Complete(_ context.Context, dc *trakt.DeviceCode) error {
	m.completed = append(m.completed, dc)
	return m.completeErr
}

type mockSourceChecker struct {
	pingErr error
	pings   int
}

func (m *mockSourceChecker) Ping(_ context.Context) error {
	m.pings++
	return m.pingErr
}

// --- helpers ---

func controllerConfig() *structures.Config {
	return &structures.Config{
		Trakt: structures.TraktConfig{AuthTimeout: time.Minute},
	}
}

type controllerFixture struct {
	ctrl    *ApiController
	engine  *testutil.MockEngine
	exports *testutil.MockExports
	auth    *mockAuthFlow
	source  *mockSourceChecker
	cache   *testutil.MockCache
	metrics *testutil.MockMetrics
}

func newTestController() *controllerFixture {
	f := &controllerFixture{
		engine:  &testutil.MockEngine{},
		exports: &testutil.MockExports{},
		auth:    &mockAuthFlow{},
		source:  &mockSourceChecker{},
		cache:   testutil.NewMockCache(),
		metrics: &testutil.MockMetrics{},
	}
	f.ctrl = NewApiController(&testutil.MockLogger{}, f.engine, f.exports, f.auth, f.source, f.cache, f.metrics, controllerConfig())
	return f
}

// --- TriggerSync tests ---

func TestTriggerSync_EmptyBodyIsIncremental(t *testing.T) {
	f := newTestController()
	f.engine.RunFn = func(ctx context.Context, mode models.SyncMode) (*models.SyncSummary, error) {
		return &models.SyncSummary{Count: 3, Scope: mode}, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	w := httptest.NewRecorder()
	f.ctrl.TriggerSync(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.engine.RunCalls, 1)
	assert.Equal(t, models.ModeIncremental, f.engine.RunCalls[0])

	var summary models.SyncSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.Count)
}

func TestTriggerSync_FullFlag(t *testing.T) {
	f := newTestController()

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`{"full":true}`))
	w := httptest.NewRecorder()
	f.ctrl.TriggerSync(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.engine.RunCalls, 1)
	assert.Equal(t, models.ModeFull, f.engine.RunCalls[0])
}

func TestTriggerSync_MalformedBody(t *testing.T) {
	f := newTestController()

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	f.ctrl.TriggerSync(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.engine.RunCalls)
}

func TestTriggerSync_AlreadyRunningConflict(t *testing.T) {
	f := newTestController()
	f.engine.RunFn = func(ctx context.Context, mode models.SyncMode) (*models.SyncSummary, error) {
		return nil, models.ErrSyncAlreadyRunning
	}

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	w := httptest.NewRecorder()
	f.ctrl.TriggerSync(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTriggerSync_ErrorTaxonomyStatuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{models.ErrUnauthenticated, http.StatusUnauthorized},
		{models.ErrAuthRefreshFailed, http.StatusUnauthorized},
		{models.ErrSourceUnavailable, http.StatusServiceUnavailable},
		{models.ErrExportWriteFailed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		f := newTestController()
		f.engine.RunFn = func(ctx context.Context, mode models.SyncMode) (*models.SyncSummary, error) {
			return nil, tc.err
		}

		req := httptest.NewRequest(http.MethodPost, "/sync", nil)
		w := httptest.NewRecorder()
		f.ctrl.TriggerSync(w, req)

		assert.Equal(t, tc.want, w.Code, "error %v", tc.err)
	}
}

func TestTriggerSync_InvalidatesCaches(t *testing.T) {
	f := newTestController()
	f.cache.Set("status", []byte("stale"))
	f.cache.Set("exports", []byte("stale"))

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	w := httptest.NewRecorder()
	f.ctrl.TriggerSync(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	_, ok := f.cache.Get("status")
	assert.False(t, ok)
	_, ok = f.cache.Get("exports")
	assert.False(t, ok)
}

// --- Status tests ---

func TestStatus_ReturnsEngineState(t *testing.T) {
	f := newTestController()
	f.engine.StatusValue = models.EngineStatus{
		Running:   true,
		Watermark: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	f.ctrl.Status(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var status models.EngineStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Running)
}

func TestStatus_ServedFromCache(t *testing.T) {
	f := newTestController()
	f.cache.Set("status", []byte(`{"running":false,"cached":true}`))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	f.ctrl.Status(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cached":true`)
}

func TestStatus_CacheMissThenHitMovesCounters(t *testing.T) {
	f := newTestController()

	w := httptest.NewRecorder()
	f.ctrl.Status(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.metrics.CacheMisses)
	assert.Equal(t, 0, f.metrics.CacheHits)

	w2 := httptest.NewRecorder()
	f.ctrl.Status(w2, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, 1, f.metrics.CacheMisses)
	assert.Equal(t, 1, f.metrics.CacheHits)
}

// --- Exports tests ---

func TestListExports_ReturnsFiles(t *testing.T) {
	f := newTestController()
	f.exports.Exports = []models.ExportInfo{
		{Name: "letterboxd_import_20240601_120000.csv", Size: 128},
	}

	req := httptest.NewRequest(http.MethodGet, "/exports", nil)
	w := httptest.NewRecorder()
	f.ctrl.ListExports(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var exports []models.ExportInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exports))
	require.Len(t, exports, 1)
	assert.Equal(t, "letterboxd_import_20240601_120000.csv", exports[0].Name)
}

func TestListExports_EmptyIsArrayNotNull(t *testing.T) {
	f := newTestController()

	req := httptest.NewRequest(http.MethodGet, "/exports", nil)
	w := httptest.NewRecorder()
	f.ctrl.ListExports(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestDownloadExport_ServesFile(t *testing.T) {
	dir := t.TempDir()
	name := "letterboxd_import_20240601_120000.csv"
	content := "Title,Year\nArrival,2016\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))

	f := newTestController()
	f.exports.ResolveFn = func(n string) (string, error) {
		return filepath.Join(dir, n), nil
	}

	req := httptest.NewRequest(http.MethodGet, "/export?file="+name, nil)
	w := httptest.NewRecorder()
	f.ctrl.DownloadExport(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), name)
}

func TestDownloadExport_UnknownFile(t *testing.T) {
	f := newTestController()
	f.exports.ResolveFn = func(n string) (string, error) {
		return "", os.ErrNotExist
	}

	req := httptest.NewRequest(http.MethodGet, "/export?file=../secret", nil)
	w := httptest.NewRecorder()
	f.ctrl.DownloadExport(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Source check tests ---

func TestCheckSource_OK(t *testing.T) {
	f := newTestController()

	req := httptest.NewRequest(http.MethodGet, "/source/check", nil)
	w := httptest.NewRecorder()
	f.ctrl.CheckSource(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"ok"`)
	assert.Equal(t, 1, f.source.pings)
}

func TestCheckSource_Unauthenticated(t *testing.T) {
	f := newTestController()
	f.source.pingErr = models.ErrUnauthenticated

	req := httptest.NewRequest(http.MethodGet, "/source/check", nil)
	w := httptest.NewRecorder()
	f.ctrl.CheckSource(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckSource_SourceDown(t *testing.T) {
	f := newTestController()
	f.source.pingErr = models.ErrSourceUnavailable

	req := httptest.NewRequest(http.MethodGet, "/source/check", nil)
	w := httptest.NewRecorder()
	f.ctrl.CheckSource(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// --- Auth tests ---

func TestStartAuth_ReturnsUserCode(t *testing.T) {
	f := newTestController()
	f.auth.startResult = &trakt.DeviceCode{
		UserCode:        "ABCD1234",
		VerificationURL: "https://trakt.tv/activate",
		ExpiresIn:       600,
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/start", nil)
	w := httptest.NewRecorder()
	f.ctrl.StartAuth(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ABCD1234", resp["user_code"])
	assert.Equal(t, "https://trakt.tv/activate", resp["verification_url"])
}

func TestStartAuth_SourceDown(t *testing.T) {
	f := newTestController()
	f.auth.startErr = models.ErrSourceUnavailable

	req := httptest.NewRequest(http.MethodPost, "/auth/start", nil)
	w := httptest.NewRecorder()
	f.ctrl.StartAuth(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCompleteAuth_WithoutStart(t *testing.T) {
	f := newTestController()

	req := httptest.NewRequest(http.MethodPost, "/auth/complete", nil)
	w := httptest.NewRecorder()
	f.ctrl.CompleteAuth(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompleteAuth_HappyPath(t *testing.T) {
	f := newTestController()
	f.auth.startResult = &trakt.DeviceCode{UserCode: "ABCD1234", ExpiresIn: 600}

	start := httptest.NewRequest(http.MethodPost, "/auth/start", nil)
	f.ctrl.StartAuth(httptest.NewRecorder(), start)

	req := httptest.NewRequest(http.MethodPost, "/auth/complete", nil)
	w := httptest.NewRecorder()
	f.ctrl.CompleteAuth(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "authorized")
	require.Len(t, f.auth.completed, 1)

	// the flow slot is cleared, a second complete finds nothing
	w2 := httptest.NewRecorder()
	f.ctrl.CompleteAuth(w2, httptest.NewRequest(http.MethodPost, "/auth/complete", nil))
	assert.Equal(t, http.StatusNotFound, w2.Code)
}

func TestCompleteAuth_Denied(t *testing.T) {
	f := newTestController()
	f.auth.startResult = &trakt.DeviceCode{UserCode: "ABCD1234", ExpiresIn: 600}
	f.auth.completeErr = models.ErrAuthDenied

	start := httptest.NewRequest(http.MethodPost, "/auth/start", nil)
	f.ctrl.StartAuth(httptest.NewRecorder(), start)

	req := httptest.NewRequest(http.MethodPost, "/auth/complete", nil)
	w := httptest.NewRecorder()
	f.ctrl.CompleteAuth(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
