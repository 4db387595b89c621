package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"tlsync/internal/controllers"
	"tlsync/internal/structures"
	"tlsync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoutesTestController() *controllers.ApiController {
	return controllers.NewApiController(
		&testutil.MockLogger{},
		&testutil.MockEngine{},
		&testutil.MockExports{},
		nil,
		nil,
		testutil.NewMockCache(),
		&testutil.MockMetrics{},
		&structures.Config{Trakt: structures.TraktConfig{AuthTimeout: time.Minute}},
	)
}

func routesMux(t *testing.T) *http.ServeMux {
	t.Helper()
	router := InitRoutes(newRoutesTestController())
	mux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		mux.Handle(route.Url, route.Handler)
	}
	return mux
}

func TestInitRoutes_RegistersAllEndpoints(t *testing.T) {
	router := InitRoutes(newRoutesTestController())
	routes := router.GetRoutes()
	require.Len(t, routes, 7)

	urls := make(map[string]bool, len(routes))
	for _, r := range routes {
		urls[r.Url] = true
	}
	for _, want := range []string{"/sync", "/status", "/exports", "/export", "/source/check", "/auth/start", "/auth/complete"} {
		assert.True(t, urls[want], "missing route %s", want)
	}
}

func TestRoutes_MethodEnforcement(t *testing.T) {
	mux := routesMux(t)

	cases := []struct {
		method string
		url    string
		want   int
	}{
		{http.MethodGet, "/status", http.StatusOK},
		{http.MethodPost, "/status", http.StatusMethodNotAllowed},
		{http.MethodPost, "/sync", http.StatusOK},
		{http.MethodGet, "/sync", http.StatusMethodNotAllowed},
		{http.MethodGet, "/exports", http.StatusOK},
		{http.MethodDelete, "/exports", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.url, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, "%s %s", tc.method, tc.url)
	}
}
