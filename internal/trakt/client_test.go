package trakt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"tlsync/internal/models"
	"tlsync/internal/structures"
	"tlsync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientConfig(baseURL string) *structures.Config {
	return &structures.Config{
		Trakt: structures.TraktConfig{
			BaseURL:           baseURL,
			ClientID:          "cid",
			ClientSecret:      "secret",
			RequestsPerSecond: 1000,
			MaxRetries:        2,
			Timeout:           5 * time.Second,
			PageLimit:         2,
		},
	}
}

func testCredentials() *testutil.MockCredentials {
	return &testutil.MockCredentials{
		Cred: models.Credential{AccessToken: "access-token", ExpiresAt: time.Now().Add(time.Hour)},
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(clientConfig(srv.URL), testCredentials(), &testutil.MockLogger{}, &testutil.MockMetrics{})
	return c, srv
}

func historyPage(items string) string {
	return "[" + items + "]"
}

func historyItemJSON(title string, year int, imdb string, watchedAt string) string {
	return fmt.Sprintf(`{"watched_at":%q,"type":"movie","movie":{"title":%q,"year":%d,"ids":{"trakt":1,"imdb":%q,"tmdb":0}}}`,
		watchedAt, title, year, imdb)
}

func TestClient_FetchWatched_MergesPages(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sync/history/movies", r.URL.Path)
		assert.Equal(t, "2", r.Header.Get("trakt-api-version"))
		assert.Equal(t, "cid", r.Header.Get("trakt-api-key"))
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))

		w.Header().Set("X-Pagination-Page-Count", "2")
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, historyPage(
				historyItemJSON("Arrival", 2016, "tt2543164", "2024-01-05T20:00:00Z")+","+
					historyItemJSON("Heat", 1995, "tt0113277", "2024-01-04T20:00:00Z")))
		case "2":
			fmt.Fprint(w, historyPage(historyItemJSON("Ran", 1985, "tt0089881", "2024-01-03T20:00:00Z")))
		default:
			t.Errorf("unexpected page %s", r.URL.Query().Get("page"))
		}
	}))

	records, err := c.FetchWatched(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Arrival", records[0].Title)
	assert.Equal(t, "tt2543164", records[0].IMDbID)
	assert.Equal(t, "Ran", records[2].Title)
}

func TestClient_FetchWatched_PassesStartAt(t *testing.T) {
	since := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	var got string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("start_at")
		fmt.Fprint(w, "[]")
	}))

	_, err := c.FetchWatched(context.Background(), &since)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01T00:00:00Z", got)
}

func TestClient_FetchWatched_SkipsMalformedItems(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, historyPage(
			`{"watched_at":"2024-01-05T20:00:00Z","type":"movie"}`+","+
				`{"type":"movie","movie":{"title":"NoDate","year":2020,"ids":{}}}`+","+
				historyItemJSON("Kept", 2021, "tt0000001", "2024-01-06T20:00:00Z")))
	}))

	records, err := c.FetchWatched(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Kept", records[0].Title)
}

func TestClient_FetchRatings_IndexesAllIdentifiers(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sync/ratings/movies", r.URL.Path)
		fmt.Fprint(w, `[{"rated_at":"2024-01-10T00:00:00Z","rating":8,"movie":{"title":"Arrival","year":2016,"ids":{"trakt":1,"imdb":"tt2543164","tmdb":329865}}}]`)
	}))

	index, err := c.FetchRatings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, index.Lookup(models.WatchedRecord{IMDbID: "tt2543164"}))
	assert.Equal(t, 8, index.Lookup(models.WatchedRecord{TMDBID: 329865}))
	assert.Equal(t, 8, index.Lookup(models.WatchedRecord{Title: "arrival", Year: 2016}))
}

func TestClient_UnauthorizedIsTerminal(t *testing.T) {
	var calls int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.FetchWatched(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnauthenticated))
	assert.Equal(t, 1, calls, "401 must not be retried")
}

func TestClient_RetriesAfter429(t *testing.T) {
	var calls int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, "[]")
	}))

	_, err := c.FetchWatched(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestClient_ServerErrorsExhaustRetries(t *testing.T) {
	var calls int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.FetchWatched(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSourceUnavailable))
	assert.Equal(t, 3, calls, "MaxRetries=2 means three attempts")
}

func TestClient_CredentialErrorStopsImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a credential")
	}))
	t.Cleanup(srv.Close)

	creds := &testutil.MockCredentials{Err: models.ErrUnauthenticated}
	c := NewClient(clientConfig(srv.URL), creds, &testutil.MockLogger{}, &testutil.MockMetrics{})

	_, err := c.FetchWatched(context.Background(), nil)
	assert.True(t, errors.Is(err, models.ErrUnauthenticated))
}

func TestClient_PingHitsSettings(t *testing.T) {
	var calls int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "/users/settings", r.URL.Path)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"user":{"username":"someone"}}`)
	}))

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestClient_PingUnauthorized(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnauthenticated))
}

func TestClient_ContextCancelDuringBackoff(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := c.FetchWatched(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
