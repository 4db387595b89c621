// fakesource is a stand-in Trakt API for manual end-to-end testing: it
// serves a device-code grant that authorizes after a configurable number
// of polls, plus paginated watched-history and ratings endpoints with
// optional injected rate limiting.
//
// Run it, point tlsync's trakt.baseUrl at it, then walk the auth and sync
// endpoints:
//
//	go run ./tests/fakesource -addr :18091 -movies 250 -approve-after 3
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

var (
	addr         = flag.String("addr", ":18091", "listen address")
	movies       = flag.Int("movies", 250, "number of watched movies to serve")
	pageLimit    = flag.Int("limit", 100, "default page size")
	approveAfter = flag.Int("approve-after", 3, "device polls before the grant is approved")
	rateLimitPct = flag.Int("429-pct", 0, "percent of data requests answered with 429")
	deny         = flag.Bool("deny", false, "deny the device grant instead of approving")
)

type movie struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   struct {
		Trakt int    `json:"trakt"`
		IMDb  string `json:"imdb"`
		TMDB  int    `json:"tmdb"`
	} `json:"ids"`
}

type historyItem struct {
	WatchedAt time.Time `json:"watched_at"`
	Type      string    `json:"type"`
	Movie     movie     `json:"movie"`
}

type ratingItem struct {
	RatedAt time.Time `json:"rated_at"`
	Rating  int       `json:"rating"`
	Movie   movie     `json:"movie"`
}

type server struct {
	mu      sync.Mutex
	polls   int
	history []historyItem
	ratings []ratingItem
	rng     *rand.Rand
}

func newServer() *server {
	s := &server{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	base := time.Now().UTC().Add(-time.Duration(*movies) * 24 * time.Hour)
	for i := 0; i < *movies; i++ {
		var m movie
		m.Title = fmt.Sprintf("Movie %04d", i)
		m.Year = 1970 + i%55
		m.IDs.Trakt = i + 1
		m.IDs.IMDb = fmt.Sprintf("tt%07d", i+1)
		m.IDs.TMDB = 100000 + i
		s.history = append(s.history, historyItem{
			WatchedAt: base.Add(time.Duration(i) * 24 * time.Hour),
			Type:      "movie",
			Movie:     m,
		})
		if i%3 == 0 {
			s.ratings = append(s.ratings, ratingItem{
				RatedAt: base.Add(time.Duration(i) * 24 * time.Hour),
				Rating:  1 + i%10,
				Movie:   m,
			})
		}
	}
	return s
}

func (s *server) deviceCode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"device_code":      "fake-device-code",
		"user_code":        "FAKE1234",
		"verification_url": "https://example.invalid/activate",
		"expires_in":       600,
		"interval":         1,
	})
}

func (s *server) deviceToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.polls++
	polls := s.polls
	s.mu.Unlock()

	if *deny {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	if polls < *approveAfter {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	log.Printf("device grant approved after %d polls", polls)
	s.writeToken(w)
}

func (s *server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["refresh_token"] == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	log.Printf("refresh grant for token %q", body["refresh_token"])
	s.writeToken(w)
}

func (s *server) writeToken(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  fmt.Sprintf("fake-access-%d", time.Now().UnixNano()),
		"refresh_token": "fake-refresh",
		"expires_in":    7776000,
		"created_at":    time.Now().Unix(),
	})
}

func (s *server) watchedHistory(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	if s.maybeRateLimit(w) {
		return
	}

	items := s.history
	if startAt := r.URL.Query().Get("start_at"); startAt != "" {
		since, err := time.Parse(time.RFC3339, startAt)
		if err != nil {
			http.Error(w, "bad start_at", http.StatusBadRequest)
			return
		}
		var filtered []historyItem
		for _, item := range items {
			if item.WatchedAt.After(since) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	page, limit := pagination(r)
	pageCount := (len(items) + limit - 1) / limit
	if pageCount == 0 {
		pageCount = 1
	}
	lo := (page - 1) * limit
	hi := lo + limit
	if lo > len(items) {
		lo = len(items)
	}
	if hi > len(items) {
		hi = len(items)
	}

	w.Header().Set("X-Pagination-Page-Count", strconv.Itoa(pageCount))
	writeJSON(w, http.StatusOK, items[lo:hi])
}

func (s *server) movieRatings(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	if s.maybeRateLimit(w) {
		return
	}

	page, limit := pagination(r)
	pageCount := (len(s.ratings) + limit - 1) / limit
	if pageCount == 0 {
		pageCount = 1
	}
	lo := (page - 1) * limit
	hi := lo + limit
	if lo > len(s.ratings) {
		lo = len(s.ratings)
	}
	if hi > len(s.ratings) {
		hi = len(s.ratings)
	}

	w.Header().Set("X-Pagination-Page-Count", strconv.Itoa(pageCount))
	writeJSON(w, http.StatusOK, s.ratings[lo:hi])
}

func (s *server) userSettings(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]string{"username": "fakesource"},
	})
}

func (s *server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") == "" || r.Header.Get("trakt-api-key") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *server) maybeRateLimit(w http.ResponseWriter) bool {
	if *rateLimitPct <= 0 {
		return false
	}
	s.mu.Lock()
	hit := s.rng.Intn(100) < *rateLimitPct
	s.mu.Unlock()
	if hit {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		return true
	}
	return false
}

func pagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = *pageLimit
	}
	return page, limit
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func main() {
	flag.Parse()
	s := newServer()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/device/code", s.deviceCode)
	mux.HandleFunc("/oauth/device/token", s.deviceToken)
	mux.HandleFunc("/oauth/token", s.refreshToken)
	mux.HandleFunc("/sync/history/movies", s.watchedHistory)
	mux.HandleFunc("/sync/ratings/movies", s.movieRatings)
	mux.HandleFunc("/users/settings", s.userSettings)

	log.Printf("fakesource listening on %s (%d movies, %d ratings)", *addr, len(s.history), len(s.ratings))
	log.Fatal(http.ListenAndServe(*addr, mux))
}
