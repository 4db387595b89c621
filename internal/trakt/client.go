package trakt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"tlsync/internal/models"
	"tlsync/internal/providers"
	"tlsync/internal/structures"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// CredentialSource is satisfied by *TokenStore.
type CredentialSource interface {
	Credential(ctx context.Context) (models.Credential, error)
}

// Client fetches watched-history and rating pages from the source service.
// Requests are paced by a limiter and retried with exponential backoff on
// 429/5xx/network failures up to conf.Trakt.MaxRetries, honoring
// Retry-After when the service sends one.
type Client struct {
	conf    *structures.Config
	tokens  CredentialSource
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	client  *http.Client
	limiter *rate.Limiter
}

func NewClient(conf *structures.Config, tokens CredentialSource, logger providers.Logger, metrics providers.MetricsProviderInterface) *Client {
	return &Client{
		conf:    conf,
		tokens:  tokens,
		logger:  logger,
		metrics: metrics,
		client:  &http.Client{Timeout: conf.Trakt.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(max(conf.Trakt.RequestsPerSecond, 1))), 1),
	}
}

type movieIDs struct {
	Trakt int    `json:"trakt"`
	Slug  string `json:"slug"`
	IMDb  string `json:"imdb"`
	TMDB  int    `json:"tmdb"`
}

type movieInfo struct {
	Title string   `json:"title"`
	Year  int      `json:"year"`
	IDs   movieIDs `json:"ids"`
}

type historyItem struct {
	WatchedAt time.Time  `json:"watched_at"`
	Type      string     `json:"type"`
	Movie     *movieInfo `json:"movie"`
}

type ratingItem struct {
	RatedAt time.Time  `json:"rated_at"`
	Rating  int        `json:"rating"`
	Movie   *movieInfo `json:"movie"`
}

// FetchWatched returns the full watched-movie history, or only events
// after since when non-nil. All pages are merged, in page order, before
// returning.
func (c *Client) FetchWatched(ctx context.Context, since *time.Time) ([]models.WatchedRecord, error) {
	var records []models.WatchedRecord

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("limit", strconv.Itoa(c.conf.Trakt.PageLimit))
		if since != nil {
			params.Set("start_at", since.UTC().Format(time.RFC3339))
		}

		var items []historyItem
		pageCount, err := c.getJSON(ctx, "history", "/sync/history/movies?"+params.Encode(), &items)
		if err != nil {
			return nil, err
		}

		for _, item := range items {
			if item.Movie == nil || item.WatchedAt.IsZero() {
				c.logger.Warnf(providers.TypeTrakt, "Skipping malformed history item on page %d", page)
				continue
			}
			records = append(records, models.WatchedRecord{
				Title:     item.Movie.Title,
				Year:      item.Movie.Year,
				TraktID:   item.Movie.IDs.Trakt,
				IMDbID:    item.Movie.IDs.IMDb,
				TMDBID:    item.Movie.IDs.TMDB,
				WatchedAt: item.WatchedAt.UTC(),
			})
		}

		if page >= pageCount {
			break
		}
	}

	c.logger.Infof(providers.TypeTrakt, "Fetched %d watched movies", len(records))
	return records, nil
}

// FetchRatings returns the user's movie ratings indexed by every
// identifier each movie carries.
func (c *Client) FetchRatings(ctx context.Context) (*models.RatingIndex, error) {
	index := models.NewRatingIndex()

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("limit", strconv.Itoa(c.conf.Trakt.PageLimit))

		var items []ratingItem
		pageCount, err := c.getJSON(ctx, "ratings", "/sync/ratings/movies?"+params.Encode(), &items)
		if err != nil {
			return nil, err
		}

		for _, item := range items {
			if item.Movie == nil {
				continue
			}
			index.Add(item.Movie.IDs.IMDb, item.Movie.IDs.TMDB, item.Movie.Title, item.Movie.Year, item.Rating)
		}

		if page >= pageCount {
			break
		}
	}

	c.logger.Infof(providers.TypeTrakt, "Fetched %d movie ratings", index.Len())
	return index, nil
}

// Ping issues one cheap authenticated request to confirm the service is
// reachable and the stored credential is accepted. Shares the retry and
// error taxonomy of the fetch paths.
func (c *Client) Ping(ctx context.Context) error {
	var settings json.RawMessage
	_, err := c.getJSON(ctx, "settings", "/users/settings", &settings)
	return err
}

// getJSON performs one authenticated GET with bounded retries. Returns the
// total page count signaled by the service (1 when absent).
func (c *Client) getJSON(ctx context.Context, endpoint, path string, target interface{}) (int, error) {
	var lastErr error

	for attempt := 0; attempt <= c.conf.Trakt.MaxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.IncSourceRetries()
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return 0, err
		}

		cred, err := c.tokens.Credential(ctx)
		if err != nil {
			return 0, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.conf.Trakt.BaseURL+path, nil)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("trakt-api-version", "2")
		req.Header.Set("trakt-api-key", c.conf.Trakt.ClientID)
		req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if err := c.backoff(ctx, attempt, 0); err != nil {
				return 0, err
			}
			continue
		}

		c.metrics.IncSourceRequests(endpoint, resp.StatusCode)

		switch {
		case resp.StatusCode == http.StatusOK:
			pageCount := 1
			if v, err := strconv.Atoi(resp.Header.Get("X-Pagination-Page-Count")); err == nil && v > 0 {
				pageCount = v
			}
			err := json.NewDecoder(resp.Body).Decode(target)
			resp.Body.Close()
			if err != nil {
				return 0, fmt.Errorf("%s: decode page: %w", endpoint, err)
			}
			return pageCount, nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return 0, fmt.Errorf("%s: status %d: %w", endpoint, resp.StatusCode, models.ErrUnauthenticated)

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			lastErr = fmt.Errorf("rate limited (status 429)")
			c.logger.Warnf(providers.TypeTrakt, "Rate limited on %s, backing off %s", endpoint, retryAfter)
			if err := c.backoff(ctx, attempt, retryAfter); err != nil {
				return 0, err
			}

		case resp.StatusCode >= http.StatusInternalServerError:
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			if err := c.backoff(ctx, attempt, 0); err != nil {
				return 0, err
			}

		default:
			resp.Body.Close()
			return 0, fmt.Errorf("%s: unexpected status %d", endpoint, resp.StatusCode)
		}
	}

	return 0, fmt.Errorf("%s after %d attempts: %w: %v", endpoint, c.conf.Trakt.MaxRetries+1, models.ErrSourceUnavailable, lastErr)
}

// backoff waits before the next attempt: Retry-After when given, otherwise
// 1s, 2s, 4s... No wait after the final attempt.
func (c *Client) backoff(ctx context.Context, attempt int, retryAfter time.Duration) error {
	if attempt >= c.conf.Trakt.MaxRetries {
		return ctx.Err()
	}
	delay := time.Duration(1<<uint(attempt)) * time.Second
	if retryAfter > 0 {
		delay = retryAfter
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func parseRetryAfter(value string) time.Duration {
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
