package models

import (
	"fmt"
	"strings"
	"time"
)

// WatchedRecord is a single watch event as fetched from the source
// service. Immutable once constructed; SourceRating is 0 when the history
// item carried no inline rating.
type WatchedRecord struct {
	Title        string
	Year         int
	TraktID      int
	IMDbID       string
	TMDBID       int
	WatchedAt    time.Time
	SourceRating int
}

// Usable reports whether the record carries enough identity to be
// importable: at least one of title, IMDb ID or TMDB ID.
func (w WatchedRecord) Usable() bool {
	return w.Title != "" || w.IMDbID != "" || w.TMDBID != 0
}

// CanonicalRecord is the deduplicated, identifier-resolved, rating-converted
// record ready for export. WatchedDate is a date only (YYYY-MM-DD); Rating
// is on the 0.5–5.0 half-star scale, 0 when unrated.
type CanonicalRecord struct {
	Title       string
	Year        int
	IMDbID      string
	TMDBID      int
	WatchedDate string
	Rating      float64
}

// Identifier returns the dedup key component for this record. Exact IDs
// win over the title+year fallback: IMDb first, then TMDB.
func (c CanonicalRecord) Identifier() string {
	switch {
	case c.IMDbID != "":
		return "imdb:" + c.IMDbID
	case c.TMDBID != 0:
		return fmt.Sprintf("tmdb:%d", c.TMDBID)
	default:
		return TitleYearKey(c.Title, c.Year)
	}
}

// Usable mirrors the watch-record invariant on the export side.
func (c CanonicalRecord) Usable() bool {
	return c.Title != "" || c.IMDbID != "" || c.TMDBID != 0
}

// TitleYearKey builds the case-insensitive title+year fallback key shared
// by dedup and rating lookup.
func TitleYearKey(title string, year int) string {
	return fmt.Sprintf("title:%s|%d", strings.ToLower(title), year)
}
