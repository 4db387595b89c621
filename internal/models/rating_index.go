package models

// RatingIndex holds the user's ratings keyed three ways. Lookup order is
// IMDb ID, then TMDB ID, then title+year; the first hit wins.
type RatingIndex struct {
	byIMDb      map[string]int
	byTMDB      map[int]int
	byTitleYear map[string]int
}

func NewRatingIndex() *RatingIndex {
	return &RatingIndex{
		byIMDb:      make(map[string]int),
		byTMDB:      make(map[int]int),
		byTitleYear: make(map[string]int),
	}
}

// Add registers a rating under every identifier the movie carries.
func (ri *RatingIndex) Add(imdbID string, tmdbID int, title string, year int, rating int) {
	if rating <= 0 {
		return
	}
	if imdbID != "" {
		ri.byIMDb[imdbID] = rating
	}
	if tmdbID != 0 {
		ri.byTMDB[tmdbID] = rating
	}
	if title != "" {
		ri.byTitleYear[TitleYearKey(title, year)] = rating
	}
}

// Lookup resolves the rating for a watched record, 0 when unrated.
func (ri *RatingIndex) Lookup(rec WatchedRecord) int {
	if ri == nil {
		return 0
	}
	if rec.IMDbID != "" {
		if r, ok := ri.byIMDb[rec.IMDbID]; ok {
			return r
		}
	}
	if rec.TMDBID != 0 {
		if r, ok := ri.byTMDB[rec.TMDBID]; ok {
			return r
		}
	}
	if rec.Title != "" {
		if r, ok := ri.byTitleYear[TitleYearKey(rec.Title, rec.Year)]; ok {
			return r
		}
	}
	return 0
}

// Len returns the number of distinct title+year entries, used for logging.
func (ri *RatingIndex) Len() int {
	if ri == nil {
		return 0
	}
	n := len(ri.byIMDb)
	if len(ri.byTMDB) > n {
		n = len(ri.byTMDB)
	}
	if len(ri.byTitleYear) > n {
		n = len(ri.byTitleYear)
	}
	return n
}
