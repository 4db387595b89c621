package syncer

import (
	"sort"
	"tlsync/internal/models"
)

// Reconcile turns raw watch events into the canonical export set:
// ratings are attached (IMDb ID, then TMDB ID, then title+year; the
// record's own inline rating is the last fallback), records without any
// usable identifier are dropped, duplicate (identifier, watched date)
// pairs keep the record encountered later in the input, and the result is
// ordered by ascending watched date with input order breaking ties.
// Running it twice on the same input yields identical output.
func Reconcile(watched []models.WatchedRecord, ratings *models.RatingIndex) []models.CanonicalRecord {
	type entry struct {
		rec models.CanonicalRecord
		idx int
	}

	byKey := make(map[string]entry, len(watched))
	for i, w := range watched {
		if !w.Usable() {
			continue
		}

		rating := ratings.Lookup(w)
		if rating == 0 {
			rating = w.SourceRating
		}

		rec := models.CanonicalRecord{
			Title:       w.Title,
			Year:        w.Year,
			IMDbID:      w.IMDbID,
			TMDBID:      w.TMDBID,
			WatchedDate: w.WatchedAt.UTC().Format("2006-01-02"),
			Rating:      ConvertRating(rating),
		}

		// later fetch wins for the same film on the same date
		byKey[rec.Identifier()+"|"+rec.WatchedDate] = entry{rec: rec, idx: i}
	}

	entries := make([]entry, 0, len(byKey))
	for _, e := range byKey {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].rec.WatchedDate != entries[j].rec.WatchedDate {
			return entries[i].rec.WatchedDate < entries[j].rec.WatchedDate
		}
		return entries[i].idx < entries[j].idx
	})

	records := make([]models.CanonicalRecord, len(entries))
	for i, e := range entries {
		records[i] = e.rec
	}
	return records
}
