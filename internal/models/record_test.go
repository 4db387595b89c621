package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatchedRecord_Usable(t *testing.T) {
	assert.True(t, WatchedRecord{Title: "Heat"}.Usable())
	assert.True(t, WatchedRecord{IMDbID: "tt0113277"}.Usable())
	assert.True(t, WatchedRecord{TMDBID: 949}.Usable())
	assert.False(t, WatchedRecord{WatchedAt: time.Now()}.Usable())
}

func TestCanonicalRecord_IdentifierPrecedence(t *testing.T) {
	rec := CanonicalRecord{Title: "Heat", Year: 1995, IMDbID: "tt0113277", TMDBID: 949}
	assert.Equal(t, "imdb:tt0113277", rec.Identifier())

	rec.IMDbID = ""
	assert.Equal(t, "tmdb:949", rec.Identifier())

	rec.TMDBID = 0
	assert.Equal(t, "title:heat|1995", rec.Identifier())
}

func TestTitleYearKey_CaseInsensitive(t *testing.T) {
	assert.Equal(t, TitleYearKey("HEAT", 1995), TitleYearKey("heat", 1995))
	assert.NotEqual(t, TitleYearKey("Heat", 1995), TitleYearKey("Heat", 1996))
}
