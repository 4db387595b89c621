package syncer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"tlsync/internal/models"
	"tlsync/internal/providers"
)

// exportColumns is the header required by the Letterboxd importer.
var exportColumns = []string{"Title", "Year", "imdbID", "tmdbID", "WatchedDate", "Rating"}

const exportPrefix = "letterboxd_import_"

// ExportWriterInterface is what the engine needs from the writer.
type ExportWriterInterface interface {
	Write(batch *models.ExportBatch) (path string, size int64, err error)
}

// CSVWriter serializes a batch into the Letterboxd import format. The file
// is written to a temporary path and renamed into the exports directory on
// completion, so a reader never observes a half-written export.
type CSVWriter struct {
	dir    string
	logger providers.Logger
	now    func() time.Time
}

func NewCSVWriter(dir string, logger providers.Logger) *CSVWriter {
	return &CSVWriter{dir: dir, logger: logger, now: time.Now}
}

func (w *CSVWriter) Write(batch *models.ExportBatch) (string, int64, error) {
	name := exportPrefix + w.now().UTC().Format("20060102_150405") + ".csv"
	path := filepath.Join(w.dir, name)
	tmpFile := path + ".tmp"

	size, err := w.writeTmp(tmpFile, batch)
	if err != nil {
		os.Remove(tmpFile)
		return "", 0, fmt.Errorf("%w: %v", models.ErrExportWriteFailed, err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return "", 0, fmt.Errorf("%w: %v", models.ErrExportWriteFailed, err)
	}

	w.logger.Infof(providers.TypeSync, "Export committed: %s (%d records, %d bytes)", path, len(batch.Records), size)
	return path, size, nil
}

func (w *CSVWriter) writeTmp(tmpFile string, batch *models.ExportBatch) (int64, error) {
	file, err := os.OpenFile(tmpFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(file)
	if err := cw.Write(exportColumns); err != nil {
		file.Close()
		return 0, err
	}
	for _, rec := range batch.Records {
		if err := cw.Write(formatRow(rec)); err != nil {
			file.Close()
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		file.Close()
		return 0, err
	}

	if err := file.Sync(); err != nil {
		file.Close()
		return 0, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return 0, err
	}

	return info.Size(), file.Close()
}

func formatRow(rec models.CanonicalRecord) []string {
	year := ""
	if rec.Year != 0 {
		year = strconv.Itoa(rec.Year)
	}
	tmdb := ""
	if rec.TMDBID != 0 {
		tmdb = strconv.Itoa(rec.TMDBID)
	}
	rating := ""
	if rec.Rating > 0 {
		rating = strconv.FormatFloat(rec.Rating, 'f', 1, 64)
	}
	return []string{rec.Title, year, rec.IMDbID, tmdb, rec.WatchedDate, rating}
}
