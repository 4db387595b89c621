package syncer

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// SyncState owns the watermark slot: the timestamp separating
// already-exported from not-yet-exported history. A missing file means no
// prior sync. Writes are single atomic overwrites.
type SyncState struct {
	path string
	mu   sync.Mutex
}

func NewSyncState(path string) *SyncState {
	return &SyncState{path: path}
}

// Watermark returns the persisted timestamp, or the zero time when no
// sync has completed yet.
func (s *SyncState) Watermark() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt watermark file %s: %w", s.path, err)
	}
	return t.UTC(), nil
}

// Advance overwrites the watermark. Called only after an export has been
// committed.
func (s *SyncState) Advance(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := []byte(t.UTC().Format(time.RFC3339) + "\n")

	tmpFile := s.path + ".tmp"
	file, err := os.OpenFile(tmpFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, s.path)
}
