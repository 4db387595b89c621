package syncer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"tlsync/internal/models"
	"tlsync/internal/providers"
	"tlsync/internal/structures"
	"tlsync/internal/syncer/interfaces"
)

// ExportsInterface is what the API layer needs from the manager.
type ExportsInterface interface {
	Recent(limit int) ([]models.ExportInfo, error)
	Resolve(name string) (string, error)
}

// ExportManager lists export files and enforces retention: exports beyond
// the configured count are compressed in place to .csv.zst.
type ExportManager struct {
	dir        string
	retention  int
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewExportManager(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger) *ExportManager {
	return &ExportManager{
		dir:        conf.Export.Dir,
		retention:  conf.Export.Retention,
		compressor: compressor,
		logger:     logger,
	}
}

// Recent returns up to limit export files, newest first.
func (em *ExportManager) Recent(limit int) ([]models.ExportInfo, error) {
	entries, err := os.ReadDir(em.dir)
	if err != nil {
		return nil, err
	}

	var exports []models.ExportInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, exportPrefix) {
			continue
		}
		compressed := strings.HasSuffix(name, ".csv.zst")
		if !compressed && !strings.HasSuffix(name, ".csv") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		exports = append(exports, models.ExportInfo{
			Name:       name,
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
			Compressed: compressed,
		})
	}

	sort.Slice(exports, func(i, j int) bool {
		return exports[i].ModifiedAt.After(exports[j].ModifiedAt)
	})
	if limit > 0 && len(exports) > limit {
		exports = exports[:limit]
	}
	return exports, nil
}

// Resolve maps an export file name to its path, rejecting anything that
// escapes the exports directory. Only committed files qualify: an
// in-flight .tmp name never resolves even when it exists on disk.
func (em *ExportManager) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !strings.HasPrefix(name, exportPrefix) {
		return "", fmt.Errorf("invalid export name %q", name)
	}
	if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".csv.zst") {
		return "", fmt.Errorf("invalid export name %q", name)
	}
	path := filepath.Join(em.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// Sweep compresses exports beyond the retention count. The newest files
// stay as plain CSV for direct download.
func (em *ExportManager) Sweep() error {
	exports, err := em.Recent(0)
	if err != nil {
		return err
	}

	var plain []models.ExportInfo
	for _, e := range exports {
		if !e.Compressed {
			plain = append(plain, e)
		}
	}
	if len(plain) <= em.retention {
		return nil
	}

	for _, e := range plain[em.retention:] {
		if err := em.compress(e.Name); err != nil {
			em.logger.Errorf(providers.TypeApp, "Error archiving export %s: %s", e.Name, err)
			return err
		}
		em.logger.Infof(providers.TypeApp, "Archived export %s", e.Name)
	}
	return nil
}

func (em *ExportManager) compress(name string) error {
	path := filepath.Join(em.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	packed, err := em.compressor.Compress(data)
	if err != nil {
		return err
	}

	target := path + ".zst"
	tmpFile := target + ".tmp"
	file, err := os.OpenFile(tmpFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err = file.Write(packed); err != nil {
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
	if err := os.Rename(tmpFile, target); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Remove(path)
}
