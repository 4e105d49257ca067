package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"picture-manager/feature/inventory/models"
)

// snapshotFile is the on-disk layout of the inventory-cache snapshot.
// Pictures are keyed by source name rather than numeric id, since ids are not
// stable across databases.
type snapshotFile struct {
	Sources map[string][]models.Picture `json:"sources"`
}

// SaveSnapshot persists the server-source inventory so a restart does not
// need a full rescan. Written to a temp file and renamed so a crash cannot
// leave a torn snapshot.
func SaveSnapshot(path string, bySource map[string][]models.Picture) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	data, err := json.Marshal(snapshotFile{Sources: bySource})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to swap snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a previously saved inventory snapshot. A missing file
// yields a nil map, not an error.
func LoadSnapshot(path string) (map[string][]models.Picture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return file.Sources, nil
}
