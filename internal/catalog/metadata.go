package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperjump/copilot/internal/models"
)

// metadataFile is the on-disk shape of the cache sidecar.
type metadataFile struct {
	FileHash        string `json:"file_hash"`
	Collection      string `json:"collection,omitempty"`
	TechnologyCount int    `json:"technology_count"`
	LastUpdated     string `json:"last_updated"`
}

// LoadMetadata reads the sidecar at path. A missing file yields a zero version and no error.
func LoadMetadata(path string) (models.CatalogVersion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.CatalogVersion{}, nil
		}
		return models.CatalogVersion{}, fmt.Errorf("read metadata: %w", err)
	}
	var m metadataFile
	if err := json.Unmarshal(data, &m); err != nil {
		return models.CatalogVersion{}, fmt.Errorf("parse metadata: %w", err)
	}
	v := models.CatalogVersion{FileHash: m.FileHash, Collection: m.Collection, TechnologyCount: m.TechnologyCount}
	if m.LastUpdated != "" {
		if ts, err := time.Parse(time.RFC3339Nano, m.LastUpdated); err == nil {
			v.LastUpdated = ts
		}
	}
	return v, nil
}

// SaveMetadata writes the sidecar atomically (temp file + rename).
// The parent directory is created if needed.
func SaveMetadata(path string, v models.CatalogVersion) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	data, err := json.MarshalIndent(metadataFile{
		FileHash:        v.FileHash,
		Collection:      v.Collection,
		TechnologyCount: v.TechnologyCount,
		LastUpdated:     v.LastUpdated.Format(time.RFC3339Nano),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace metadata: %w", err)
	}
	return nil
}
