package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest describes the last completed snapshot.
type Manifest struct {
	TakenAt      string `json:"taken_at"`
	Bounties     int    `json:"bounties"`
	Applications int    `json:"applications"`
	Leaderboard  int    `json:"leaderboard"`
}

// ManifestStore persists the manifest to disk. An empty path disables it.
type ManifestStore struct {
	path string
}

func NewManifestStore(path string) *ManifestStore {
	return &ManifestStore{path: path}
}

func (m *ManifestStore) Load() (Manifest, bool, error) {
	if m.path == "" {
		return Manifest{}, false, nil
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, false, nil
		}
		return Manifest{}, false, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, false, fmt.Errorf("parse manifest: %w", err)
	}
	return manifest, true, nil
}

func (m *ManifestStore) Save(manifest Manifest) error {
	if m.path == "" {
		return nil
	}

	dir := filepath.Dir(m.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create manifest dir: %w", err)
		}
	}

	data, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmpPath := m.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write manifest tmp: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}
