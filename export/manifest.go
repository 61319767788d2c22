package export

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

type ManifestEntry struct {
	Key      string `json:"key"`
	Path     string `json:"path"`
	Rows     int    `json:"rows"`
	Validity string `json:"validity_path,omitempty"`
	PupilDir string `json:"pupil_dir,omitempty"`
}

// Manifest records what one run exported.
type Manifest struct {
	RunID       uuid.UUID       `json:"run_id"`
	Mode        string          `json:"mode"`
	GeneratedAt time.Time       `json:"generated_at"`
	Features    []string        `json:"features"`
	Files       []ManifestEntry `json:"files"`
	Failures    []string        `json:"failures,omitempty"`
}

func writeJSON(fs afero.Fs, path string, v any) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ReadManifest(fs afero.Fs, path string) (*Manifest, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
