package config

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultTaskCatalog is the task order used for task-selection sweeps when no
// catalog file is configured.
var DefaultTaskCatalog = []string{
	"3", "5", "9", "11", "18", "20", "27", "28",
	"30", "60", "62", "66", "72", "74", "76",
}

type taskCatalogFile struct {
	Tasks []string `yaml:"tasks"`
}

// LoadTaskCatalog reads an ordered task list. An empty path yields the default catalog.
func LoadTaskCatalog(fs afero.Fs, path string) ([]string, error) {
	if path == "" {
		return append([]string(nil), DefaultTaskCatalog...), nil
	}
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("task catalog: %w", err)
	}
	var f taskCatalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("task catalog %s: %w", path, err)
	}
	if len(f.Tasks) == 0 {
		return nil, fmt.Errorf("task catalog %s: no tasks", path)
	}
	return f.Tasks, nil
}

// RestPupilSizes maps "P<pid>" to a baseline pupil diameter.
type RestPupilSizes map[string]float64

func (r RestPupilSizes) Lookup(pid int) (float64, bool) {
	if r == nil {
		return 0, false
	}
	v, ok := r[fmt.Sprintf("P%d", pid)]
	return v, ok
}

// LoadRestPupilSizes reads a YAML mapping of "P<pid>: size". An empty path
// yields nil, which disables pupil normalisation.
func LoadRestPupilSizes(fs afero.Fs, path string) (RestPupilSizes, error) {
	if path == "" {
		return nil, nil
	}
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("rest pupil sizes: %w", err)
	}
	var out RestPupilSizes
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("rest pupil sizes %s: %w", path, err)
	}
	return out, nil
}
