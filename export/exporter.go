package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	cfg "github.com/ubc-iui/emdat-sweep/config"
	"github.com/ubc-iui/emdat-sweep/metrics"
	"github.com/ubc-iui/emdat-sweep/sweep"
)

const ManifestName = "manifest.json"

// Exporter writes the merged results of a run, one table per sweep key.
type Exporter struct {
	fs       afero.Fs
	root     string
	features []string
	idPrefix bool
	validity bool
	manifest bool
	pupil    bool
	log      *logrus.Entry
	metrics  *metrics.Metrics
}

func NewExporter(c *cfg.Root, fs afero.Fs, log *logrus.Entry, m *metrics.Metrics) *Exporter {
	return &Exporter{
		fs:       fs,
		root:     c.Paths.Outputs,
		features: c.Features,
		idPrefix: c.Export.IDPrefix,
		validity: c.Export.ValidityReport,
		manifest: c.Export.Manifest,
		pupil:    c.Processing.ExportPupilInfo,
		log:      log,
		metrics:  m,
	}
}

// Export writes a table for every key of space, header-only when its bucket
// is empty. Rows always require a valid whole-recording scene, whatever
// validity flag was used while processing.
func (e *Exporter) Export(runID uuid.UUID, space sweep.Space, merged sweep.ResultMap, failures []string) (*Manifest, error) {
	m := &Manifest{
		RunID:       runID,
		Mode:        space.Mode.String(),
		GeneratedAt: time.Now(),
		Features:    e.features,
		Failures:    failures,
	}
	e.log.WithField("features", e.features).Info("exporting")

	for _, key := range space.Keys() {
		path := PathFor(e.root, key)
		rows, err := WriteFeatures(e.fs, merged[key], path, e.features, e.idPrefix, true)
		if err != nil {
			return m, fmt.Errorf("%s: %w", key, err)
		}
		e.metrics.RowsExported(rows)
		entry := ManifestEntry{Key: key.String(), Path: path, Rows: rows}

		if e.validity {
			entry.Validity = ValidityPathFor(e.root, key)
			if _, err := WriteValidityReport(e.fs, merged[key], entry.Validity); err != nil {
				return m, fmt.Errorf("%s validity: %w", key, err)
			}
		}
		if e.pupil {
			entry.PupilDir = PupilDirFor(e.root, key)
			if err := e.exportPupil(merged[key], entry.PupilDir); err != nil {
				return m, fmt.Errorf("%s pupil data: %w", key, err)
			}
		}
		m.Files = append(m.Files, entry)
		e.log.WithFields(logrus.Fields{"key": key.String(), "rows": rows, "path": path}).Debug("table written")
	}

	if e.manifest {
		if err := writeJSON(e.fs, filepath.Join(e.root, ManifestName), m); err != nil {
			return m, fmt.Errorf("manifest: %w", err)
		}
	}
	return m, nil
}

// exportPupil writes the whole-recording pupil series of every participant
// with a valid whole scene.
func (e *Exporter) exportPupil(ps []*sweep.Participant, dir string) error {
	for _, p := range ps {
		whole := p.WholeScene()
		if whole == nil || !whole.Valid {
			continue
		}
		if _, err := WritePupilData(e.fs, p, whole.ID, dir); err != nil {
			return err
		}
	}
	return nil
}
