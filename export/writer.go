package export

import (
	"encoding/csv"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/afero"

	"github.com/ubc-iui/emdat-sweep/sweep"
)

// FeatNumOfSegments is read from the participant rather than its scene.
const FeatNumOfSegments = "numofsegments"

// WriteFeatures writes one tab-separated row per participant, taken from its
// whole-recording scene, sorted by pid. The header is "Part_id" followed by
// features. With requireValid, participants whose whole scene has no valid
// segment are left out. Features the scene does not carry are written as NaN.
// It returns the number of rows written.
func WriteFeatures(fs afero.Fs, ps []*sweep.Participant, path string, features []string, idPrefix, requireValid bool) (int, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := fs.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write(append([]string{"Part_id"}, features...)); err != nil {
		return 0, err
	}

	rows := 0
	for _, p := range byPID(ps) {
		whole := p.WholeScene()
		if whole == nil || (requireValid && !whole.Valid) {
			continue
		}
		id := strconv.Itoa(p.PID)
		if idPrefix {
			id = "P" + id
		}
		rec := make([]string, 0, len(features)+1)
		rec = append(rec, id)
		for _, name := range features {
			if name == FeatNumOfSegments {
				rec = append(rec, strconv.Itoa(p.NumSegments))
				continue
			}
			v, ok := whole.Features[name]
			if !ok {
				rec = append(rec, "NaN")
				continue
			}
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(rec); err != nil {
			return rows, err
		}
		rows++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return rows, err
	}
	return rows, f.Close()
}

// byPID returns a copy of ps ordered by pid, then recording, so output does
// not depend on the order chunks were merged in.
func byPID(ps []*sweep.Participant) []*sweep.Participant {
	sorted := append([]*sweep.Participant(nil), ps...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PID != sorted[j].PID {
			return sorted[i].PID < sorted[j].PID
		}
		return sorted[i].Recording < sorted[j].Recording
	})
	return sorted
}
