package recording

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	cfg "github.com/ubc-iui/emdat-sweep/config"
)

// Loader turns the stream files of one recording into a Recording.
type Loader interface {
	Load(files Files) (*Recording, error)
}

// table describes which columns of a tab-separated export feed one stream.
type table struct {
	ts, dur, x, y   string
	validity, pupil string
	kind            string
	// rows are kept only when filterCol starts with filterVal
	filterCol, filterVal string
	// consecutive rows sharing groupCol collapse into the first one
	groupCol string
}

type layout struct {
	timeDivisor float64
	samples     table
	fixations   table
	saccades    *table
	events      table
}

var layouts = map[cfg.EyeTrackerType]layout{
	cfg.TobiiV2: {
		timeDivisor: 1,
		samples:     table{ts: "Timestamp", validity: "ValidityLeft", pupil: "PupilLeft", x: "GazePointX", y: "GazePointY"},
		fixations:   table{ts: "Timestamp", dur: "Duration", x: "GazePointX", y: "GazePointY"},
		events:      table{ts: "Timestamp", kind: "Event"},
	},
	cfg.TobiiV3: {
		timeDivisor: 1,
		samples: table{ts: "RecordingTimestamp", validity: "ValidityLeft", pupil: "PupilLeft",
			x: "GazePointX (MCSpx)", y: "GazePointY (MCSpx)"},
		fixations: table{ts: "RecordingTimestamp", dur: "GazeEventDuration",
			x: "FixationPointX (MCSpx)", y: "FixationPointY (MCSpx)",
			filterCol: "GazeEventType", filterVal: "Fixation", groupCol: "FixationIndex"},
		saccades: &table{ts: "RecordingTimestamp", dur: "GazeEventDuration",
			filterCol: "GazeEventType", filterVal: "Saccade", groupCol: "SaccadeIndex"},
		events: table{ts: "RecordingTimestamp", kind: "MouseEvent"},
	},
	cfg.SMI: {
		// SMI timestamps are in microseconds
		timeDivisor: 1000,
		samples:     table{ts: "Time", pupil: "L Pupil Diameter [mm]", x: "L POR X [px]", y: "L POR Y [px]"},
		fixations: table{ts: "Start", dur: "Duration", x: "Location X", y: "Location Y",
			filterCol: "Event Type", filterVal: "Fixation"},
		saccades: &table{ts: "Start", dur: "Duration", filterCol: "Event Type", filterVal: "Saccade"},
		events:   table{ts: "Start", kind: "Description", filterCol: "Event Type", filterVal: "UserEvent"},
	},
}

type tsvLoader struct {
	fs          afero.Fs
	layout      layout
	mediaOffset int64
}

// NewLoader returns a Loader for the given tracker. Timestamps are shifted
// back by mediaOffset ms.
func NewLoader(fs afero.Fs, tracker cfg.EyeTrackerType, mediaOffset int) (Loader, error) {
	l, ok := layouts[tracker]
	if !ok {
		return nil, fmt.Errorf("%w: %q", cfg.ErrUnknownEyeTracker, tracker)
	}
	return &tsvLoader{fs: fs, layout: l, mediaOffset: int64(mediaOffset)}, nil
}

func (l *tsvLoader) Load(files Files) (*Recording, error) {
	rec := &Recording{Files: files}

	err := l.read(files.All, l.layout.samples, func(r row) error {
		ts, err := l.timestamp(r.get(l.layout.samples.ts))
		if err != nil {
			return err
		}
		s := Sample{Timestamp: ts, Pupil: r.float(l.layout.samples.pupil, -1)}
		s.X = r.float(l.layout.samples.x, 0)
		s.Y = r.float(l.layout.samples.y, 0)
		if v := l.layout.samples.validity; v != "" {
			code, err := strconv.Atoi(strings.TrimSpace(r.get(v)))
			s.Valid = err == nil && code < 2
		} else {
			s.Valid = s.Pupil > 0
		}
		rec.Samples = append(rec.Samples, s)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = l.read(files.Fixations, l.layout.fixations, func(r row) error {
		ts, err := l.timestamp(r.get(l.layout.fixations.ts))
		if err != nil {
			return err
		}
		rec.Fixations = append(rec.Fixations, Fixation{
			Timestamp: ts,
			Duration:  int64(r.float(l.layout.fixations.dur, 0) / l.layout.timeDivisor),
			X:         r.float(l.layout.fixations.x, 0),
			Y:         r.float(l.layout.fixations.y, 0),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if t := l.layout.saccades; t != nil {
		err = l.read(files.Saccades, *t, func(r row) error {
			ts, err := l.timestamp(r.get(t.ts))
			if err != nil {
				return err
			}
			rec.Saccades = append(rec.Saccades, Saccade{
				Timestamp: ts,
				Duration:  int64(r.float(t.dur, 0) / l.layout.timeDivisor),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	err = l.read(files.Events, l.layout.events, func(r row) error {
		kind := strings.TrimSpace(r.get(l.layout.events.kind))
		if kind == "" {
			return nil
		}
		ts, err := l.timestamp(r.get(l.layout.events.ts))
		if err != nil {
			return err
		}
		rec.Events = append(rec.Events, Event{Timestamp: ts, Kind: kind})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rec.Samples, func(i, j int) bool { return rec.Samples[i].Timestamp < rec.Samples[j].Timestamp })
	sort.SliceStable(rec.Fixations, func(i, j int) bool { return rec.Fixations[i].Timestamp < rec.Fixations[j].Timestamp })
	sort.SliceStable(rec.Saccades, func(i, j int) bool { return rec.Saccades[i].Timestamp < rec.Saccades[j].Timestamp })
	sort.SliceStable(rec.Events, func(i, j int) bool { return rec.Events[i].Timestamp < rec.Events[j].Timestamp })
	return rec, nil
}

func (l *tsvLoader) timestamp(s string) (int64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return int64(v/l.layout.timeDivisor) - l.mediaOffset, nil
}

type row struct {
	idx    map[string]int
	fields []string
}

func (r row) get(col string) string {
	i, ok := r.idx[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

func (r row) float(col string, def float64) float64 {
	if col == "" {
		return def
	}
	s := strings.TrimSpace(strings.ReplaceAll(r.get(col), ",", "."))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// read streams the rows of one tab-separated file through fn. Lines starting
// with '#' are comments. An empty path means the stream is not exported.
func (l *tsvLoader) read(path string, t table, fn func(row) error) error {
	if path == "" {
		return nil
	}
	f, err := l.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &MissingFileError{Path: path}
		}
		return err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: header: %w", path, err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	if _, ok := idx[t.ts]; !ok {
		return fmt.Errorf("%s: missing column %q", path, t.ts)
	}

	lastGroup := ""
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		r := row{idx: idx, fields: fields}
		if t.filterCol != "" && !strings.HasPrefix(r.get(t.filterCol), t.filterVal) {
			lastGroup = ""
			continue
		}
		if t.groupCol != "" {
			g := r.get(t.groupCol)
			if g == lastGroup {
				continue
			}
			lastGroup = g
		}
		if strings.TrimSpace(r.get(t.ts)) == "" {
			continue
		}
		if err := fn(r); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
}
