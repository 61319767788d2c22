package recording

import (
	"fmt"
	"os"
)

type Sample struct {
	Timestamp int64 // ms
	Valid     bool
	Pupil     float64 // mm, <= 0 when unknown
	X, Y      float64
}

type Fixation struct {
	Timestamp int64
	Duration  int64
	X, Y      float64
}

type Saccade struct {
	Timestamp int64
	Duration  int64
}

type Event struct {
	Timestamp int64
	Kind      string
}

// Recording is one participant's raw stream. It is loaded once and shared
// read-only by every sweep point of that participant.
type Recording struct {
	ID        string
	Files     Files
	Samples   []Sample
	Fixations []Fixation
	Saccades  []Saccade
	Events    []Event
}

// MissingFileError reports a required per-participant file that does not exist.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string { return fmt.Sprintf("missing file %s", e.Path) }

func (e *MissingFileError) Unwrap() error { return os.ErrNotExist }
