package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ubc-iui/emdat-sweep/export"
	"github.com/ubc-iui/emdat-sweep/sweep"
)

// Input is the population of one run. Offsets may be nil, meaning zero for
// every pid.
type Input struct {
	Recordings []string
	PIDs       []int
	Offsets    []int
}

func (in Input) jobs() ([]sweep.Job, error) {
	if len(in.Recordings) != len(in.PIDs) {
		return nil, fmt.Errorf("%d recordings for %d pids", len(in.Recordings), len(in.PIDs))
	}
	if in.Offsets != nil && len(in.Offsets) != len(in.PIDs) {
		return nil, fmt.Errorf("%d log time offsets for %d pids", len(in.Offsets), len(in.PIDs))
	}
	jobs := make([]sweep.Job, len(in.PIDs))
	for i := range jobs {
		jobs[i] = sweep.Job{Recording: in.Recordings[i], PID: in.PIDs[i]}
		if in.Offsets != nil {
			jobs[i].Offset = in.Offsets[i]
		}
	}
	return jobs, nil
}

// ChunkResult is what one worker hands back: a result map on success, the
// cause otherwise.
type ChunkResult struct {
	ChunkID  int
	PIDs     []int
	Results  sweep.ResultMap
	Err      error
	Duration time.Duration
}

func (r ChunkResult) OK() bool { return r.Err == nil }

// Outcome is the collected state of a sweep. Results merges every successful
// chunk; Failures lists the chunks whose buckets are missing from it.
type Outcome struct {
	RunID    uuid.UUID
	Space    sweep.Space
	Workers  int
	Results  sweep.ResultMap
	Failures []ChunkResult
	Manifest *export.Manifest
}

func (o *Outcome) FailureMessages() []string {
	out := make([]string, 0, len(o.Failures))
	for _, f := range o.Failures {
		out = append(out, fmt.Sprintf("chunk %d (pids %v): %v", f.ChunkID, f.PIDs, f.Err))
	}
	return out
}
