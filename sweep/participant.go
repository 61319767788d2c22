package sweep

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/ubc-iui/emdat-sweep/aoi"
	"github.com/ubc-iui/emdat-sweep/partition"
	"github.com/ubc-iui/emdat-sweep/recording"
)

// Job is one (recording, pid, log-time offset) triple of a work chunk.
type Job struct {
	Recording string
	PID       int
	Offset    int
}

// Participant is one pid's processed data under one sweep key. Scenes[0] is
// the whole-recording scene when NumSegments > 0.
type Participant struct {
	PID           int
	Recording     string
	Key           Key
	NumSegments   int
	SelectedTasks int
	Segments      []*recording.Segment
	Scenes        []*recording.Scene
}

func (p *Participant) WholeScene() *recording.Scene {
	if len(p.Scenes) == 0 {
		return nil
	}
	return p.Scenes[0]
}

// Options are the processing flags shared by every sweep point.
type Options struct {
	RequireValidSegs        bool
	AutoPartitionLowQuality bool
	ExportPupilInfo         bool
	ValidThreshold          float64
	Catalog                 []string
}

// NewParticipant builds the result for one pid at one key. A participant with
// zero segments is returned without error; callers drop it from the bucket.
func NewParticipant(fs afero.Fs, rec *recording.Recording, job Job, key Key, aois []aoi.AOI, rps *float64, o Options) (*Participant, error) {
	scenes, n, err := partition.Partition(fs, rec.Files.Segments, key.PruneLength(), key.Disjoint(), key.Padding())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &recording.MissingFileError{Path: rec.Files.Segments}
		}
		return nil, fmt.Errorf("partition %s: %w", rec.Files.Segments, err)
	}

	p := &Participant{PID: job.PID, Recording: job.Recording, Key: key}
	if n == 0 {
		return p, nil
	}
	if key.Mode == ModeTasks {
		scenes, p.SelectedTasks = partition.SelectTasks(scenes, o.Catalog, key.Index)
		if p.SelectedTasks == 0 {
			return p, nil
		}
	}

	popts := recording.ProcessOptions{
		Scenes:                  scenes,
		AOIs:                    aois,
		PruneLength:             key.PruneLength(),
		RequireValidSegs:        o.RequireValidSegs,
		AutoPartitionLowQuality: o.AutoPartitionLowQuality,
		RestPupilSize:           rps,
		ExportPupilInfo:         o.ExportPupilInfo,
		ValidThreshold:          o.ValidThreshold,
		LogTimeOffset:           job.Offset,
	}
	segs, scs := rec.Process(popts)
	if len(segs) == 0 {
		return p, nil
	}
	p.Segments = segs
	p.NumSegments = len(segs)

	whole := recording.NewScene(fmt.Sprintf("%d_allsc", job.PID), segs, popts)
	if key.Mode == ModeTasks {
		// task selection reports only the whole-recording scene
		scs = nil
	}
	p.Scenes = append([]*recording.Scene{whole}, scs...)
	return p, nil
}
