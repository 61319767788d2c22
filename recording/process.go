package recording

import (
	"math"
	"sort"

	"github.com/ubc-iui/emdat-sweep/aoi"
	"github.com/ubc-iui/emdat-sweep/partition"
)

type Segment struct {
	ID      string
	SceneID string
	Start   int64
	End     int64

	Samples   []Sample
	Fixations []Fixation
	Saccades  []Saccade
	Events    []Event

	ProportionValid float64
	Valid           bool
}

// PupilRow is one exported pupil measurement: raw and rest-adjusted size.
type PupilRow struct {
	Timestamp int64
	Pupil     float64
	Adjusted  float64
}

// Scene aggregates segments. Features are computed from the valid segments
// only when the scene was built with RequireValidSegs.
type Scene struct {
	ID        string
	Segments  []*Segment
	Valid     bool
	Features  map[string]float64
	PupilInfo []PupilRow
}

type ProcessOptions struct {
	Scenes                  partition.SceneList
	AOIs                    []aoi.AOI
	PruneLength             int
	RequireValidSegs        bool
	AutoPartitionLowQuality bool
	// RestPupilSize is nil when no baseline is known for the participant.
	RestPupilSize   *float64
	ExportPupilInfo bool
	ValidThreshold  float64
	LogTimeOffset   int
}

// Process slices the recording along opts.Scenes. Segments without any sample
// are dropped; the returned segments are ordered by start time. Scenes left
// without segments are omitted.
func (r *Recording) Process(opts ProcessOptions) ([]*Segment, []*Scene) {
	var all []*Segment
	var scenes []*Scene
	for _, scid := range opts.Scenes.IDs() {
		var segs []*Segment
		for _, def := range opts.Scenes[scid] {
			seg := r.segment(scid, def, opts)
			if seg == nil {
				continue
			}
			if !seg.Valid && opts.AutoPartitionLowQuality {
				segs = append(segs, r.splitAtLargestGap(seg, opts)...)
				continue
			}
			segs = append(segs, seg)
		}
		if len(segs) == 0 {
			continue
		}
		all = append(all, segs...)
		scenes = append(scenes, NewScene(scid, segs, opts))
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Start < all[j].Start })
	return all, scenes
}

func (r *Recording) segment(scid string, def partition.SegmentDef, opts ProcessOptions) *Segment {
	start := def.Start + int64(opts.LogTimeOffset)
	end := def.End + int64(opts.LogTimeOffset)
	if opts.PruneLength > 0 && start+int64(opts.PruneLength) < end {
		end = start + int64(opts.PruneLength)
	}
	seg := r.window(def.ID, scid, start, end)
	if seg != nil {
		seg.Valid = seg.ProportionValid >= opts.ValidThreshold
	}
	return seg
}

func (r *Recording) window(id, scid string, start, end int64) *Segment {
	lo := sort.Search(len(r.Samples), func(i int) bool { return r.Samples[i].Timestamp >= start })
	hi := sort.Search(len(r.Samples), func(i int) bool { return r.Samples[i].Timestamp >= end })
	if lo >= hi {
		return nil
	}
	seg := &Segment{ID: id, SceneID: scid, Start: start, End: end, Samples: r.Samples[lo:hi]}

	flo := sort.Search(len(r.Fixations), func(i int) bool { return r.Fixations[i].Timestamp >= start })
	fhi := sort.Search(len(r.Fixations), func(i int) bool { return r.Fixations[i].Timestamp >= end })
	seg.Fixations = r.Fixations[flo:fhi]

	slo := sort.Search(len(r.Saccades), func(i int) bool { return r.Saccades[i].Timestamp >= start })
	shi := sort.Search(len(r.Saccades), func(i int) bool { return r.Saccades[i].Timestamp >= end })
	seg.Saccades = r.Saccades[slo:shi]

	elo := sort.Search(len(r.Events), func(i int) bool { return r.Events[i].Timestamp >= start })
	ehi := sort.Search(len(r.Events), func(i int) bool { return r.Events[i].Timestamp >= end })
	seg.Events = r.Events[elo:ehi]

	valid := 0
	for _, s := range seg.Samples {
		if s.Valid {
			valid++
		}
	}
	seg.ProportionValid = float64(valid) / float64(len(seg.Samples))
	return seg
}

// splitAtLargestGap cuts a low-quality segment into the parts before and after
// its longest run of invalid samples. Parts without samples are dropped.
func (r *Recording) splitAtLargestGap(seg *Segment, opts ProcessOptions) []*Segment {
	bestLo, bestHi := -1, -1
	for i := 0; i < len(seg.Samples); {
		if seg.Samples[i].Valid {
			i++
			continue
		}
		j := i
		for j < len(seg.Samples) && !seg.Samples[j].Valid {
			j++
		}
		if j-i > bestHi-bestLo {
			bestLo, bestHi = i, j
		}
		i = j
	}
	if bestLo < 0 {
		return []*Segment{seg}
	}

	gapStart := seg.Samples[bestLo].Timestamp
	gapEnd := seg.End
	if bestHi < len(seg.Samples) {
		gapEnd = seg.Samples[bestHi].Timestamp
	}

	var out []*Segment
	for i, b := range [][2]int64{{seg.Start, gapStart}, {gapEnd, seg.End}} {
		part := r.window(seg.ID+"_"+string(rune('1'+i)), seg.SceneID, b[0], b[1])
		if part == nil {
			continue
		}
		part.Valid = part.ProportionValid >= opts.ValidThreshold
		out = append(out, part)
	}
	return out
}

// NewScene aggregates segs into a scene and computes its features. A scene is
// valid when any of its segments is, whatever RequireValidSegs says; that
// flag only selects the segments the features are computed from.
func NewScene(id string, segs []*Segment, opts ProcessOptions) *Scene {
	sc := &Scene{ID: id, Segments: segs}
	var valid []*Segment
	for _, s := range segs {
		if s.Valid {
			valid = append(valid, s)
		}
	}
	sc.Valid = len(valid) > 0
	used := segs
	if opts.RequireValidSegs {
		used = valid
	}
	sc.Features = features(used, opts.AOIs, opts.RestPupilSize)
	if opts.ExportPupilInfo {
		sc.PupilInfo = pupilInfo(used, opts.RestPupilSize)
	}
	return sc
}

func pupilInfo(segs []*Segment, rps *float64) []PupilRow {
	var out []PupilRow
	for _, seg := range segs {
		for _, s := range seg.Samples {
			if !s.Valid || s.Pupil <= 0 {
				continue
			}
			adj := s.Pupil
			if rps != nil {
				adj = s.Pupil - *rps
			}
			out = append(out, PupilRow{Timestamp: s.Timestamp, Pupil: s.Pupil, Adjusted: adj})
		}
	}
	return out
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
