package partition

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// SegmentDef is one labeled [Start, End) span (ms) from a .seg file.
type SegmentDef struct {
	ID    string
	Start int64
	End   int64
}

// SceneList maps a scene id to the segments that belong to it, in file order.
type SceneList map[string][]SegmentDef

// IDs returns the scene ids in lexical order.
func (s SceneList) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count is the total number of segments across scenes.
func (s SceneList) Count() int {
	n := 0
	for _, segs := range s {
		n += len(segs)
	}
	return n
}

// ReadSegs parses a .seg file: one "scid<TAB>segid<TAB>start<TAB>end" per line.
func ReadSegs(fs afero.Fs, path string) (SceneList, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := SceneList{}
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			return nil, fmt.Errorf("%s:%d: want 4 fields, got %d", path, lineNo, len(fields))
		}
		start, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: start: %w", path, lineNo, err)
		}
		end, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: end: %w", path, lineNo, err)
		}
		scid := strings.TrimSpace(fields[0])
		out[scid] = append(out[scid], SegmentDef{ID: strings.TrimSpace(fields[1]), Start: start, End: end})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Partition reads segfile and bounds every segment by the sweep parameters.
// With disjoint set the segment start moves forward by padding; a positive
// prune keeps at most prune ms from the (possibly moved) start. A prune past
// the segment end leaves the end unchanged. Segments left empty are dropped.
func Partition(fs afero.Fs, segfile string, prune int, disjoint bool, padding int) (SceneList, int, error) {
	raw, err := ReadSegs(fs, segfile)
	if err != nil {
		return nil, 0, err
	}
	out := SceneList{}
	for scid, segs := range raw {
		for _, s := range segs {
			b, ok := Bound(s, prune, disjoint, padding)
			if !ok {
				continue
			}
			out[scid] = append(out[scid], b)
		}
	}
	return out, out.Count(), nil
}

// Bound applies the window to a single segment.
func Bound(s SegmentDef, prune int, disjoint bool, padding int) (SegmentDef, bool) {
	start, end := s.Start, s.End
	if disjoint {
		start += int64(padding)
	}
	if prune > 0 && start+int64(prune) < end {
		end = start + int64(prune)
	}
	if start >= end {
		return SegmentDef{}, false
	}
	return SegmentDef{ID: s.ID, Start: start, End: end}, true
}

// SelectTasks keeps the first n catalog entries, in catalog order, that exist
// in scenes. Entries absent from scenes are passed over, so fewer than n tasks
// are returned when the recording lacks some.
func SelectTasks(scenes SceneList, catalog []string, n int) (SceneList, int) {
	out := SceneList{}
	for _, task := range catalog {
		if len(out) >= n {
			break
		}
		segs, ok := scenes[task]
		if !ok {
			continue
		}
		out[task] = segs
	}
	return out, len(out)
}
