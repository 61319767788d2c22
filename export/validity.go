package export

import (
	"bufio"
	"fmt"
	"math"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/ubc-iui/emdat-sweep/recording"
	"github.com/ubc-iui/emdat-sweep/sweep"
)

// ValiditySummary is the spread of per-scene sample validity for one pid,
// over every scene except the whole-recording one.
type ValiditySummary struct {
	PID    int
	Mean   float64
	StdDev float64
	Count  int
}

// WriteValidityReport lists "pid<TAB>scid<TAB>proportion_valid" for every
// scene of every participant, followed by one summary line per participant.
// Participants are written in pid order.
func WriteValidityReport(fs afero.Fs, ps []*sweep.Participant, path string) ([]ValiditySummary, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := fs.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	var out []ValiditySummary
	for _, p := range byPID(ps) {
		for _, sc := range p.Scenes {
			fmt.Fprintf(w, "%d\t%s\t%g\n", p.PID, sc.ID, sc.Features[recording.FeatProportionValid])
		}
		out = append(out, summarize(p))
	}
	for _, s := range out {
		fmt.Fprintf(w, "%d MEAN=%g; STDDEV=%g; COUNT=%d\n", s.PID, s.Mean, s.StdDev, s.Count)
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return out, f.Close()
}

func summarize(p *sweep.Participant) ValiditySummary {
	s := ValiditySummary{PID: p.PID}
	if len(p.Scenes) < 2 {
		return s
	}
	var sum float64
	var vals []float64
	for _, sc := range p.Scenes[1:] {
		v := sc.Features[recording.FeatProportionValid]
		if math.IsNaN(v) {
			continue
		}
		vals = append(vals, v)
		sum += v
	}
	s.Count = len(vals)
	if s.Count == 0 {
		return s
	}
	s.Mean = sum / float64(s.Count)
	if s.Count > 1 {
		var ss float64
		for _, v := range vals {
			ss += (v - s.Mean) * (v - s.Mean)
		}
		s.StdDev = math.Sqrt(ss / float64(s.Count-1))
	}
	return s
}
