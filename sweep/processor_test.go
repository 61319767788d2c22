package sweep

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/ubc-iui/emdat-sweep/config"
	"github.com/ubc-iui/emdat-sweep/metrics"
	"github.com/ubc-iui/emdat-sweep/recording"
)

type stubLoader map[string]*recording.Recording

func (s stubLoader) Load(f recording.Files) (*recording.Recording, error) {
	r, ok := s[f.All]
	if !ok {
		return nil, &recording.MissingFileError{Path: f.All}
	}
	cp := *r
	return &cp, nil
}

func span(ms int64) *recording.Recording {
	rec := &recording.Recording{}
	for ts := int64(0); ts < ms; ts += 10 {
		rec.Samples = append(rec.Samples, recording.Sample{Timestamp: ts, Valid: true, Pupil: 3})
	}
	for ts := int64(0); ts < ms; ts += 1000 {
		rec.Fixations = append(rec.Fixations, recording.Fixation{Timestamp: ts, Duration: 300})
	}
	return rec
}

type fixture struct {
	fs     afero.Fs
	loader stubLoader
	conf   *cfg.Root
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := &cfg.Root{EyeTracker: cfg.TobiiV2, Verbose: cfg.Quiet}
	c.Paths.Data = "/data"
	c.Processing.RequireValidSegs = true
	c.Processing.ValidPropThreshold = 0.8
	return &fixture{fs: afero.NewMemMapFs(), loader: stubLoader{}, conf: c}
}

// add registers recording rec with a .seg file body.
func (f *fixture) add(t *testing.T, rec string, r *recording.Recording, seg string) {
	t.Helper()
	files, err := recording.StreamFiles(cfg.TobiiV2, "/data", rec, "")
	require.NoError(t, err)
	if r != nil {
		f.loader[files.All] = r
	}
	if seg != "" {
		require.NoError(t, afero.WriteFile(f.fs, files.Segments, []byte(seg), 0o644))
	}
}

func (f *fixture) processor(space Space, rps cfg.RestPupilSizes) *Processor {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewProcessor(f.conf, f.fs, f.loader, space, rps, logrus.NewEntry(l), nil)
}

func cumulative() Space {
	return Space{Mode: ModeCumulative, Ceiling: cfg.DefaultSweepCeiling, Step: cfg.DefaultCumulativeStep}
}

func TestProcessor_CumulativePruneBeyondSpan(t *testing.T) {
	f := newFixture(t)
	f.add(t, "1", span(10000), "3\t3_a\t0\t10000\n")

	// a rest pupil size keeps every feature finite so whole feature maps compare equal
	rps := cfg.RestPupilSizes{"P1": 2.0}
	out, err := f.processor(cumulative(), rps).Run(context.Background(), []Job{{Recording: "1", PID: 1}})
	require.NoError(t, err)
	require.Len(t, out, 58)

	for i := 1; i <= 58; i++ {
		ps := out[Prune(i, 1000)]
		require.Len(t, ps, 1, "bucket %d", i)
		whole := ps[0].WholeScene()
		require.NotNil(t, whole)
		assert.Equal(t, "1_allsc", whole.ID)
		want := math.Min(float64(1000*i), 10000)
		assert.Equal(t, want, whole.Features[recording.FeatLength], "prune %d clipped to the recording span", 1000*i)
	}
	assert.Equal(t,
		out[Prune(10, 1000)][0].WholeScene().Features,
		out[Prune(40, 1000)][0].WholeScene().Features,
		"prune lengths past the span pass the full segment through")
}

func TestProcessor_DisjointWindows(t *testing.T) {
	f := newFixture(t)
	f.add(t, "1", span(10000), "3\t3_a\t0\t10000\n")
	space := Space{Mode: ModeWindow, Windows: []int{3000}, Ceiling: cfg.DefaultSweepCeiling}

	out, err := f.processor(space, nil).Run(context.Background(), []Job{{Recording: "1", PID: 1}})
	require.NoError(t, err)
	require.Len(t, out, cfg.DefaultSweepCeiling/3000)

	for i := 0; i < cfg.DefaultSweepCeiling/3000; i++ {
		ps := out[Window(3000, i)]
		if i <= 3 {
			require.Len(t, ps, 1, "offset %d", i)
			seg := ps[0].Segments[0]
			assert.Equal(t, int64(3000*i), seg.Start)
		} else {
			assert.Empty(t, ps, "offset %d starts past the segment", i)
		}
	}
	assert.Equal(t, int64(10000), out[Window(3000, 3)][0].Segments[0].End)
}

func TestProcessor_EmptyRecordingYieldsEmptyBuckets(t *testing.T) {
	f := newFixture(t)
	f.add(t, "1", &recording.Recording{}, "3\t3_a\t0\t10000\n")
	space := Space{Mode: ModeWindow, Windows: []int{1000}, Ceiling: cfg.DefaultSweepCeiling}

	out, err := f.processor(space, nil).Run(context.Background(), []Job{{Recording: "1", PID: 1}})
	require.NoError(t, err)
	assert.Len(t, out, 59)
	assert.Equal(t, 0, out.Count())
}

func TestProcessor_TaskSelection(t *testing.T) {
	f := newFixture(t)
	seg := "3\t3_a\t0\t1000\n" +
		"9\t9_a\t2000\t3000\n" +
		"9\t9_b\t4000\t5000\n" +
		"99\t99_a\t6000\t7000\n"
	f.add(t, "1", span(10000), seg)
	space := Space{Mode: ModeTasks, Ceiling: cfg.DefaultSweepCeiling, Catalog: cfg.DefaultTaskCatalog}

	out, err := f.processor(space, nil).Run(context.Background(), []Job{{Recording: "1", PID: 1}})
	require.NoError(t, err)
	require.Len(t, out, 15)

	p1 := out[TaskCount(1)][0]
	assert.Equal(t, 1, p1.SelectedTasks)
	assert.Equal(t, 1, p1.NumSegments)
	require.Len(t, p1.Scenes, 1, "only the whole-recording scene")

	for i := 2; i <= 15; i++ {
		p := out[TaskCount(i)][0]
		assert.Equal(t, 2, p.SelectedTasks, "recording holds only two catalog tasks (bucket %d)", i)
		assert.Equal(t, 3, p.NumSegments)
	}
}

func TestProcessor_MissingFilesAreSkipped(t *testing.T) {
	f := newFixture(t)
	f.add(t, "1", span(5000), "3\t3_a\t0\t5000\n")
	f.add(t, "2", nil, "3\t3_a\t0\t5000\n") // no recording
	f.add(t, "3", span(5000), "")           // no segment file
	space := Space{Mode: ModeCumulative, Ceiling: 3000, Step: 1000}

	jobs := []Job{{Recording: "1", PID: 1}, {Recording: "2", PID: 2}, {Recording: "3", PID: 3}}
	out, err := f.processor(space, nil).Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, ps := range out {
		require.Len(t, ps, 1)
		assert.Equal(t, 1, ps[0].PID)
	}
}

func TestProcessor_MissingAOIFileKeepsParticipant(t *testing.T) {
	f := newFixture(t)
	f.conf.Processing.AOIFile = "/data/missing.aoi"
	f.add(t, "1", span(5000), "3\t3_a\t0\t5000\n")
	space := Space{Mode: ModeCumulative, Ceiling: 2000, Step: 1000}

	out, err := f.processor(space, nil).Run(context.Background(), []Job{{Recording: "1", PID: 1}})
	require.NoError(t, err)
	require.Len(t, out[Prune(1, 1000)], 1)
	_, hasAOI := out[Prune(1, 1000)][0].WholeScene().Features["Graph_numfixations"]
	assert.False(t, hasAOI)
}

func TestProcessor_AOIFeatures(t *testing.T) {
	f := newFixture(t)
	f.conf.Processing.AOIFile = "/data/study.aoi"
	require.NoError(t, afero.WriteFile(f.fs, "/data/study.aoi", []byte("Graph\t-1,-1\t1,-1\t1,1\t-1,1\n"), 0o644))
	f.add(t, "1", span(5000), "3\t3_a\t0\t5000\n")
	space := Space{Mode: ModeCumulative, Ceiling: 2000, Step: 1000}

	out, err := f.processor(space, nil).Run(context.Background(), []Job{{Recording: "1", PID: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, out[Prune(1, 1000)][0].WholeScene().Features["Graph_numfixations"])
}

func TestProcessor_RestPupilSizeAndOffset(t *testing.T) {
	f := newFixture(t)
	f.add(t, "1", span(5000), "3\t3_a\t0\t2000\n")
	space := Space{Mode: ModeCumulative, Ceiling: 2000, Step: 1000}
	rps := cfg.RestPupilSizes{"P7": 2.0}

	out, err := f.processor(space, rps).Run(context.Background(), []Job{{Recording: "1", PID: 7, Offset: 500}})
	require.NoError(t, err)
	p := out[Prune(1, 1000)][0]
	assert.Equal(t, int64(500), p.Segments[0].Start)
	assert.InDelta(t, 1.0, p.WholeScene().Features[recording.FeatMeanPupilDilation], 1e-9)
}

func TestProcessor_CancelledContext(t *testing.T) {
	f := newFixture(t)
	f.add(t, "1", span(5000), "3\t3_a\t0\t5000\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.processor(cumulative(), nil).Run(ctx, []Job{{Recording: "1", PID: 1}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessor_UnknownTrackerFailsChunk(t *testing.T) {
	f := newFixture(t)
	f.conf.EyeTracker = "EyeLink"
	_, err := f.processor(cumulative(), nil).Run(context.Background(), []Job{{Recording: "1", PID: 1}})
	assert.ErrorIs(t, err, cfg.ErrUnknownEyeTracker)
}

// brokenLoader fails with a parse error for the listed sample files.
type brokenLoader struct {
	stubLoader
	broken map[string]bool
}

func (b brokenLoader) Load(f recording.Files) (*recording.Recording, error) {
	if b.broken[f.All] {
		return nil, errors.New(`missing column "Timestamp"`)
	}
	return b.stubLoader.Load(f)
}

func TestProcessor_SkipReasons(t *testing.T) {
	f := newFixture(t)
	f.add(t, "1", span(5000), "3\t3_a\t0\t5000\n")
	f.add(t, "2", nil, "3\t3_a\t0\t5000\n")
	f.add(t, "3", span(5000), "3\t3_a\t0\t5000\n")
	files, err := recording.StreamFiles(cfg.TobiiV2, "/data", "3", "")
	require.NoError(t, err)
	loader := brokenLoader{stubLoader: f.loader, broken: map[string]bool{files.All: true}}

	m := metrics.New()
	l := logrus.New()
	l.SetOutput(io.Discard)
	space := Space{Mode: ModeCumulative, Ceiling: 3000, Step: 1000}
	p := NewProcessor(f.conf, f.fs, loader, space, nil, logrus.NewEntry(l), m)

	jobs := []Job{{Recording: "1", PID: 1}, {Recording: "2", PID: 2}, {Recording: "3", PID: 3}}
	out, err := p.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count())

	want := `
# HELP emdat_participants_skipped_total Participant results dropped from a sweep bucket
# TYPE emdat_participants_skipped_total counter
emdat_participants_skipped_total{mode="cumulative",reason="error"} 2
emdat_participants_skipped_total{mode="cumulative",reason="missing_file"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(want), "emdat_participants_skipped_total"))
}
