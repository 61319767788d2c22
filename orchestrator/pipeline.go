package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	cfg "github.com/ubc-iui/emdat-sweep/config"
	"github.com/ubc-iui/emdat-sweep/export"
	"github.com/ubc-iui/emdat-sweep/metrics"
	"github.com/ubc-iui/emdat-sweep/recording"
	"github.com/ubc-iui/emdat-sweep/sweep"
)

// Worker is the body run once per chunk.
type Worker interface {
	Run(ctx context.Context, chunk []sweep.Job) (sweep.ResultMap, error)
}

type Pipeline struct {
	cfg       *cfg.Root
	space     sweep.Space
	processes int
	worker    Worker
	exporter  *export.Exporter
	log       *logrus.Logger
	metrics   *metrics.Metrics
}

// NewPipeline wires the processor, loader and exporter for c. It fails when
// the eye tracker type is unknown or the sweep space is unusable.
func NewPipeline(c *cfg.Root, fs afero.Fs, log *logrus.Logger, m *metrics.Metrics) (*Pipeline, error) {
	loader, err := recording.NewLoader(fs, c.EyeTracker, c.MediaOffset)
	if err != nil {
		return nil, err
	}
	space, err := SpaceFromConfig(fs, c)
	if err != nil {
		return nil, err
	}
	rps, err := cfg.LoadRestPupilSizes(fs, c.Paths.RestPupilSizes)
	if err != nil {
		return nil, err
	}
	entry := log.WithField("mode", space.Mode.String())
	proc := sweep.NewProcessor(c, fs, loader, space, rps, entry, m)
	return &Pipeline{
		cfg:       c,
		space:     space,
		processes: c.Sweep.Processes,
		worker:    proc,
		exporter:  export.NewExporter(c, fs, entry, m),
		log:       log,
		metrics:   m,
	}, nil
}

// NewPipelineWithWorker builds a pipeline around an arbitrary worker. The
// exporter may be nil when only Sweep is used.
func NewPipelineWithWorker(c *cfg.Root, space sweep.Space, w Worker, e *export.Exporter, log *logrus.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{cfg: c, space: space, processes: c.Sweep.Processes, worker: w, exporter: e, log: log, metrics: m}
}

// SpaceFromConfig builds the sweep space selected by c.Sweep.Mode. The task
// catalog, when configured, is read from fs.
func SpaceFromConfig(fs afero.Fs, c *cfg.Root) (sweep.Space, error) {
	mode, err := sweep.ParseMode(c.Sweep.Mode)
	if err != nil {
		return sweep.Space{}, err
	}
	space := sweep.Space{
		Mode:    mode,
		Windows: c.Sweep.TimeWindows,
		Ceiling: c.Sweep.Ceiling,
		Step:    c.Sweep.CumulativeStep,
	}
	if mode == sweep.ModeTasks {
		if space.Catalog, err = cfg.LoadTaskCatalog(fs, c.Paths.TaskCatalog); err != nil {
			return sweep.Space{}, err
		}
	}
	if err := space.Validate(); err != nil {
		return sweep.Space{}, err
	}
	return space, nil
}

func InputFromConfig(c *cfg.Root) Input {
	return Input{
		Recordings: c.Participants.Recordings,
		PIDs:       c.Participants.PIDs,
		Offsets:    c.Participants.LogTimeOffsets,
	}
}

func (p *Pipeline) Space() sweep.Space { return p.space }

// Run sweeps the population and exports one table per sweep key.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Outcome, error) {
	out, err := p.Sweep(ctx, in)
	if err != nil {
		return out, err
	}
	if p.exporter == nil {
		return out, nil
	}
	out.Manifest, err = p.exporter.Export(out.RunID, p.space, out.Results, out.FailureMessages())
	if err != nil {
		return out, fmt.Errorf("export: %w", err)
	}
	return out, nil
}

// Sweep splits the population into chunks, runs one worker per chunk and
// collects exactly one result per worker. Failed chunks do not stop the
// others; they are reported in Outcome.Failures. An error is returned only
// for malformed input or when no chunk succeeded.
func (p *Pipeline) Sweep(ctx context.Context, in Input) (*Outcome, error) {
	jobs, err := in.jobs()
	if err != nil {
		return nil, err
	}

	n := p.processes
	if n < 1 {
		n = 1
	}
	if n > len(jobs) {
		n = len(jobs)
	}
	chunks := Chunks(jobs, n)

	out := &Outcome{RunID: uuid.New(), Space: p.space, Workers: len(chunks)}
	log := p.log.WithFields(logrus.Fields{"run_id": out.RunID.String(), "mode": p.space.Mode.String()})
	log.WithFields(logrus.Fields{"participants": len(jobs), "workers": len(chunks)}).Info("sweep starting")

	results := make(chan ChunkResult, len(chunks))
	var g errgroup.Group
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			results <- p.runChunk(ctx, i, chunk, log)
			return nil
		})
	}

	maps := make([]sweep.ResultMap, 0, len(chunks))
	for range chunks {
		r := <-results
		if !r.OK() {
			log.WithFields(logrus.Fields{"chunk": r.ChunkID, "pids": r.PIDs}).WithError(r.Err).Error("worker failed")
			p.metrics.ChunkFailed()
			out.Failures = append(out.Failures, r)
			continue
		}
		maps = append(maps, r.Results)
	}
	_ = g.Wait()

	out.Results = sweep.Merge(maps...)
	log.WithFields(logrus.Fields{
		"keys":         len(out.Results),
		"participants": out.Results.Count(),
		"failures":     len(out.Failures),
	}).Info("sweep collected")

	if len(chunks) > 0 && len(out.Failures) == len(chunks) {
		errs := make([]error, 0, len(out.Failures))
		for _, f := range out.Failures {
			errs = append(errs, fmt.Errorf("chunk %d: %w", f.ChunkID, f.Err))
		}
		return out, fmt.Errorf("every worker failed: %w", errors.Join(errs...))
	}
	return out, nil
}

func (p *Pipeline) runChunk(ctx context.Context, id int, chunk []sweep.Job, log *logrus.Entry) (res ChunkResult) {
	res.ChunkID = id
	for _, j := range chunk {
		res.PIDs = append(res.PIDs, j.PID)
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Results = nil
			res.Err = fmt.Errorf("worker panic: %v\n%s", r, debug.Stack())
		}
		res.Duration = time.Since(start)
		p.metrics.ObserveChunk(res.Duration)
	}()

	log.WithFields(logrus.Fields{"chunk": id, "pids": res.PIDs}).Debug("worker starting")
	res.Results, res.Err = p.worker.Run(ctx, chunk)
	return res
}
