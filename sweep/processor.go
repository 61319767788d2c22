package sweep

import (
	"context"
	"errors"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/ubc-iui/emdat-sweep/aoi"
	cfg "github.com/ubc-iui/emdat-sweep/config"
	"github.com/ubc-iui/emdat-sweep/metrics"
	"github.com/ubc-iui/emdat-sweep/recording"
)

// Processor is the worker body: it loads the recordings of one chunk and
// builds a participant for every (key, pid) of its space.
type Processor struct {
	fs      afero.Fs
	loader  recording.Loader
	tracker cfg.EyeTrackerType
	dataDir string
	aoiFile string
	space   Space
	opts    Options
	rps     cfg.RestPupilSizes
	log     *logrus.Entry
	metrics *metrics.Metrics
}

func NewProcessor(c *cfg.Root, fs afero.Fs, loader recording.Loader, space Space, rps cfg.RestPupilSizes, log *logrus.Entry, m *metrics.Metrics) *Processor {
	return &Processor{
		fs:      fs,
		loader:  loader,
		tracker: c.EyeTracker,
		dataDir: c.Paths.Data,
		aoiFile: c.Processing.AOIFile,
		space:   space,
		opts: Options{
			RequireValidSegs:        c.Processing.RequireValidSegs,
			AutoPartitionLowQuality: c.Processing.AutoPartitionLowQuality,
			ExportPupilInfo:         c.Processing.ExportPupilInfo,
			ValidThreshold:          c.Processing.ValidPropThreshold,
			Catalog:                 space.Catalog,
		},
		rps:     rps,
		log:     log,
		metrics: m,
	}
}

func (p *Processor) Space() Space { return p.space }

type loaded struct {
	job  Job
	rec  *recording.Recording
	aois []aoi.AOI
	// skip is the metrics reason recorded for every key when rec is nil.
	skip string
}

// Run processes one chunk. Every key of the space is present in the result,
// with an empty bucket when no participant qualified. Per-participant
// failures are logged and skipped; only a cancelled context or a bad file
// layout aborts the chunk.
func (p *Processor) Run(ctx context.Context, chunk []Job) (ResultMap, error) {
	recs := make([]loaded, 0, len(chunk))
	for _, job := range chunk {
		l, err := p.load(job)
		if err != nil {
			return nil, err
		}
		recs = append(recs, l)
	}

	mode := p.space.Mode.String()
	out := ResultMap{}
	for _, key := range p.space.Keys() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		bucket := []*Participant{}
		for _, l := range recs {
			log := p.log.WithFields(logrus.Fields{"pid": l.job.PID, "key": key.String()})
			if l.rec == nil {
				log.Debug("skipping participant without recording")
				p.metrics.ParticipantSkipped(mode, l.skip)
				continue
			}

			var rps *float64
			if v, ok := p.rps.Lookup(l.job.PID); ok {
				rps = &v
			}
			part, err := NewParticipant(p.fs, l.rec, l.job, key, l.aois, rps, p.opts)
			if err != nil {
				var missing *recording.MissingFileError
				if errors.As(err, &missing) {
					log.WithField("path", missing.Path).Warn("error reading participant files")
					p.metrics.ParticipantSkipped(mode, metrics.ReasonMissingFile)
				} else {
					log.WithError(err).Warn("participant failed")
					p.metrics.ParticipantSkipped(mode, metrics.ReasonError)
				}
				continue
			}
			if part.NumSegments == 0 {
				log.Debug("no segments found")
				p.metrics.ParticipantSkipped(mode, metrics.ReasonEmpty)
				continue
			}
			bucket = append(bucket, part)
			p.metrics.ParticipantBuilt(mode)
		}
		out[key] = bucket
	}
	return out, nil
}

func (p *Processor) load(job Job) (loaded, error) {
	l := loaded{job: job}
	files, err := recording.StreamFiles(p.tracker, p.dataDir, job.Recording, p.aoiFile)
	if err != nil {
		return l, err
	}
	log := p.log.WithFields(logrus.Fields{"pid": job.PID, "recording": job.Recording})
	log.WithFields(logrus.Fields{
		"segments": files.Segments,
		"samples":  files.All,
		"aoi":      files.AOI,
	}).Debug("reading input files")

	rec, err := p.loader.Load(files)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Warn("error reading participant files")
			l.skip = metrics.ReasonMissingFile
		} else {
			log.WithError(err).Error("recording could not be parsed")
			l.skip = metrics.ReasonError
		}
		return l, nil
	}
	rec.ID = job.Recording
	rec.Files = files
	l.rec = rec
	log.WithField("samples", len(rec.Samples)).Info("recording loaded")

	if files.AOI != "" {
		aois, err := aoi.Read(p.fs, files.AOI)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.WithField("path", files.AOI).Warn("aoi file missing, continuing without aois")
		case err != nil:
			log.WithError(err).Warn("aoi file unreadable, continuing without aois")
		default:
			l.aois = aois
		}
	}
	return l, nil
}
