package recording

import (
	"math"

	"github.com/ubc-iui/emdat-sweep/aoi"
)

const (
	FeatLength               = "length"
	FeatNumSegments          = "numsegments"
	FeatNumSamples           = "numsamples"
	FeatProportionValid      = "proportionvalid"
	FeatNumFixations         = "numfixations"
	FeatMeanFixationDuration = "meanfixationduration"
	FeatFixationRate         = "fixationrate"
	FeatNumSaccades          = "numsaccades"
	FeatNumEvents            = "numevents"
	FeatMeanPupilSize        = "meanpupilsize"
	FeatMeanPupilDilation    = "meanpupildilation"
)

func features(segs []*Segment, aois []aoi.AOI, rps *float64) map[string]float64 {
	var (
		length, fixDur, pupilSum float64
		samples, valid, pupils   int
		fixations, sacs, events  int
	)
	aoiHits := make([]int, len(aois))

	for _, seg := range segs {
		length += float64(seg.End - seg.Start)
		samples += len(seg.Samples)
		for _, s := range seg.Samples {
			if !s.Valid {
				continue
			}
			valid++
			if s.Pupil > 0 {
				pupilSum += s.Pupil
				pupils++
			}
		}
		fixations += len(seg.Fixations)
		for _, f := range seg.Fixations {
			fixDur += float64(f.Duration)
			for i, a := range aois {
				if a.ActiveAt(f.Timestamp) && a.Contains(f.X, f.Y) {
					aoiHits[i]++
				}
			}
		}
		sacs += len(seg.Saccades)
		events += len(seg.Events)
	}

	f := map[string]float64{
		FeatLength:               length,
		FeatNumSegments:          float64(len(segs)),
		FeatNumSamples:           float64(samples),
		FeatProportionValid:      mean(float64(valid), samples),
		FeatNumFixations:         float64(fixations),
		FeatMeanFixationDuration: mean(fixDur, fixations),
		FeatFixationRate:         math.NaN(),
		FeatNumSaccades:          float64(sacs),
		FeatNumEvents:            float64(events),
		FeatMeanPupilSize:        mean(pupilSum, pupils),
		FeatMeanPupilDilation:    math.NaN(),
	}
	if length > 0 {
		f[FeatFixationRate] = float64(fixations) / (length / 1000)
	}
	if rps != nil && pupils > 0 {
		f[FeatMeanPupilDilation] = pupilSum/float64(pupils) - *rps
	}
	for i, a := range aois {
		f[a.Name+"_numfixations"] = float64(aoiHits[i])
		f[a.Name+"_proportionnum"] = mean(float64(aoiHits[i]), fixations)
	}
	return f
}
