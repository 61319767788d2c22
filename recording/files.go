package recording

import (
	"fmt"
	"path/filepath"

	cfg "github.com/ubc-iui/emdat-sweep/config"
)

// Files names the stream files of one recording. Several fields point at the
// same file for trackers that export everything in one table.
type Files struct {
	All       string
	Fixations string
	Saccades  string
	Events    string
	Segments  string
	AOI       string
}

// StreamFiles returns the file layout of recording rec under dataDir. aoiFile
// is used for trackers without a per-recording AOI file.
func StreamFiles(tracker cfg.EyeTrackerType, dataDir, rec, aoiFile string) (Files, error) {
	switch tracker {
	case cfg.TobiiV2:
		base := filepath.Join(dataDir, "P"+rec)
		return Files{
			All:       base + "-All-Data.tsv",
			Fixations: base + "-Fixation-Data.tsv",
			Events:    base + "-Event-Data.tsv",
			Segments:  base + ".seg",
			AOI:       aoiFile,
		}, nil
	case cfg.TobiiV3:
		all := filepath.Join(dataDir, fmt.Sprintf("MMD Study 1_Rec %s.tsv", rec))
		return Files{
			All:       all,
			Fixations: all,
			Saccades:  all,
			Events:    all,
			Segments:  filepath.Join(dataDir, "Segs", rec+".seg"),
			AOI:       filepath.Join(dataDir, "aois_refined", "dynamic_"+rec+".aoi"),
		}, nil
	case cfg.SMI:
		ev := filepath.Join(dataDir, fmt.Sprintf("SMI_Sample_%s_Events.txt", rec))
		return Files{
			All:       filepath.Join(dataDir, fmt.Sprintf("SMI_Sample_%s_Samples.txt", rec)),
			Fixations: ev,
			Saccades:  ev,
			Events:    ev,
			Segments:  filepath.Join(dataDir, fmt.Sprintf("SMI_Sample_%s.seg", rec)),
			AOI:       aoiFile,
		}, nil
	}
	return Files{}, fmt.Errorf("%w: %q", cfg.ErrUnknownEyeTracker, tracker)
}
