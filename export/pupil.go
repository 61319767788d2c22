package export

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/ubc-iui/emdat-sweep/sweep"
)

// PupilDirFor is where the per-participant pupil series of key k are written.
func PupilDirFor(root string, k sweep.Key) string {
	return strings.TrimSuffix(PathFor(root, k), ".tsv") + "_pupil"
}

// WritePupilData writes the pupil rows kept on scene scid of p to
// dir/pupildata_<pid>_<scid>.tsv. It reports false, writing nothing, when p
// has no such scene.
func WritePupilData(fs afero.Fs, p *sweep.Participant, scid, dir string) (bool, error) {
	for _, sc := range p.Scenes {
		if sc.ID != scid {
			continue
		}
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return false, err
		}
		var b strings.Builder
		b.WriteString("timestamp\tpupil size\tadjusted pupil size\n")
		for _, r := range sc.PupilInfo {
			fmt.Fprintf(&b, "%d\t%s\t%s\n", r.Timestamp,
				strconv.FormatFloat(r.Pupil, 'g', -1, 64),
				strconv.FormatFloat(r.Adjusted, 'g', -1, 64))
		}
		path := filepath.Join(dir, fmt.Sprintf("pupildata_%d_%s.tsv", p.PID, scid))
		return true, afero.WriteFile(fs, path, []byte(b.String()), 0o644)
	}
	return false, nil
}
