package recording

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/ubc-iui/emdat-sweep/config"
)

func TestStreamFiles(t *testing.T) {
	f, err := StreamFiles(cfg.TobiiV2, "/data", "7", "/data/study.aoi")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "P7-All-Data.tsv"), f.All)
	assert.Equal(t, filepath.Join("/data", "P7.seg"), f.Segments)
	assert.Equal(t, "/data/study.aoi", f.AOI)
	assert.Empty(t, f.Saccades)

	f, err = StreamFiles(cfg.TobiiV3, "/data", "7", "")
	require.NoError(t, err)
	assert.Equal(t, f.All, f.Fixations)
	assert.Equal(t, filepath.Join("/data", "MMD Study 1_Rec 7.tsv"), f.All)
	assert.Equal(t, filepath.Join("/data", "Segs", "7.seg"), f.Segments)
	assert.Equal(t, filepath.Join("/data", "aois_refined", "dynamic_7.aoi"), f.AOI)

	f, err = StreamFiles(cfg.SMI, "/data", "7", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "SMI_Sample_7_Samples.txt"), f.All)
	assert.Equal(t, f.Events, f.Saccades)

	_, err = StreamFiles("EyeLink", "/data", "7", "")
	assert.ErrorIs(t, err, cfg.ErrUnknownEyeTracker)
}

func TestNewLoader_UnknownTracker(t *testing.T) {
	_, err := NewLoader(afero.NewMemMapFs(), "EyeLink", 0)
	assert.ErrorIs(t, err, cfg.ErrUnknownEyeTracker)
}

func TestLoad_TobiiV2(t *testing.T) {
	fs := afero.NewMemMapFs()
	files, err := StreamFiles(cfg.TobiiV2, "/d", "1", "")
	require.NoError(t, err)

	all := "Timestamp\tValidityLeft\tPupilLeft\tGazePointX\tGazePointY\n" +
		"120\t0\t3,1\t10\t20\n" +
		"100\t0\t3.0\t10\t20\n" +
		"140\t4\t-1\t\t\n"
	fix := "Timestamp\tDuration\tGazePointX\tGazePointY\n" +
		"100\t200\t10\t20\n"
	ev := "Timestamp\tEvent\n" +
		"# comment line\n" +
		"110\tLeftMouseClick\n" +
		"130\t\n"
	require.NoError(t, afero.WriteFile(fs, files.All, []byte(all), 0o644))
	require.NoError(t, afero.WriteFile(fs, files.Fixations, []byte(fix), 0o644))
	require.NoError(t, afero.WriteFile(fs, files.Events, []byte(ev), 0o644))

	l, err := NewLoader(fs, cfg.TobiiV2, 10)
	require.NoError(t, err)
	rec, err := l.Load(files)
	require.NoError(t, err)

	require.Len(t, rec.Samples, 3)
	assert.Equal(t, int64(90), rec.Samples[0].Timestamp, "sorted and shifted by media offset")
	assert.InDelta(t, 3.1, rec.Samples[1].Pupil, 1e-9)
	assert.True(t, rec.Samples[0].Valid)
	assert.False(t, rec.Samples[2].Valid)
	require.Len(t, rec.Fixations, 1)
	assert.Equal(t, int64(200), rec.Fixations[0].Duration)
	require.Len(t, rec.Events, 1)
	assert.Equal(t, "LeftMouseClick", rec.Events[0].Kind)
	assert.Empty(t, rec.Saccades)
}

func TestLoad_TobiiV3GroupsFixations(t *testing.T) {
	fs := afero.NewMemMapFs()
	files, err := StreamFiles(cfg.TobiiV3, "/d", "2", "")
	require.NoError(t, err)

	body := "RecordingTimestamp\tValidityLeft\tPupilLeft\tGazePointX (MCSpx)\tGazePointY (MCSpx)\tGazeEventType\tGazeEventDuration\tFixationIndex\tSaccadeIndex\tFixationPointX (MCSpx)\tFixationPointY (MCSpx)\tMouseEvent\n" +
		"0\t0\t3\t1\t1\tFixation\t50\t1\t\t5\t5\t\n" +
		"17\t0\t3\t1\t1\tFixation\t50\t1\t\t5\t5\t\n" +
		"33\t0\t3\t1\t1\tSaccade\t30\t\t1\t\t\tLeft\n" +
		"50\t0\t3\t1\t1\tFixation\t80\t2\t\t7\t7\t\n"
	require.NoError(t, afero.WriteFile(fs, files.All, []byte(body), 0o644))

	l, err := NewLoader(fs, cfg.TobiiV3, 0)
	require.NoError(t, err)
	rec, err := l.Load(files)
	require.NoError(t, err)

	assert.Len(t, rec.Samples, 4)
	require.Len(t, rec.Fixations, 2)
	assert.Equal(t, int64(80), rec.Fixations[1].Duration)
	require.Len(t, rec.Saccades, 1)
	assert.Equal(t, int64(33), rec.Saccades[0].Timestamp)
	require.Len(t, rec.Events, 1)
}

func TestLoad_SMIMicroseconds(t *testing.T) {
	fs := afero.NewMemMapFs()
	files, err := StreamFiles(cfg.SMI, "/d", "3", "")
	require.NoError(t, err)

	samples := "## SMI export\n" +
		"Time\tL Pupil Diameter [mm]\tL POR X [px]\tL POR Y [px]\n" +
		"1000000\t3.2\t1\t1\n" +
		"1004000\t0\t0\t0\n"
	events := "Event Type\tStart\tDuration\tLocation X\tLocation Y\tDescription\n" +
		"Fixation L\t1000000\t200000\t4\t4\t\n" +
		"Saccade L\t1200000\t40000\t\t\t\n" +
		"UserEvent L\t1300000\t0\t\t\t# Message: start\n"
	require.NoError(t, afero.WriteFile(fs, files.All, []byte(samples), 0o644))
	require.NoError(t, afero.WriteFile(fs, files.Events, []byte(events), 0o644))

	l, err := NewLoader(fs, cfg.SMI, 0)
	require.NoError(t, err)
	rec, err := l.Load(files)
	require.NoError(t, err)

	require.Len(t, rec.Samples, 2)
	assert.Equal(t, int64(1000), rec.Samples[0].Timestamp)
	assert.True(t, rec.Samples[0].Valid)
	assert.False(t, rec.Samples[1].Valid)
	require.Len(t, rec.Fixations, 1)
	assert.Equal(t, int64(200), rec.Fixations[0].Duration)
	assert.Len(t, rec.Saccades, 1)
	assert.Len(t, rec.Events, 1)
}

func TestLoad_MissingFile(t *testing.T) {
	files, err := StreamFiles(cfg.TobiiV2, "/d", "9", "")
	require.NoError(t, err)
	l, err := NewLoader(afero.NewMemMapFs(), cfg.TobiiV2, 0)
	require.NoError(t, err)

	_, err = l.Load(files)
	var missing *MissingFileError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, files.All, missing.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
