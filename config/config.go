package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSweepCeiling bounds the disjoint-window and cumulative sweep ranges (ms).
const DefaultSweepCeiling = 59001

const DefaultCumulativeStep = 1000

var ErrUnknownEyeTracker = errors.New("unknown eye tracker type")

var validate = validator.New()

type EyeTrackerType string

const (
	TobiiV2 EyeTrackerType = "TobiiV2"
	TobiiV3 EyeTrackerType = "TobiiV3"
	SMI     EyeTrackerType = "SMI"
)

func ParseEyeTrackerType(s string) (EyeTrackerType, error) {
	switch t := EyeTrackerType(s); t {
	case TobiiV2, TobiiV3, SMI:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEyeTracker, s)
}

type Verbosity string

const (
	Quiet   Verbosity = "QUIET"
	Normal  Verbosity = "NORMAL"
	Verbose Verbosity = "VERBOSE"
)

type Sweep struct {
	Mode           string `mapstructure:"mode" yaml:"mode"`
	Processes      int    `mapstructure:"processes" yaml:"processes" validate:"gte=0"`
	TimeWindows    []int  `mapstructure:"time_windows" yaml:"time_windows" validate:"dive,gt=0"`
	Ceiling        int    `mapstructure:"ceiling" yaml:"ceiling" validate:"gt=0"`
	CumulativeStep int    `mapstructure:"cumulative_step" yaml:"cumulative_step" validate:"gt=0"`
}

type Processing struct {
	RequireValidSegs        bool    `mapstructure:"require_valid_segs" yaml:"require_valid_segs"`
	AutoPartitionLowQuality bool    `mapstructure:"auto_partition_low_quality_segments" yaml:"auto_partition_low_quality_segments"`
	ExportPupilInfo         bool    `mapstructure:"export_pupil_info" yaml:"export_pupil_info"`
	ValidPropThreshold      float64 `mapstructure:"valid_prop_threshold" yaml:"valid_prop_threshold" validate:"gte=0,lte=1"`
	AOIFile                 string  `mapstructure:"aoi_file" yaml:"aoi_file"`
}

type Participants struct {
	Recordings     []string `mapstructure:"recordings" yaml:"recordings"`
	PIDs           []int    `mapstructure:"pids" yaml:"pids"`
	LogTimeOffsets []int    `mapstructure:"log_time_offsets" yaml:"log_time_offsets"`
}

type Export struct {
	IDPrefix       bool `mapstructure:"id_prefix" yaml:"id_prefix"`
	ValidityReport bool `mapstructure:"validity_report" yaml:"validity_report"`
	Manifest       bool `mapstructure:"manifest" yaml:"manifest"`
}

type Root struct {
	Pipeline struct {
		Name    string `mapstructure:"name" yaml:"name"`
		Version string `mapstructure:"version" yaml:"version"`
		LogLvl  string `mapstructure:"log_level" yaml:"log_level"`
	} `mapstructure:"pipeline" yaml:"pipeline"`
	EyeTracker   EyeTrackerType `mapstructure:"eye_tracker" yaml:"eye_tracker"`
	Verbose      Verbosity      `mapstructure:"verbose" yaml:"verbose"`
	MediaOffset  int            `mapstructure:"media_offset" yaml:"media_offset"`
	Features     []string       `mapstructure:"features" yaml:"features"`
	Sweep        Sweep          `mapstructure:"sweep" yaml:"sweep"`
	Processing   Processing     `mapstructure:"processing" yaml:"processing"`
	Participants Participants   `mapstructure:"participants" yaml:"participants"`
	Export       Export         `mapstructure:"export" yaml:"export"`
	Paths        struct {
		Data           string `mapstructure:"data" yaml:"data"`
		Outputs        string `mapstructure:"outputs" yaml:"outputs"`
		TaskCatalog    string `mapstructure:"task_catalog" yaml:"task_catalog"`
		RestPupilSizes string `mapstructure:"rest_pupil_sizes" yaml:"rest_pupil_sizes"`
	} `mapstructure:"paths" yaml:"paths"`
}

// DefaultFeatures is the feature list exported when none is configured.
var DefaultFeatures = []string{
	"length", "numsegments", "numsamples", "proportionvalid",
	"numfixations", "meanfixationduration", "fixationrate",
	"numsaccades", "numevents", "meanpupilsize", "meanpupildilation",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "emdat-sweep")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("eye_tracker", string(TobiiV2))
	v.SetDefault("verbose", string(Normal))
	v.SetDefault("features", DefaultFeatures)
	v.SetDefault("sweep.mode", "cumulative")
	v.SetDefault("sweep.processes", 1)
	v.SetDefault("sweep.ceiling", DefaultSweepCeiling)
	v.SetDefault("sweep.cumulative_step", DefaultCumulativeStep)
	v.SetDefault("processing.require_valid_segs", true)
	v.SetDefault("processing.valid_prop_threshold", 0.8)
	v.SetDefault("paths.data", "data")
	v.SetDefault("paths.outputs", "outputfolder")
	v.SetDefault("export.manifest", true)
}

// Load reads the configuration. With an empty path it looks for
// config/<CONFIG_ENV>/config.yaml and then src/shared/config.yaml, falling back
// to defaults when neither exists. EMDAT_* environment variables override file
// values; a .env file in the working directory is honored when present.
func Load(path string) (*Root, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("EMDAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join("config", env))
		v.AddConfigPath(filepath.Join("src", "shared"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the pipeline cannot run without: the eye tracker
// type, participant list lengths and the numeric ranges tagged on the structs.
func (c *Root) Validate() error {
	if _, err := ParseEyeTrackerType(string(c.EyeTracker)); err != nil {
		return err
	}
	switch c.Verbose {
	case Quiet, Normal, Verbose:
	case "":
		c.Verbose = Normal
	default:
		return fmt.Errorf("unknown verbosity %q", c.Verbose)
	}
	p := c.Participants
	if len(p.Recordings) != len(p.PIDs) {
		return fmt.Errorf("participants: %d recordings for %d pids", len(p.Recordings), len(p.PIDs))
	}
	if p.LogTimeOffsets != nil && len(p.LogTimeOffsets) != len(p.PIDs) {
		return fmt.Errorf("participants: %d log time offsets for %d pids", len(p.LogTimeOffsets), len(p.PIDs))
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
