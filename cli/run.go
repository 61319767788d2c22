package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfg "github.com/ubc-iui/emdat-sweep/config"
	"github.com/ubc-iui/emdat-sweep/logger"
	"github.com/ubc-iui/emdat-sweep/metrics"
	"github.com/ubc-iui/emdat-sweep/orchestrator"
)

type runFlags struct {
	mode        string
	processes   int
	windows     []int
	metricsFile string
}

func runCmd(o *options) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sweep every configured participant and export one table per sweep key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.load()
			if err != nil {
				return err
			}
			f.apply(cmd, c)
			if err := c.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return o.run(ctx, c, f.metricsFile)
		},
	}
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "sweep mode: window, cumulative or tasks")
	cmd.Flags().IntVarP(&f.processes, "processes", "p", 0, "number of parallel workers")
	cmd.Flags().IntSliceVarP(&f.windows, "windows", "w", nil, "disjoint window sizes in ms")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "write prometheus metrics to this textfile when done")
	return cmd
}

// apply lets explicitly set flags override the loaded configuration.
func (f *runFlags) apply(cmd *cobra.Command, c *cfg.Root) {
	if cmd.Flags().Changed("mode") {
		c.Sweep.Mode = f.mode
	}
	if cmd.Flags().Changed("processes") {
		c.Sweep.Processes = f.processes
	}
	if cmd.Flags().Changed("windows") {
		c.Sweep.TimeWindows = f.windows
	}
}

func (o *options) run(ctx context.Context, c *cfg.Root, metricsFile string) error {
	log := logger.New(c.Pipeline.LogLvl, c.Verbose)
	m := metrics.New()

	p, err := orchestrator.NewPipeline(c, o.fs, log, m)
	if err != nil {
		return err
	}
	out, err := p.Run(ctx, orchestrator.InputFromConfig(c))

	if metricsFile != "" {
		if werr := m.WriteTextfile(metricsFile); werr != nil {
			log.WithError(werr).Warn("could not write metrics")
		}
	}
	if err != nil {
		return err
	}

	fields := logrus.Fields{
		"run_id":       out.RunID.String(),
		"participants": out.Results.Count(),
		"failures":     len(out.Failures),
	}
	if out.Manifest != nil {
		fields["tables"] = len(out.Manifest.Files)
	}
	log.WithFields(fields).Info("sweep finished")
	if len(out.Failures) > 0 {
		return fmt.Errorf("%d of %d workers failed", len(out.Failures), out.Workers)
	}
	return nil
}
