package cli

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	cfg "github.com/ubc-iui/emdat-sweep/config"
)

type options struct {
	configPath string
	fs         afero.Fs
}

func RootCmd() *cobra.Command {
	return newRootCmd(afero.NewOsFs())
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	o := &options{fs: fs}
	root := &cobra.Command{
		Use:           "emdat-sweep",
		Short:         "Parallel parameter sweeps over eye-tracking recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "path to config.yaml (default: config/$CONFIG_ENV/config.yaml)")

	root.AddCommand(
		runCmd(o),
		keysCmd(o),
	)
	return root
}

func (o *options) load() (*cfg.Root, error) {
	return cfg.Load(o.configPath)
}
