// fbxtool inspects binary FBX containers and the engine assets built from
// them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-fbx/internal/config"
	"github.com/Faultbox/midgard-fbx/internal/importer"
	"github.com/Faultbox/midgard-fbx/internal/logger"
)

// app carries the state shared by every command once flags are parsed.
type app struct {
	flags *config.Flags
	cfg   *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "fbxtool",
		Short:         "Binary FBX container utility",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.flags)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return logger.Init(cfg.Logging.Level, cfg.Logging.LogFile)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	a.flags = config.BindFlags(root.PersistentFlags())

	root.AddCommand(newInfoCmd(a))
	root.AddCommand(newDumpCmd(a))
	root.AddCommand(newRigCmd(a))
	root.AddCommand(newMeshCmd(a))
	root.AddCommand(newMaterialsCmd(a))
	root.AddCommand(newAnimCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newWatchCmd(a))
	root.AddCommand(newConfigCmd(a))
	return root
}

// load imports path with the loaded configuration.
func (a *app) load(ctx context.Context, path string) (*importer.Result, error) {
	return importer.Import(ctx, path, a.cfg, importer.WithLogger(logger.Named("importer")))
}
