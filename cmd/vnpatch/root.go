package main

import (
	"context"

	"github.com/spf13/cobra"

	"vnpatch/internal/config"
	"vnpatch/internal/logging"
	"vnpatch/internal/telemetry"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	cfg      config.Config
	shutdown func()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "vnpatch",
		Short: "Extract and reinsert text in visual novel scripts",
		Long: `vnpatch pulls character names, messages and choices out of compiled
visual novel scripts and writes translated text back into them.

Only the string pool and the address operands pointing into it are
rewritten; everything else in a patched script is byte-for-byte the
original.

Examples:
  vnpatch extract data/scripts text/             Extract every script to JSON
  vnpatch extract data/scripts text.db           Extract into an SQLite store
  vnpatch insert data/scripts text/ patched/     Patch every script
  vnpatch dump data/scripts/s01                  Print a disassembly listing
  vnpatch graph data/scripts --out graphs/       Write CFG and call graph DOT files`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			if err := logging.Setup(cmd.ErrOrStderr(), cfg.Log.Level); err != nil {
				return err
			}
			shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
				Endpoint: cfg.Trace.Endpoint,
				Version:  Version,
			})
			if err != nil {
				return err
			}
			a.shutdown = shutdown
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newExtractCmd(a),
		newInsertCmd(a),
		newDumpCmd(a),
		newGraphCmd(a),
		newVersionCmd(),
	)
	return root
}

// close flushes pending spans.
func (a *app) close() {
	if a.shutdown != nil {
		a.shutdown()
	}
}

// Execute runs the command line in os.Args.
func Execute() error {
	a := &app{}
	defer a.close()
	return newRootCmd(a).ExecuteContext(context.Background())
}
