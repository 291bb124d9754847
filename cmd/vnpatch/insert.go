package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"vnpatch/internal/pipeline"
	"vnpatch/internal/script"
)

func newInsertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "insert <scripts> <text> <output> [sjis_ext.bin]",
		Aliases: []string{"insertlocal"},
		Short:   "Write translated text back into scripts",
		Long: `Insert patches every script that has a text entry and copies the rest
to <output> unchanged. Characters Shift_JIS cannot encode are tunnelled
through a table saved as sjis_ext.bin next to the output unless a path
is given.`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tunnel string
			if len(args) == 4 {
				tunnel = args[3]
			}
			return a.insert(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], args[2], tunnel)
		},
	}
}

func (a *app) insert(ctx context.Context, w io.Writer, inPath, textPath, outPath, tunnel string) (err error) {
	if _, err := os.Stat(textPath); err != nil {
		return fmt.Errorf("%w: %s", script.ErrNotFound, textPath)
	}
	f, err := a.scriptFormat(inPath)
	if err != nil {
		return err
	}
	folder := isDir(inPath)
	if folder {
		if err := os.MkdirAll(outPath, 0755); err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
	}
	run, err := script.OpenRun(a.tunnelPath(tunnel, outPath), a.cfg.Names)
	if err != nil {
		return err
	}
	input, err := a.openScripts(inPath, f, run, false)
	if err != nil {
		return err
	}
	output, err := a.openScripts(outPath, f, run, false)
	if err != nil {
		return err
	}
	text, release, err := a.openText(textPath, run, folder)
	if err != nil {
		return err
	}
	defer closeWith(&err, release)

	log.WithField("format", f.Name).Debugf("inserting %s into %s", textPath, outPath)
	ins, err := pipeline.NewInserter(run, input, text, output, w)
	if err != nil {
		return err
	}
	if err := ins.InsertAll(ctx); err != nil {
		return err
	}
	printStatistics(w, ins.Statistics())
	return run.Flush()
}

func printStatistics(w io.Writer, s *script.Statistics) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "Translated: %d/%d (%.2f%%)\n", s.Translated, s.Total, s.Percent(s.Translated))
	fmt.Fprintf(w, "Checked:    %d/%d (%.2f%%)\n", s.Checked, s.Total, s.Percent(s.Checked))
	fmt.Fprintf(w, "Edited:     %d/%d (%.2f%%)\n", s.Edited, s.Total, s.Percent(s.Edited))
}
