package main

import (
	"context"
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"vnpatch/internal/pipeline"
	"vnpatch/internal/script"
)

func newExtractCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "extract <scripts> <text>",
		Aliases: []string{"extractlocal"},
		Short:   "Extract text from a script or a folder of scripts",
		Long: `Extract writes one text entry per script that contains text. <text> is
a folder of JSON files, a single .json file for a single script, or an
SQLite store (.db, .sqlite).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.extract(cmd.Context(), cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func (a *app) extract(ctx context.Context, w io.Writer, inPath, textPath string) (err error) {
	f, err := a.scriptFormat(inPath)
	if err != nil {
		return err
	}
	run, err := script.OpenRun(a.tunnelPath("", inPath), a.cfg.Names)
	if err != nil {
		return err
	}
	input, err := a.openScripts(inPath, f, run, false)
	if err != nil {
		return err
	}
	text, release, err := a.openText(textPath, run, isDir(inPath))
	if err != nil {
		return err
	}
	defer closeWith(&err, release)

	log.WithField("format", f.Name).Debugf("extracting %s to %s", inPath, textPath)
	ex, err := pipeline.NewExtractor(run, input, text, w)
	if err != nil {
		return err
	}
	if err := ex.ExtractAll(ctx); err != nil {
		return err
	}
	fmt.Fprintf(w, "Lines: %d\nCharacters: %d\n", ex.TotalLines, ex.TotalCharacters)
	return run.Flush()
}
