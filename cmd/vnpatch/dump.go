package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"vnpatch/internal/disasm"
	"vnpatch/internal/output"
)

func newDumpCmd(a *app) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "dump <scripts>",
		Short: "Disassemble scripts with string and text annotations",
		Long: `Dump prints a listing of every decoded instruction. String operands are
annotated with their text and, when classified, the record kind.

With --out, one <name>.asm listing per script and an index.json summary
are written to the directory instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dump(cmd.OutOrStdout(), args[0], outDir)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "output directory for listings")
	return cmd
}

func (a *app) dump(w io.Writer, path, outDir string) error {
	scripts, err := a.decodeAll(path)
	if err != nil {
		return err
	}

	if outDir == "" {
		for _, d := range scripts {
			fmt.Fprintf(w, "; %s (version %s, code at 0x%x)\n", d.name, d.Header.Version.Original(), d.CodeOffset)
			io.WriteString(w, disasm.Format(d.Insts, d.CodeOffset, annotator(d)))
		}
		return nil
	}

	index := make([]summary, 0, len(scripts))
	for _, d := range scripts {
		asmPath := filepath.Join(outDir, filepath.FromSlash(fileName(d.name, ".asm")))
		if err := output.WriteASM(asmPath, d.Insts, d.CodeOffset, annotator(d)); err != nil {
			return fmt.Errorf("write %s: %w", asmPath, err)
		}
		index = append(index, d.summary())
	}
	indexPath := filepath.Join(outDir, "index.json")
	if err := output.WriteJSON(indexPath, index); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %d listings to %s\n", len(scripts), outDir)
	return nil
}

func annotator(d decoded) disasm.Annotator {
	return disasm.Chain(disasm.RefAnnotator(d.Refs), disasm.StringAnnotator(d.Resolver()))
}
