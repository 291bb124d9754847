// Package output writes listings, graphs and JSON documents to files.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"vnpatch/internal/disasm"
)

// WriteJSON writes v as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes the file at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("output: decode %s: %w", path, err)
	}
	return nil
}

// WriteASM writes a disassembly listing to path.
func WriteASM(path string, insts []disasm.Inst, codeOffset int, annotators ...disasm.Annotator) error {
	return WriteText(path, disasm.Format(insts, codeOffset, annotators...))
}

// WriteText writes text to path, creating parent directories.
func WriteText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(text), 0644)
}
