package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"vnpatch/internal/collection"
	"vnpatch/internal/format"
	"vnpatch/internal/script"
	"vnpatch/internal/store"
)

// tunnelFile is the default name of the encoding tunnel table.
const tunnelFile = "sjis_ext.bin"

// sniffSize covers every registered signature.
const sniffSize = 64

// isStore reports whether path names an SQLite text store.
func isStore(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

// scriptFormat resolves the binary format of the scripts at path: the
// configured name wins, otherwise the first script's signature decides.
func (a *app) scriptFormat(path string) (format.Format, error) {
	var (
		f   format.Format
		err error
	)
	if a.cfg.Format != "" {
		f, err = format.Lookup(a.cfg.Format)
	} else {
		f, err = detect(path)
	}
	if err != nil {
		return format.Format{}, err
	}
	if !f.Binary {
		return format.Format{}, fmt.Errorf("%w: %s is a text format", script.ErrUnsupportedFormat, f.Name)
	}
	return f, nil
}

func detect(path string) (format.Format, error) {
	file, err := firstFile(path)
	if err != nil {
		return format.Format{}, err
	}
	fh, err := os.Open(file)
	if err != nil {
		return format.Format{}, err
	}
	defer fh.Close()

	head := make([]byte, sniffSize)
	n, err := io.ReadFull(fh, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return format.Format{}, err
	}
	f, err := format.Detect(head[:n])
	if err != nil {
		return format.Format{}, fmt.Errorf("%s: %w", file, err)
	}
	return f, nil
}

// firstFile returns path itself or the first regular file below it,
// skipping tunnel tables.
func firstFile(path string) (string, error) {
	if !isDir(path) {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s", script.ErrNotFound, path)
		}
		return path, nil
	}
	var found string
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() == tunnelFile {
			return nil
		}
		found = p
		return fs.SkipAll
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("%w: no scripts in %s", script.ErrNotFound, path)
	}
	return found, nil
}

// openScripts opens a binary script collection. With mkdir set a missing
// directory is created first.
func (a *app) openScripts(path string, f format.Format, run *script.Run, mkdir bool) (script.Collection, error) {
	if mkdir {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
	}
	opts := a.cfg.DecodeOptions()
	return collection.Open(path, f.Extension, func() (script.Codec, error) {
		return f.New(run, opts), nil
	})
}

// openText opens the text side: an SQLite store for .db paths, else text
// files. A folder of scripts always pairs with a folder of text files,
// created when missing; a single script pairs with a file whose extension
// picks the text format. The returned func releases the collection.
func (a *app) openText(path string, run *script.Run, folder bool) (script.Collection, func() error, error) {
	noop := func() error { return nil }
	if isStore(path) {
		c, err := store.Open(path, a.cfg.RetryPolicy())
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}

	tf, err := format.Lookup("json")
	if ext := filepath.Ext(path); !folder && ext != "" && !isDir(path) {
		tf, err = format.ForExtension(ext)
	}
	if err != nil {
		return nil, nil, err
	}
	if folder && !isDir(path) {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, nil, fmt.Errorf("create %s: %w", path, err)
		}
	}
	c, err := collection.Open(path, tf.Extension, func() (script.Codec, error) {
		return tf.New(run, a.cfg.DecodeOptions()), nil
	})
	if err != nil {
		return nil, nil, err
	}
	return c, noop, nil
}

// tunnelPath picks the tunnel table: explicit argument, then configuration,
// then sjis_ext.bin beside the scripts at path.
func (a *app) tunnelPath(explicit, path string) string {
	switch {
	case explicit != "":
		return explicit
	case a.cfg.Tunnel != "":
		return a.cfg.Tunnel
	case isDir(path):
		return filepath.Join(path, tunnelFile)
	default:
		return filepath.Join(filepath.Dir(path), tunnelFile)
	}
}

// closeWith runs release and keeps the first error.
func closeWith(err *error, release func() error) {
	if cerr := release(); *err == nil {
		*err = cerr
	}
}
