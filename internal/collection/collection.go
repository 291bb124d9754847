// Package collection provides file-system script collections.
package collection

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vnpatch/internal/script"
)

// CodecFactory creates a fresh codec for a collection's format.
type CodecFactory func() (script.Codec, error)

// Folder is a directory tree of scripts sharing one extension. Script names
// are slash-separated paths relative to the root.
type Folder struct {
	root     string
	ext      string
	newCodec CodecFactory
}

// NewFolder opens an existing directory. ext filters Scripts; an empty ext
// lists every file.
func NewFolder(root, ext string, newCodec CodecFactory) (*Folder, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("collection: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("collection: %s is not a directory", root)
	}
	return &Folder{root: root, ext: ext, newCodec: newCodec}, nil
}

func (f *Folder) Name() string { return f.root }

// Extension returns the extension the folder lists.
func (f *Folder) Extension() string { return f.ext }

func (f *Folder) Path(name string) string {
	return filepath.Join(f.root, filepath.FromSlash(name))
}

// Scripts walks the tree and returns matching names in lexical order.
func (f *Folder) Scripts() ([]string, error) {
	var out []string
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if f.ext != "" && !strings.EqualFold(filepath.Ext(path), f.ext) {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collection: walk %s: %w", f.root, err)
	}
	sort.Strings(out)
	return out, nil
}

func (f *Folder) Exists(name string) (bool, error) {
	return fileExists(f.Path(name))
}

// Add creates an empty file, replacing any existing one.
func (f *Folder) Add(name string) error {
	return createEmpty(f.Path(name))
}

// AddCopy copies the file behind from into the folder.
func (f *Folder) AddCopy(name string, from script.Location) error {
	src, err := from.FilePath()
	if err != nil {
		return err
	}
	return copyFile(src, f.Path(name))
}

func (f *Folder) Codec() (script.Codec, error) { return f.newCodec() }

// File is a collection holding a single script. The script's name is the
// file's base name.
type File struct {
	path     string
	newCodec CodecFactory
}

// NewFile wraps one script path. The file need not exist yet.
func NewFile(path string, newCodec CodecFactory) *File {
	return &File{path: path, newCodec: newCodec}
}

func (f *File) Name() string { return f.path }

// ScriptName is the single script's name.
func (f *File) ScriptName() string { return filepath.Base(f.path) }

func (f *File) Path(string) string { return f.path }

func (f *File) Scripts() ([]string, error) {
	ok, err := f.Exists("")
	if err != nil || !ok {
		return nil, err
	}
	return []string{f.ScriptName()}, nil
}

func (f *File) Exists(string) (bool, error) { return fileExists(f.path) }

func (f *File) Add(string) error { return createEmpty(f.path) }

func (f *File) AddCopy(_ string, from script.Location) error {
	src, err := from.FilePath()
	if err != nil {
		return err
	}
	return copyFile(src, f.path)
}

func (f *File) Codec() (script.Codec, error) { return f.newCodec() }

// Open returns a Folder when path is a directory and a File otherwise.
func Open(path, ext string, newCodec CodecFactory) (script.Collection, error) {
	st, err := os.Stat(path)
	if err == nil && st.IsDir() {
		return NewFolder(path, ext, newCodec)
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("collection: %w", err)
	}
	return NewFile(path, newCodec), nil
}

func fileExists(path string) (bool, error) {
	st, err := os.Stat(path)
	if err == nil {
		return !st.IsDir(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("collection: %w", err)
}

func createEmpty(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("collection: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("collection: %w", err)
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("collection: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("collection: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("collection: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("collection: copy %s: %w", src, err)
	}
	return out.Close()
}
