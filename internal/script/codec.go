package script

import (
	"fmt"
	"path/filepath"
)

// Codec reads and writes one script format. A codec instance holds the state
// of the most recent Load so WritePatched can rebuild from it; instances are
// used by one goroutine at a time.
type Codec interface {
	// Extension is the file extension including the dot. An empty
	// extension means the whole file is one script with no suffix.
	Extension() string
	Load(loc Location) error
	Records() []Record
	WritePatched(records []Record, loc Location) error
}

// StatisticsProvider is implemented by text codecs that track translation
// progress while loading.
type StatisticsProvider interface {
	Statistics() *Statistics
}

// Collection is a named set of scripts.
type Collection interface {
	Name() string
	Scripts() ([]string, error)
	Exists(name string) (bool, error)
	// Add creates or truncates an entry.
	Add(name string) error
	// AddCopy copies the script at from into this collection under name.
	AddCopy(name string, from Location) error
	Codec() (Codec, error)
}

// FileBacked is implemented by collections that keep scripts as files.
type FileBacked interface {
	Path(name string) string
}

// Location addresses one script inside a collection.
type Location struct {
	Collection Collection
	Name       string
}

func (l Location) String() string {
	if l.Collection == nil {
		return l.Name
	}
	return l.Collection.Name() + ":" + l.Name
}

// FilePath returns the on-disk path of the script for file-backed collections.
func (l Location) FilePath() (string, error) {
	fb, ok := l.Collection.(FileBacked)
	if !ok {
		return "", fmt.Errorf("script: %s is not file backed", l)
	}
	return fb.Path(l.Name), nil
}

// TextName maps an input script name to its text entry name: the extension
// of the input format is swapped for the text format's, or the text
// extension is appended when the input format has none.
func TextName(inputName, inputExt, textExt string) string {
	if inputExt == "" {
		return inputName + textExt
	}
	return inputName[:len(inputName)-len(filepath.Ext(inputName))] + textExt
}
