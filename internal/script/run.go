package script

import (
	"errors"

	"vnpatch/internal/names"
	"vnpatch/internal/textenc"
)

// Run holds the state shared by every script in one extraction or insertion
// run: the encoding tunnel and the character-name table. It is created once
// at start, passed to codecs and orchestrators, and flushed once at clean exit.
type Run struct {
	Tunnel *textenc.Tunnel
	Names  *names.Store

	TunnelPath string
}

// NewRun returns a run with an empty tunnel and in-memory names.
func NewRun() *Run {
	return &Run{
		Tunnel: textenc.NewTunnel(),
		Names:  names.New(),
	}
}

// OpenRun loads the persisted tunnel table and names store. Empty paths keep
// the respective table in memory.
func OpenRun(tunnelPath, namesPath string) (*Run, error) {
	r := NewRun()
	r.TunnelPath = tunnelPath
	if tunnelPath != "" {
		if err := r.Tunnel.LoadFile(tunnelPath); err != nil {
			return nil, err
		}
	}
	ns, err := names.Open(namesPath)
	if err != nil {
		return nil, err
	}
	r.Names = ns
	return r, nil
}

// Flush persists the tunnel table (when non-empty) and the names store.
func (r *Run) Flush() error {
	var errs []error
	if r.TunnelPath != "" {
		errs = append(errs, r.Tunnel.SaveFile(r.TunnelPath))
	}
	errs = append(errs, r.Names.Save())
	return errors.Join(errs...)
}
