package callgraph

import (
	"github.com/zboralski/lattice"

	"vnpatch/internal/disasm"
)

// ScriptInfo holds the data needed to build graphs for one decoded script.
type ScriptInfo struct {
	Name       string
	Spec       *disasm.Spec
	Insts      []disasm.Inst
	CodeOffset int
	Calls      []disasm.Call
	Refs       []disasm.Ref
	Resolve    disasm.Resolver
	// Imports are other scripts named in the header.
	Imports []string
}

// BuildCallGraph constructs a lattice.Graph over scripts. Each script
// becomes a node; each named call and each imported script becomes an edge.
func BuildCallGraph(scripts []ScriptInfo) *lattice.Graph {
	g := &lattice.Graph{}
	for _, s := range scripts {
		g.Nodes = append(g.Nodes, s.Name)
		for _, c := range s.Calls {
			if c.Callee == "" {
				continue
			}
			g.Edges = append(g.Edges, lattice.Edge{Caller: s.Name, Callee: c.Callee})
		}
		for _, imp := range s.Imports {
			g.Edges = append(g.Edges, lattice.Edge{Caller: s.Name, Callee: imp})
		}
	}
	g.Dedup()
	return g
}
