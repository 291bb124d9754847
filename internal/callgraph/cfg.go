// Package callgraph converts decoded scripts to lattice graphs for DOT
// rendering.
package callgraph

import (
	"fmt"
	"sort"

	"github.com/zboralski/lattice"

	"vnpatch/internal/disasm"
)

// BuildCFG constructs a lattice.CFGGraph with one function per script.
func BuildCFG(scripts []ScriptInfo) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, s := range scripts {
		lcfg, _ := BuildScriptCFG(s)
		cg.Funcs = append(cg.Funcs, lcfg)
	}
	return cg
}

// BuildScriptCFG builds the block graph of one script. Named calls and
// classified string references become call sites of their block. Returns the
// number of blocks alongside.
func BuildScriptCFG(s ScriptInfo) (*lattice.FuncCFG, int) {
	dcfg := disasm.BuildCFG(s.Name, s.Spec, s.Insts, s.CodeOffset)
	lcfg := convertCFG(&dcfg, s.sites())
	return lcfg, len(dcfg.Blocks)
}

// sites maps instruction offsets to call-site labels.
func (s ScriptInfo) sites() map[int][]string {
	out := make(map[int][]string)
	for _, c := range s.Calls {
		out[c.Offset] = append(out[c.Offset], c.Callee)
	}
	if s.Resolve == nil {
		return out
	}
	kinds := make(map[int]disasm.Ref, len(s.Refs))
	for _, r := range s.Refs {
		kinds[r.Offset] = r
	}
	for _, inst := range s.Insts {
		for _, a := range inst.Args {
			r, ok := kinds[a.Offset]
			if !ok {
				continue
			}
			text, err := s.Resolve(r.Address)
			if err != nil {
				continue
			}
			if len(text) > 50 {
				text = text[:47] + "..."
			}
			out[inst.Offset] = append(out[inst.Offset], fmt.Sprintf("%s %q", r.Kind, text))
		}
	}
	return out
}

// convertCFG maps a disasm.CFG to a lattice.FuncCFG.
func convertCFG(dcfg *disasm.CFG, sites map[int][]string) *lattice.FuncCFG {
	lcfg := &lattice.FuncCFG{Name: dcfg.Name}
	for _, db := range dcfg.Blocks {
		lb := &lattice.BasicBlock{
			ID:    db.ID,
			Start: db.Start,
			End:   db.End,
			Term:  db.IsTerm,
		}
		for _, ds := range db.Succs {
			lb.Succs = append(lb.Succs, lattice.Successor{BlockID: ds.BlockID, Cond: ds.Cond})
		}
		for idx := db.Start; idx < db.End && idx < len(dcfg.Insts); idx++ {
			for _, label := range sites[dcfg.Insts[idx].Offset] {
				lb.Calls = append(lb.Calls, lattice.CallSite{Offset: idx, Callee: label})
			}
		}
		sort.SliceStable(lb.Calls, func(i, j int) bool { return lb.Calls[i].Offset < lb.Calls[j].Offset })
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}
