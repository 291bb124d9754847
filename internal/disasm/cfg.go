package disasm

import "sort"

// BasicBlock is a run of instructions with a single entry point.
type BasicBlock struct {
	ID      int
	Start   int    // index into CFG.Insts (inclusive)
	End     int    // index into CFG.Insts (exclusive)
	Succs   []Succ // successor edges
	IsEntry bool
	IsTerm  bool // ends with a terminator opcode
}

// Succ describes a control-flow successor edge.
type Succ struct {
	BlockID int
	Cond    string // "" = fallthrough, "addr" = code address taken in the block
}

// CFG is the block graph of one decoded script.
type CFG struct {
	Name   string
	Blocks []BasicBlock
	Insts  []Inst
}

// BuildCFG constructs a block graph from a traced instruction stream.
// Bytecode jumps take their target from the stack, so every code-address
// operand is treated as a possible successor of the block that pushes it.
//  1. Find block leaders: index 0, code-address targets, instructions after
//     terminators.
//  2. Partition instructions into blocks by leaders.
//  3. Compute successor edges.
func BuildCFG(name string, spec *Spec, insts []Inst, codeOffset int) CFG {
	if len(insts) == 0 {
		return CFG{Name: name, Insts: insts}
	}

	offToIdx := make(map[int]int, len(insts))
	for i, inst := range insts {
		offToIdx[inst.Offset-codeOffset] = i
	}

	// Pass 1: leaders.
	leaders := map[int]bool{0: true}
	for i, inst := range insts {
		if spec.Terminators[inst.Opcode] && i+1 < len(insts) {
			leaders[i+1] = true
		}
		for _, t := range inst.Targets() {
			if idx, ok := offToIdx[t]; ok {
				leaders[idx] = true
			}
		}
	}
	sorted := make([]int, 0, len(leaders))
	for idx := range leaders {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	// Pass 2: partition.
	blocks := make([]BasicBlock, len(sorted))
	leaderToBlock := make(map[int]int, len(sorted))
	for i, start := range sorted {
		end := len(insts)
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		blocks[i] = BasicBlock{ID: i, Start: start, End: end, IsEntry: start == 0}
		leaderToBlock[start] = i
	}

	// Pass 3: successors.
	for i := range blocks {
		blk := &blocks[i]
		seen := make(map[int]bool)
		for _, inst := range insts[blk.Start:blk.End] {
			for _, t := range inst.Targets() {
				idx, ok := offToIdx[t]
				if !ok {
					continue
				}
				bid := leaderToBlock[idx]
				if seen[bid] {
					continue
				}
				seen[bid] = true
				blk.Succs = append(blk.Succs, Succ{BlockID: bid, Cond: "addr"})
			}
		}
		last := insts[blk.End-1]
		if spec.Terminators[last.Opcode] {
			blk.IsTerm = true
			continue
		}
		if next, ok := leaderToBlock[blk.End]; ok {
			blk.Succs = append(blk.Succs, Succ{BlockID: next})
		}
	}

	return CFG{Name: name, Blocks: blocks, Insts: insts}
}

// Call is a named call made by the instruction at Offset.
type Call struct {
	Offset int
	Callee string
}
