package runtime

import (
	"sort"

	"github.com/deicod/inherit/nodes"
)

// BlockContext holds the block overrides pending during one render. Each
// block name maps to a FIFO queue: the head is always the override from
// the most derived template that defined the name, less derived ones wait
// behind it.
//
// The zero value is an empty registry. A BlockContext is owned by a single
// render call and is not safe for concurrent use.
type BlockContext struct {
	blocks map[string][]*nodes.Block
}

// NewBlockContext creates a registry holding one queued override per entry
func NewBlockContext(blocks map[string]*nodes.Block) *BlockContext {
	bc := &BlockContext{blocks: make(map[string][]*nodes.Block, len(blocks))}
	for name, block := range blocks {
		bc.blocks[name] = []*nodes.Block{block}
	}
	return bc
}

// Push appends block to the queue for name
func (bc *BlockContext) Push(block *nodes.Block, name string) {
	if bc.blocks == nil {
		bc.blocks = make(map[string][]*nodes.Block)
	}
	bc.blocks[name] = append(bc.blocks[name], block)
}

// Pop removes and returns the head of the queue for name. The entry is
// dropped once its queue is empty.
func (bc *BlockContext) Pop(name string) (*nodes.Block, bool) {
	queue, ok := bc.blocks[name]
	if !ok || len(queue) == 0 {
		return nil, false
	}

	block := queue[0]
	if len(queue) == 1 {
		delete(bc.blocks, name)
	} else {
		bc.blocks[name] = queue[1:]
	}
	return block, true
}

// Pending returns the number of overrides queued for name
func (bc *BlockContext) Pending(name string) int {
	return len(bc.blocks[name])
}

// Names returns the names that still have queued overrides, sorted
func (bc *BlockContext) Names() []string {
	names := make([]string, 0, len(bc.blocks))
	for name := range bc.blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
