package runtime

import (
	"fmt"
	"strings"

	"github.com/deicod/inherit/nodes"
)

// visitExtends renders the parent template in place of the extending one.
// The blocks collected from the extending template are queued behind any
// overrides already registered by more derived templates.
func (e *Evaluator) visitExtends(node *nodes.Extends) interface{} {
	value := e.Evaluate(node.Template)
	if err, ok := value.(error); ok {
		return err
	}
	name, ok := value.(string)
	if !ok {
		return NewError(ErrorTypeTemplate, fmt.Sprintf("'%s' could not be resolved as a string", describeExpr(node.Template)), node.GetPosition(), node)
	}

	if e.ctx.environment == nil {
		return NewError(ErrorTypeTemplate, "no environment available for template inheritance", node.GetPosition(), node)
	}
	if e.ctx.rendering(name) {
		return NewError(ErrorTypeTemplate, fmt.Sprintf("circular template inheritance detected: %s", chainString(e.ctx.Chain(), name)), node.GetPosition(), node)
	}

	parent, err := e.ctx.environment.LoadTemplate(name)
	if err != nil {
		return err
	}

	reg := e.ctx.Blocks()
	if reg != nil {
		for _, blockName := range node.BlockNames() {
			reg.Push(node.Blocks[blockName], blockName)
		}
	} else {
		reg = NewBlockContext(node.Blocks)
	}

	e.ctx.logger.Debug("extends", "render", e.ctx.renderID, "parent", name, "depth", len(e.ctx.chain), "blocks", len(node.Blocks))

	err = e.ctx.WithBlocks(reg, func() error {
		return parent.render(e.ctx)
	})
	if err != nil {
		return err
	}
	return nil
}

func (e *Evaluator) visitBlock(node *nodes.Block) interface{} {
	if err := e.renderBlock(node, e.ctx.Blocks()); err != nil {
		return err
	}
	return nil
}

// renderBlock renders block, or the head override queued for its name in
// reg. The override sees the content it replaces as block.super and
// super(); that content is rendered first, against the registry with the
// head already removed, so each level of the chain consumes one override.
func (e *Evaluator) renderBlock(block *nodes.Block, reg *BlockContext) error {
	if reg != nil {
		if override, ok := reg.Pop(block.Name); ok {
			e.ctx.logger.Debug("block override", "render", e.ctx.renderID, "block", block.Name, "pending", reg.Pending(block.Name))

			super, err := e.ctx.capture(func() error {
				return e.renderBlock(block, reg)
			})
			if err != nil {
				return err
			}

			bindings := map[string]interface{}{
				"block": map[string]interface{}{"super": Markup(super)},
				"super": GlobalFunc(func(*Context, ...interface{}) (interface{}, error) {
					return Markup(super), nil
				}),
			}
			return e.ctx.Push(bindings, func() error {
				return e.renderNodes(override.Body)
			})
		}
	}
	return e.renderNodes(block.Body)
}

func chainString(chain []string, next string) string {
	return strings.Join(append(chain, next), " -> ")
}
