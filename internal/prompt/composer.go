package prompt

import (
	"context"
	"sort"
	"strings"
)

// Render composes a prompt body from its ordered blocks. Blocks are stably
// sorted by order, TEXT blocks emit their value verbatim, and VARIABLE
// blocks substitute the resolved value of their referenced variable.
//
// When resolution yields a sentinel the variable's non-empty default value
// takes over, then the sentinel itself, then the placeholder. A block
// referencing a variable absent from the list emits nothing. No separators
// are inserted beyond what TEXT blocks contain.
func Render(ctx context.Context, blocks []ContentBlock, variables []PromptVariable, r *Resolver, rc ResolveContext) string {
	ordered := make([]ContentBlock, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	var b strings.Builder
	for _, block := range ordered {
		switch block.Type {
		case BlockText:
			b.WriteString(block.Value)
		case BlockVariable:
			v := findVariable(variables, block.VariableID)
			if v == nil {
				continue
			}
			b.WriteString(renderVariable(ctx, v, r, rc))
		}
	}
	return b.String()
}

func renderVariable(ctx context.Context, v *PromptVariable, r *Resolver, rc ResolveContext) string {
	if v.Source == nil {
		if v.DefaultValue != "" {
			return v.DefaultValue
		}
		return v.Placeholder
	}
	resolved := r.Resolve(ctx, v.Source, rc)
	if !IsSentinel(resolved) {
		return resolved
	}
	if v.DefaultValue != "" {
		return v.DefaultValue
	}
	if resolved != "" {
		return resolved
	}
	return v.Placeholder
}

func findVariable(variables []PromptVariable, id string) *PromptVariable {
	for i := range variables {
		if variables[i].ID == id {
			return &variables[i]
		}
	}
	return nil
}
