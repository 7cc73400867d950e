package prompt

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Snapshot copies the prompt's live content, context, and variables into a
// new version prepended to the history. The live state is untouched.
// Repeated snapshots create distinct entries; there is no deduplication.
func (p *Prompt) Snapshot(notes string, now time.Time) *Version {
	v := Version{
		ID:        uuid.NewString(),
		Content:   copyBlocks(p.Content),
		Context:   p.Context,
		Variables: copyVariables(p.Variables),
		CreatedAt: now,
		Notes:     notes,
	}
	p.Versions = append([]Version{v}, p.Versions...)
	return &p.Versions[0]
}

// RestoreVersion overwrites the live content, context, and variables with a
// copy of the named version's data and bumps UpdatedAt. The version history
// itself is never reordered or truncated; restore is not snapshotted.
func (p *Prompt) RestoreVersion(versionID string, now time.Time) error {
	var target *Version
	for i := range p.Versions {
		if p.Versions[i].ID == versionID {
			target = &p.Versions[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: version %q", ErrNotFound, versionID)
	}

	p.Content = copyBlocks(target.Content)
	p.Context = target.Context
	p.Variables = copyVariables(target.Variables)
	for i := range p.Variables {
		if p.Variables[i].ID == "" {
			p.Variables[i].ID = p.variableID(p.Variables[i].Name)
		}
	}
	p.UpdatedAt = now
	return nil
}

// variableID derives a stable id for a variable missing one, so restoring
// the same version twice yields identical ids and content block references
// stay valid.
func (p *Prompt) variableID(name string) string {
	ns := uuid.NewSHA1(uuid.NameSpaceURL, []byte("promptlab:"+p.ID))
	return uuid.NewSHA1(ns, []byte(name)).String()
}

// Version returns the version with the given id, or nil when absent.
func (p *Prompt) Version(id string) *Version {
	for i := range p.Versions {
		if p.Versions[i].ID == id {
			return &p.Versions[i]
		}
	}
	return nil
}

func copyBlocks(blocks []ContentBlock) []ContentBlock {
	if blocks == nil {
		return nil
	}
	out := make([]ContentBlock, len(blocks))
	copy(out, blocks)
	return out
}

// copyVariables is a deep copy. Source kinds are value types, so a struct
// copy is sufficient for them.
func copyVariables(vars []PromptVariable) []PromptVariable {
	if vars == nil {
		return nil
	}
	out := make([]PromptVariable, len(vars))
	copy(out, vars)
	return out
}
