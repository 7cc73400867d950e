// Package prompt implements the prompt templating core: typed variable
// sources resolved against live project data, ordered content block
// composition, and immutable version snapshots with restore.
package prompt

import (
	"encoding/json"
	"fmt"
	"time"
)

// OwnerScope distinguishes personal prompts from project-shared ones.
type OwnerScope string

const (
	OwnerPersonal OwnerScope = "personal"
	OwnerProject  OwnerScope = "project"
)

// Valid reports whether the scope is one of the known values.
func (s OwnerScope) Valid() bool {
	return s == OwnerPersonal || s == OwnerProject
}

// BlockType discriminates literal text blocks from variable references.
type BlockType string

const (
	BlockText     BlockType = "TEXT"
	BlockVariable BlockType = "VARIABLE"
)

// VariableType is an informational hint about a variable's value shape.
// It does not constrain resolution.
type VariableType string

const (
	VarText   VariableType = "TEXT"
	VarNumber VariableType = "NUMBER"
	VarDate   VariableType = "DATE"
	VarList   VariableType = "LIST"
)

// ContentBlock is one ordered unit of a prompt's body. TEXT blocks carry a
// literal value; VARIABLE blocks reference a PromptVariable by id.
type ContentBlock struct {
	Order      int       `json:"order"`
	Type       BlockType `json:"type"`
	Value      string    `json:"value,omitempty"`
	VariableID string    `json:"variableId,omitempty"`
}

// PromptVariable is a named live placeholder. The id is assigned once at
// creation and never regenerated, so content blocks keep valid references
// across edits.
type PromptVariable struct {
	ID           string
	Name         string
	Placeholder  string
	Description  string
	Type         VariableType
	DefaultValue string
	Source       VariableSource
}

type promptVariableJSON struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Placeholder  string          `json:"placeholder,omitempty"`
	Description  string          `json:"description,omitempty"`
	Type         VariableType    `json:"type,omitempty"`
	DefaultValue string          `json:"defaultValue,omitempty"`
	Source       json.RawMessage `json:"source,omitempty"`
}

// MarshalJSON encodes the variable with its source in discriminated form.
func (v PromptVariable) MarshalJSON() ([]byte, error) {
	out := promptVariableJSON{
		ID:           v.ID,
		Name:         v.Name,
		Placeholder:  v.Placeholder,
		Description:  v.Description,
		Type:         v.Type,
		DefaultValue: v.DefaultValue,
	}
	if v.Source != nil {
		raw, err := EncodeSource(v.Source)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", v.Name, err)
		}
		out.Source = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the variable, dispatching the source on its type
// discriminator.
func (v *PromptVariable) UnmarshalJSON(data []byte) error {
	var in promptVariableJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	v.ID = in.ID
	v.Name = in.Name
	v.Placeholder = in.Placeholder
	v.Description = in.Description
	v.Type = in.Type
	v.DefaultValue = in.DefaultValue
	v.Source = nil
	if len(in.Source) > 0 && string(in.Source) != "null" {
		src, err := DecodeSource(in.Source)
		if err != nil {
			return fmt.Errorf("variable %q: %w", in.Name, err)
		}
		v.Source = src
	}
	return nil
}

// Version is an immutable snapshot of a prompt's editable state. Content,
// context, and variables are copies taken at snapshot time, never references
// into the live prompt.
type Version struct {
	ID                string           `json:"id"`
	Content           []ContentBlock   `json:"content"`
	Context           string           `json:"context,omitempty"`
	Variables         []PromptVariable `json:"variables"`
	AIEnhancedContent string           `json:"aiEnhancedContent,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	Notes             string           `json:"notes,omitempty"`
}

// Prompt is a named, ownable unit of templated text. Versions are ordered
// newest first and only ever appended to.
type Prompt struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	IsPublic    bool             `json:"isPublic"`
	Model       string           `json:"model,omitempty"`
	OwnerScope  OwnerScope       `json:"ownerScope"`
	OwnerID     string           `json:"ownerId"`
	Context     string           `json:"context,omitempty"`
	Content     []ContentBlock   `json:"content"`
	Variables   []PromptVariable `json:"variables"`
	Versions    []Version        `json:"versions"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// PromptSummary is the cheap list projection of a prompt. It omits content,
// context, variables, and version bodies.
type PromptSummary struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Category     string     `json:"category,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	IsPublic     bool       `json:"isPublic"`
	Model        string     `json:"model,omitempty"`
	OwnerScope   OwnerScope `json:"ownerScope"`
	OwnerID      string     `json:"ownerId"`
	VersionCount int        `json:"versionCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Summary projects the prompt onto its cheap list fields.
func (p *Prompt) Summary() PromptSummary {
	return PromptSummary{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Category:     p.Category,
		Tags:         append([]string(nil), p.Tags...),
		IsPublic:     p.IsPublic,
		Model:        p.Model,
		OwnerScope:   p.OwnerScope,
		OwnerID:      p.OwnerID,
		VersionCount: len(p.Versions),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// Variable returns the variable with the given id, or nil when absent.
func (p *Prompt) Variable(id string) *PromptVariable {
	for i := range p.Variables {
		if p.Variables[i].ID == id {
			return &p.Variables[i]
		}
	}
	return nil
}
