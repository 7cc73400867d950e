// Package promptcache keeps a client's list and detail projections of
// prompts consistent under optimistic, out-of-order mutations. The list
// holds cheap summary rows; the detail map holds the full records fetched
// on selection. An explicit merge rule prevents a list refresh from
// clobbering the selected row's heavy fields.
package promptcache

import (
	"sort"

	"github.com/forgeworks/promptlab/internal/prompt"
)

// SelectionState is the detail-view state machine.
type SelectionState string

const (
	Deselected    SelectionState = "deselected"
	DetailLoading SelectionState = "detail_loading"
	DetailReady   SelectionState = "detail_ready"
)

// Cache is the two-level store: a summary map mirroring the server's list
// projection and a detail map holding full payloads. Not safe for
// concurrent use; the reconciler serializes access.
type Cache struct {
	summaries  map[string]prompt.PromptSummary
	details    map[string]*prompt.Prompt
	selectedID string
	state      SelectionState
}

// NewCache creates an empty cache in the deselected state.
func NewCache() *Cache {
	return &Cache{
		summaries: make(map[string]prompt.PromptSummary),
		details:   make(map[string]*prompt.Prompt),
		state:     Deselected,
	}
}

// State returns the current selection state.
func (c *Cache) State() SelectionState { return c.state }

// SelectedID returns the selected prompt id, empty when deselected.
func (c *Cache) SelectedID() string { return c.selectedID }

// Summaries returns the cached rows, most recently updated first.
func (c *Cache) Summaries() []prompt.PromptSummary {
	out := make([]prompt.PromptSummary, 0, len(c.summaries))
	for _, s := range c.summaries {
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Summary returns one cached row.
func (c *Cache) Summary(id string) (prompt.PromptSummary, bool) {
	s, ok := c.summaries[id]
	return s, ok
}

// Detail returns the cached full record for an id, or nil.
func (c *Cache) Detail(id string) *prompt.Prompt {
	return c.details[id]
}

// SelectedDetail returns the full record of the selected prompt when the
// detail is ready.
func (c *Cache) SelectedDetail() *prompt.Prompt {
	if c.state != DetailReady {
		return nil
	}
	return c.details[c.selectedID]
}

// MergeList replaces the summary set with a fresh list payload. Cheap
// fields are taken from the server; the selected row's detail payload is
// preserved untouched. Rows absent from the payload are dropped, and if
// the selected row vanished the selection resets and its detail is purged.
func (c *Cache) MergeList(rows []prompt.PromptSummary) {
	fresh := make(map[string]prompt.PromptSummary, len(rows))
	for _, row := range rows {
		fresh[row.ID] = row
	}
	c.summaries = fresh

	for id := range c.details {
		if _, ok := fresh[id]; !ok && id != c.selectedID {
			delete(c.details, id)
		}
	}

	if c.selectedID != "" {
		if _, ok := fresh[c.selectedID]; !ok {
			c.purgeSelection()
		}
	}
}

// PutDetail stores an authoritative full record and refreshes its summary
// row from it.
func (c *Cache) PutDetail(p *prompt.Prompt) {
	c.details[p.ID] = p
	c.summaries[p.ID] = p.Summary()
}

// BeginSelect moves the selection to id and enters the loading state. Any
// previously remembered detail for a different id stays cached but is not
// served as current until its own fetch completes.
func (c *Cache) BeginSelect(id string) {
	c.selectedID = id
	c.state = DetailLoading
}

// CompleteSelect stores the fetched detail and enters the ready state.
func (c *Cache) CompleteSelect(p *prompt.Prompt) {
	c.PutDetail(p)
	c.state = DetailReady
}

// Deselect clears the selection without dropping cached rows.
func (c *Cache) Deselect() {
	c.selectedID = ""
	c.state = Deselected
}

// Drop removes a prompt from both levels. Dropping the selected id also
// resets the selection, so a later reselect must re-fetch.
func (c *Cache) Drop(id string) {
	delete(c.summaries, id)
	delete(c.details, id)
	if c.selectedID == id {
		c.purgeSelection()
	}
}

// DropDetail forgets a remembered detail payload without touching the
// summary row. The selected row's detail is never dropped this way.
func (c *Cache) DropDetail(id string) {
	if id == c.selectedID {
		return
	}
	delete(c.details, id)
}

func (c *Cache) purgeSelection() {
	delete(c.details, c.selectedID)
	c.selectedID = ""
	c.state = Deselected
}

// ApplyPatch applies an optimistic partial update to the cached summary
// and, when present, the cached detail.
func (c *Cache) ApplyPatch(id string, patch prompt.Patch) {
	if p := c.details[id]; p != nil {
		applyPatchToPrompt(p, patch)
		c.summaries[id] = p.Summary()
		return
	}
	if s, ok := c.summaries[id]; ok {
		applyPatchToSummary(&s, patch)
		c.summaries[id] = s
	}
}

func applyPatchToPrompt(p *prompt.Prompt, patch prompt.Patch) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Tags != nil {
		p.Tags = *patch.Tags
	}
	if patch.IsPublic != nil {
		p.IsPublic = *patch.IsPublic
	}
	if patch.Model != nil {
		p.Model = *patch.Model
	}
	if patch.Context != nil {
		p.Context = *patch.Context
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Variables != nil {
		p.Variables = *patch.Variables
	}
}

func applyPatchToSummary(s *prompt.PromptSummary, patch prompt.Patch) {
	if patch.Title != nil {
		s.Title = *patch.Title
	}
	if patch.Description != nil {
		s.Description = *patch.Description
	}
	if patch.Category != nil {
		s.Category = *patch.Category
	}
	if patch.Tags != nil {
		s.Tags = *patch.Tags
	}
	if patch.IsPublic != nil {
		s.IsPublic = *patch.IsPublic
	}
	if patch.Model != nil {
		s.Model = *patch.Model
	}
}
