package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/forgeworks/promptlab/internal/defra"
)

const collection = "Prompt"

// summaryFields are the cheap columns list queries select. Content,
// context, variables, and version bodies are detail-only by contract.
const summaryFields = `_docID
			title
			description
			category
			tags
			is_public
			model
			owner_scope
			owner_id
			version_count
			created_at
			updated_at`

// ListFilter narrows a prompt list query.
type ListFilter struct {
	Category string
	Tag      string
}

// Store persists prompts in DefraDB. The three heavy fields (content,
// variables, versions) are stored as JSON string columns so list queries
// never touch them.
type Store struct {
	client *defra.Client
}

// NewStore creates a prompt store over the given DefraDB client.
func NewStore(client *defra.Client) *Store {
	return &Store{client: client}
}

// List returns summaries for one owner, newest updated first. Tag filtering
// happens client-side since the tags column is a list.
func (s *Store) List(ctx context.Context, scope OwnerScope, ownerID string, filter ListFilter) ([]PromptSummary, error) {
	conds := fmt.Sprintf(`owner_scope: {_eq: %q}, owner_id: {_eq: %q}`, scope, ownerID)
	if filter.Category != "" {
		conds += fmt.Sprintf(`, category: {_eq: %q}`, filter.Category)
	}

	query := fmt.Sprintf(`{
		Prompt(filter: {%s}, order: {updated_at: DESC}) {
			%s
		}
	}`, conds, summaryFields)

	data, err := s.query(ctx, query)
	if err != nil {
		return nil, err
	}

	var summaries []PromptSummary
	for _, doc := range defra.Docs(data, collection) {
		summary := docToSummary(doc)
		if filter.Tag != "" && !hasTag(summary.Tags, filter.Tag) {
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ListPublic returns summaries of public prompts regardless of owner.
func (s *Store) ListPublic(ctx context.Context, filter ListFilter) ([]PromptSummary, error) {
	conds := `is_public: {_eq: true}`
	if filter.Category != "" {
		conds += fmt.Sprintf(`, category: {_eq: %q}`, filter.Category)
	}

	query := fmt.Sprintf(`{
		Prompt(filter: {%s}, order: {updated_at: DESC}) {
			%s
		}
	}`, conds, summaryFields)

	data, err := s.query(ctx, query)
	if err != nil {
		return nil, err
	}

	var summaries []PromptSummary
	for _, doc := range defra.Docs(data, collection) {
		summary := docToSummary(doc)
		if filter.Tag != "" && !hasTag(summary.Tags, filter.Tag) {
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Get returns the full prompt record, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Prompt, error) {
	query := fmt.Sprintf(`{
		Prompt(filter: {_docID: {_eq: %q}}) {
			%s
			context
			content_json
			variables_json
			versions_json
		}
	}`, id, summaryFields)

	data, err := s.query(ctx, query)
	if err != nil {
		return nil, err
	}

	docs := defra.Docs(data, collection)
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: prompt %q", ErrNotFound, id)
	}
	return docToPrompt(docs[0])
}

// Create persists a new prompt and assigns its id from the created document.
func (s *Store) Create(ctx context.Context, p *Prompt) error {
	docID, err := s.client.Create(ctx, collection, promptToDoc(p))
	if err != nil {
		return fmt.Errorf("create prompt: %w", err)
	}
	p.ID = docID
	return nil
}

// Update overwrites the stored record with the prompt's current state.
func (s *Store) Update(ctx context.Context, p *Prompt) error {
	if err := s.client.Update(ctx, collection, p.ID, promptToDoc(p)); err != nil {
		return fmt.Errorf("update prompt %q: %w", p.ID, err)
	}
	return nil
}

// Delete removes the stored record.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Delete(ctx, collection, id); err != nil {
		return fmt.Errorf("delete prompt %q: %w", id, err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, query string) (map[string]any, error) {
	resp, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("graphql error: %s", errMsg)
	}
	return resp.Data, nil
}

func promptToDoc(p *Prompt) map[string]any {
	contentJSON, _ := json.Marshal(p.Content)
	variablesJSON, _ := json.Marshal(p.Variables)
	versionsJSON, _ := json.Marshal(p.Versions)
	return map[string]any{
		"title":          p.Title,
		"description":    p.Description,
		"category":       p.Category,
		"tags":           p.Tags,
		"is_public":      p.IsPublic,
		"model":          p.Model,
		"owner_scope":    string(p.OwnerScope),
		"owner_id":       p.OwnerID,
		"context":        p.Context,
		"content_json":   string(contentJSON),
		"variables_json": string(variablesJSON),
		"versions_json":  string(versionsJSON),
		"version_count":  len(p.Versions),
		"created_at":     p.CreatedAt.Format(time.RFC3339),
		"updated_at":     p.UpdatedAt.Format(time.RFC3339),
	}
}

func docToSummary(doc map[string]any) PromptSummary {
	return PromptSummary{
		ID:           str(doc, "_docID"),
		Title:        str(doc, "title"),
		Description:  str(doc, "description"),
		Category:     str(doc, "category"),
		Tags:         strList(doc, "tags"),
		IsPublic:     boolean(doc, "is_public"),
		Model:        str(doc, "model"),
		OwnerScope:   OwnerScope(str(doc, "owner_scope")),
		OwnerID:      str(doc, "owner_id"),
		VersionCount: integer(doc, "version_count"),
		CreatedAt:    timestamp(doc, "created_at"),
		UpdatedAt:    timestamp(doc, "updated_at"),
	}
}

func docToPrompt(doc map[string]any) (*Prompt, error) {
	summary := docToSummary(doc)
	p := &Prompt{
		ID:          summary.ID,
		Title:       summary.Title,
		Description: summary.Description,
		Category:    summary.Category,
		Tags:        summary.Tags,
		IsPublic:    summary.IsPublic,
		Model:       summary.Model,
		OwnerScope:  summary.OwnerScope,
		OwnerID:     summary.OwnerID,
		Context:     str(doc, "context"),
		CreatedAt:   summary.CreatedAt,
		UpdatedAt:   summary.UpdatedAt,
	}
	if raw := str(doc, "content_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.Content); err != nil {
			return nil, fmt.Errorf("prompt %q: decode content: %w", p.ID, err)
		}
	}
	if raw := str(doc, "variables_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.Variables); err != nil {
			return nil, fmt.Errorf("prompt %q: decode variables: %w", p.ID, err)
		}
	}
	if raw := str(doc, "versions_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.Versions); err != nil {
			return nil, fmt.Errorf("prompt %q: decode versions: %w", p.ID, err)
		}
	}
	return p, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func strList(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func boolean(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func integer(m map[string]any, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}

func timestamp(m map[string]any, key string) time.Time {
	if v, ok := m[key].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
