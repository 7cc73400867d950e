package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/forgeworks/promptlab/internal/prompt"
)

// PromptsClient is a typed view of the prompt endpoints. It satisfies the
// cache reconciler's backend interface, so a CLI session drives the same
// merge and rollback rules a UI would.
type PromptsClient struct {
	c *Client
}

// Prompts returns the typed prompt API.
func (c *Client) Prompts() *PromptsClient {
	return &PromptsClient{c: c}
}

// ListPrompts fetches summary rows for one owner scope.
func (p *PromptsClient) ListPrompts(ctx context.Context, scope prompt.OwnerScope, projectID string) ([]prompt.PromptSummary, error) {
	q := url.Values{}
	q.Set("scope", string(scope))
	if projectID != "" {
		q.Set("projectId", projectID)
	}
	var out []prompt.PromptSummary
	if err := p.c.Get(ctx, "/api/prompts?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPublicPrompts fetches summary rows of public prompts.
func (p *PromptsClient) ListPublicPrompts(ctx context.Context) ([]prompt.PromptSummary, error) {
	var out []prompt.PromptSummary
	if err := p.c.Get(ctx, "/api/prompts?scope=public", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPromptDetail fetches one prompt in full.
func (p *PromptsClient) GetPromptDetail(ctx context.Context, id string) (*prompt.Prompt, error) {
	var out prompt.Prompt
	if err := p.c.Get(ctx, "/api/prompts/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePrompt creates a prompt and returns the full record.
func (p *PromptsClient) CreatePrompt(ctx context.Context, in prompt.CreateInput) (*prompt.Prompt, error) {
	var out prompt.Prompt
	if err := p.c.Post(ctx, "/api/prompts", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePrompt applies a partial update and returns the full record.
func (p *PromptsClient) UpdatePrompt(ctx context.Context, id string, patch prompt.Patch) (*prompt.Prompt, error) {
	var out prompt.Prompt
	if err := p.c.Patch(ctx, "/api/prompts/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePrompt deletes a prompt and returns its summary for cache removal.
func (p *PromptsClient) DeletePrompt(ctx context.Context, id string) (prompt.PromptSummary, error) {
	var out prompt.PromptSummary
	if err := p.c.Delete(ctx, "/api/prompts/"+url.PathEscape(id), &out); err != nil {
		return prompt.PromptSummary{}, err
	}
	return out, nil
}

// SnapshotPrompt creates a new version and returns the full record.
func (p *PromptsClient) SnapshotPrompt(ctx context.Context, id, notes string) (*prompt.Prompt, error) {
	var out prompt.Prompt
	body := map[string]string{"notes": notes}
	if err := p.c.Post(ctx, "/api/prompts/"+url.PathEscape(id)+"/versions", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RestorePromptVersion restores a version and returns the full record.
func (p *PromptsClient) RestorePromptVersion(ctx context.Context, id, versionID string) (*prompt.Prompt, error) {
	var out prompt.Prompt
	path := fmt.Sprintf("/api/prompts/%s/versions/%s/restore", url.PathEscape(id), url.PathEscape(versionID))
	if err := p.c.Post(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenderPrompt returns the server-side rendering of a prompt.
func (p *PromptsClient) RenderPrompt(ctx context.Context, id string) (string, error) {
	var out struct {
		Rendered string `json:"rendered"`
	}
	if err := p.c.Get(ctx, "/api/prompts/"+url.PathEscape(id)+"/render", &out); err != nil {
		return "", err
	}
	return out.Rendered, nil
}

// ResolveVariable evaluates one variable source for a live preview.
func (p *PromptsClient) ResolveVariable(ctx context.Context, source prompt.VariableSource, projectID string) (string, error) {
	raw, err := prompt.EncodeSource(source)
	if err != nil {
		return "", err
	}
	body := map[string]any{"source": json.RawMessage(raw)}
	if projectID != "" {
		body["projectId"] = projectID
	}
	var out struct {
		Value string `json:"value"`
	}
	if err := p.c.Post(ctx, "/api/resolve", body, &out); err != nil {
		return "", err
	}
	return out.Value, nil
}
