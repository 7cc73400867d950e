package prompt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/forgeworks/promptlab/internal/gateway"
)

// Storage is the persistence boundary the service talks to. *Store is the
// DefraDB implementation.
type Storage interface {
	List(ctx context.Context, scope OwnerScope, ownerID string, filter ListFilter) ([]PromptSummary, error)
	ListPublic(ctx context.Context, filter ListFilter) ([]PromptSummary, error)
	Get(ctx context.Context, id string) (*Prompt, error)
	Create(ctx context.Context, p *Prompt) error
	Update(ctx context.Context, p *Prompt) error
	Delete(ctx context.Context, id string) error
}

// Enhancer derives an optional enhanced rendition of a snapshot's rendered
// text. Implementations may be disabled; enhancement failures never fail
// the snapshot.
type Enhancer interface {
	Enhance(ctx context.Context, rendered, model string) (string, error)
}

// Service wraps the store with authorization, validation, and rendering.
// Authorization and existence checks run before any resolution work.
type Service struct {
	store    Storage
	gw       gateway.ProjectData
	resolver *Resolver
	enhancer Enhancer
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithEnhancer attaches a snapshot enhancer.
func WithEnhancer(e Enhancer) ServiceOption {
	return func(s *Service) { s.enhancer = e }
}

// WithNow overrides the service clock.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates the prompt service.
func NewService(store Storage, gw gateway.ProjectData, resolver *Resolver, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		gw:       gw,
		resolver: resolver,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput carries the fields accepted on prompt creation.
type CreateInput struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	IsPublic    bool             `json:"isPublic,omitempty"`
	Model       string           `json:"model,omitempty"`
	OwnerScope  OwnerScope       `json:"ownerScope"`
	ProjectID   string           `json:"projectId,omitempty"`
	Context     string           `json:"context,omitempty"`
	Content     []ContentBlock   `json:"content,omitempty"`
	Variables   []PromptVariable `json:"variables,omitempty"`
}

// Patch carries partial update fields. Nil means "leave unchanged".
type Patch struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Category    *string           `json:"category,omitempty"`
	Tags        *[]string         `json:"tags,omitempty"`
	IsPublic    *bool             `json:"isPublic,omitempty"`
	Model       *string           `json:"model,omitempty"`
	Context     *string           `json:"context,omitempty"`
	Content     *[]ContentBlock   `json:"content,omitempty"`
	Variables   *[]PromptVariable `json:"variables,omitempty"`
}

// ListPrompts returns the caller's prompts for one owner scope. For the
// project scope the caller must be a member of the project.
func (s *Service) ListPrompts(ctx context.Context, userID string, scope OwnerScope, projectID string, filter ListFilter) ([]PromptSummary, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	switch scope {
	case OwnerPersonal:
		return s.store.List(ctx, OwnerPersonal, userID, filter)
	case OwnerProject:
		if projectID == "" {
			return nil, fmt.Errorf("%w: project id required for project scope", ErrBadInput)
		}
		if err := s.requireMembership(ctx, projectID, userID); err != nil {
			return nil, err
		}
		return s.store.List(ctx, OwnerProject, projectID, filter)
	default:
		return nil, fmt.Errorf("%w: unknown owner scope %q", ErrBadInput, scope)
	}
}

// ListPublicPrompts returns public prompts visible to any authenticated user.
func (s *Service) ListPublicPrompts(ctx context.Context, userID string, filter ListFilter) ([]PromptSummary, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.store.ListPublic(ctx, filter)
}

// GetPromptDetail returns the full prompt after a read authorization check.
func (s *Service) GetPromptDetail(ctx context.Context, userID, id string) (*Prompt, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canRead(ctx, userID, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreatePrompt validates and persists a new prompt. Variables arriving
// without ids are assigned one; ids are never regenerated afterwards.
func (s *Service) CreatePrompt(ctx context.Context, userID string, in CreateInput) (*Prompt, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrBadInput)
	}
	if !in.OwnerScope.Valid() {
		return nil, fmt.Errorf("%w: unknown owner scope %q", ErrBadInput, in.OwnerScope)
	}

	ownerID := userID
	if in.OwnerScope == OwnerProject {
		if in.ProjectID == "" {
			return nil, fmt.Errorf("%w: project id required for project scope", ErrBadInput)
		}
		if err := s.requireMembership(ctx, in.ProjectID, userID); err != nil {
			return nil, err
		}
		ownerID = in.ProjectID
	}

	now := s.now().UTC()
	p := &Prompt{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Tags:        in.Tags,
		IsPublic:    in.IsPublic,
		Model:       in.Model,
		OwnerScope:  in.OwnerScope,
		OwnerID:     ownerID,
		Context:     in.Context,
		Content:     in.Content,
		Variables:   assignVariableIDs(in.Variables),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePrompt applies a partial update. Only supplied fields change.
func (s *Service) UpdatePrompt(ctx context.Context, userID, id string, patch Patch) (*Prompt, error) {
	p, err := s.writable(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil && *patch.Title == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", ErrBadInput)
	}

	applyPatch(p, patch)
	p.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePrompt removes a prompt and returns its summary so callers can
// evict it from caches.
func (s *Service) DeletePrompt(ctx context.Context, userID, id string) (PromptSummary, error) {
	p, err := s.writable(ctx, userID, id)
	if err != nil {
		return PromptSummary{}, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return PromptSummary{}, err
	}
	return p.Summary(), nil
}

// SnapshotPrompt appends a new version of the prompt's live state. When an
// enhancer is configured the snapshot also carries an enhanced rendition;
// enhancement errors are swallowed, the snapshot succeeds regardless.
func (s *Service) SnapshotPrompt(ctx context.Context, userID, id, notes string) (*Prompt, error) {
	p, err := s.writable(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	v := p.Snapshot(notes, s.now().UTC())
	if s.enhancer != nil {
		rendered := Render(ctx, v.Content, v.Variables, s.resolver, s.resolveContext(p, userID))
		if enhanced, err := s.enhancer.Enhance(ctx, rendered, p.Model); err == nil {
			v.AIEnhancedContent = enhanced
		}
	}

	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RestorePromptVersion copies a version's state back onto the live prompt.
func (s *Service) RestorePromptVersion(ctx context.Context, userID, id, versionID string) (*Prompt, error) {
	p, err := s.writable(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := p.RestoreVersion(versionID, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListVersions returns a prompt's version history, newest first.
func (s *Service) ListVersions(ctx context.Context, userID, id string) ([]Version, error) {
	p, err := s.GetPromptDetail(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return p.Versions, nil
}

// RenderPrompt composes the prompt's live content with all variables
// resolved against current project data.
func (s *Service) RenderPrompt(ctx context.Context, userID, id string) (string, error) {
	p, err := s.GetPromptDetail(ctx, userID, id)
	if err != nil {
		return "", err
	}
	return Render(ctx, p.Content, p.Variables, s.resolver, s.resolveContext(p, userID)), nil
}

// ResolveVariable evaluates a single source for live previews.
func (s *Service) ResolveVariable(ctx context.Context, userID string, source VariableSource, projectID string) (string, error) {
	if userID == "" {
		return "", ErrUnauthenticated
	}
	return s.resolver.Resolve(ctx, source, ResolveContext{ProjectID: projectID, UserID: userID}), nil
}

func (s *Service) writable(ctx context.Context, userID, id string) (*Prompt, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canWrite(ctx, userID, p); err != nil {
		return nil, err
	}
	return p, nil
}

// canRead allows owners, project members, and anyone for public prompts.
func (s *Service) canRead(ctx context.Context, userID string, p *Prompt) error {
	if p.IsPublic {
		return nil
	}
	return s.canWrite(ctx, userID, p)
}

// canWrite requires ownership for personal prompts and membership for
// project prompts. Public visibility grants read access only.
func (s *Service) canWrite(ctx context.Context, userID string, p *Prompt) error {
	switch p.OwnerScope {
	case OwnerPersonal:
		if p.OwnerID != userID {
			return fmt.Errorf("%w: not the owner", ErrForbidden)
		}
		return nil
	case OwnerProject:
		return s.requireMembership(ctx, p.OwnerID, userID)
	default:
		return fmt.Errorf("%w: prompt has unknown owner scope %q", ErrForbidden, p.OwnerScope)
	}
}

func (s *Service) requireMembership(ctx context.Context, projectID, userID string) error {
	members, err := s.gw.ListMembers(ctx, projectID, gateway.MemberFilter{})
	if err != nil {
		return fmt.Errorf("membership check: %w", err)
	}
	for _, m := range members {
		if m.UserID == userID {
			return nil
		}
	}
	return fmt.Errorf("%w: not a member of project %q", ErrForbidden, projectID)
}

// resolveContext builds the identity a prompt's variables resolve under.
// Personal prompts have no project context; project-scoped sources render
// their sentinel there.
func (s *Service) resolveContext(p *Prompt, userID string) ResolveContext {
	rc := ResolveContext{UserID: userID}
	if p.OwnerScope == OwnerProject {
		rc.ProjectID = p.OwnerID
	}
	return rc
}

func applyPatch(p *Prompt, patch Patch) {
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
		p.Variables = assignVariableIDs(*patch.Variables)
	}
}

// assignVariableIDs fills ids for new variables. Existing ids pass through
// untouched so content block references stay valid.
func assignVariableIDs(vars []PromptVariable) []PromptVariable {
	for i := range vars {
		if vars[i].ID == "" {
			vars[i].ID = uuid.NewString()
		}
	}
	return vars
}
