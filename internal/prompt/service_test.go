package prompt

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// memStore is an in-memory Storage for service tests.
type memStore struct {
	prompts map[string]*Prompt
	nextID  int
}

func newMemStore() *memStore {
	return &memStore{prompts: make(map[string]*Prompt)}
}

func (m *memStore) List(_ context.Context, scope OwnerScope, ownerID string, filter ListFilter) ([]PromptSummary, error) {
	var out []PromptSummary
	for _, p := range m.prompts {
		if p.OwnerScope != scope || p.OwnerID != ownerID {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		out = append(out, p.Summary())
	}
	return out, nil
}

func (m *memStore) ListPublic(_ context.Context, filter ListFilter) ([]PromptSummary, error) {
	var out []PromptSummary
	for _, p := range m.prompts {
		if !p.IsPublic {
			continue
		}
		out = append(out, p.Summary())
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (*Prompt, error) {
	p, ok := m.prompts[id]
	if !ok {
		return nil, fmt.Errorf("%w: prompt %q", ErrNotFound, id)
	}
	clone := *p
	return &clone, nil
}

func (m *memStore) Create(_ context.Context, p *Prompt) error {
	m.nextID++
	p.ID = fmt.Sprintf("prompt-%d", m.nextID)
	clone := *p
	m.prompts[p.ID] = &clone
	return nil
}

func (m *memStore) Update(_ context.Context, p *Prompt) error {
	if _, ok := m.prompts[p.ID]; !ok {
		return fmt.Errorf("%w: prompt %q", ErrNotFound, p.ID)
	}
	clone := *p
	m.prompts[p.ID] = &clone
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	if _, ok := m.prompts[id]; !ok {
		return fmt.Errorf("%w: prompt %q", ErrNotFound, id)
	}
	delete(m.prompts, id)
	return nil
}

func testService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	gw := projectFixture()
	frozen := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(store, gw, testResolver(gw), WithNow(func() time.Time { return frozen }))
	return svc, store
}

func TestServiceRequiresIdentity(t *testing.T) {
	svc, _ := testService(t)

	if _, err := svc.ListPrompts(t.Context(), "", OwnerPersonal, "", ListFilter{}); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("list: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.GetPromptDetail(t.Context(), "", "p1"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("get: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.CreatePrompt(t.Context(), "", CreateInput{Title: "x", OwnerScope: OwnerPersonal}); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("create: expected ErrUnauthenticated, got %v", err)
	}
}

func TestCreatePromptValidation(t *testing.T) {
	svc, _ := testService(t)

	t.Run("missing title", func(t *testing.T) {
		_, err := svc.CreatePrompt(t.Context(), "user-1", CreateInput{OwnerScope: OwnerPersonal})
		if !errors.Is(err, ErrBadInput) {
			t.Errorf("expected ErrBadInput, got %v", err)
		}
	})

	t.Run("bad scope", func(t *testing.T) {
		_, err := svc.CreatePrompt(t.Context(), "user-1", CreateInput{Title: "x", OwnerScope: "global"})
		if !errors.Is(err, ErrBadInput) {
			t.Errorf("expected ErrBadInput, got %v", err)
		}
	})

	t.Run("project scope requires project id", func(t *testing.T) {
		_, err := svc.CreatePrompt(t.Context(), "user-1", CreateInput{Title: "x", OwnerScope: OwnerProject})
		if !errors.Is(err, ErrBadInput) {
			t.Errorf("expected ErrBadInput, got %v", err)
		}
	})

	t.Run("project scope requires membership", func(t *testing.T) {
		_, err := svc.CreatePrompt(t.Context(), "outsider", CreateInput{Title: "x", OwnerScope: OwnerProject, ProjectID: "proj-1"})
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestCreatePromptAssignsVariableIDs(t *testing.T) {
	svc, _ := testService(t)

	p, err := svc.CreatePrompt(t.Context(), "user-1", CreateInput{
		Title:      "With vars",
		OwnerScope: OwnerPersonal,
		Variables: []PromptVariable{
			{Name: "fresh"},
			{ID: "keep-me", Name: "existing"},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if p.Variables[0].ID == "" {
		t.Error("new variable did not get an id")
	}
	if p.Variables[1].ID != "keep-me" {
		t.Errorf("existing id was regenerated: %q", p.Variables[1].ID)
	}
	if p.OwnerID != "user-1" || p.OwnerScope != OwnerPersonal {
		t.Errorf("unexpected ownership: %s/%s", p.OwnerScope, p.OwnerID)
	}
}

func TestPersonalPromptAccess(t *testing.T) {
	svc, _ := testService(t)

	p, err := svc.CreatePrompt(t.Context(), "user-1", CreateInput{Title: "Private", OwnerScope: OwnerPersonal})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	t.Run("owner reads", func(t *testing.T) {
		if _, err := svc.GetPromptDetail(t.Context(), "user-1", p.ID); err != nil {
			t.Errorf("owner read failed: %v", err)
		}
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		if _, err := svc.GetPromptDetail(t.Context(), "user-2", p.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("public grants read but not write", func(t *testing.T) {
		pub := true
		if _, err := svc.UpdatePrompt(t.Context(), "user-1", p.ID, Patch{IsPublic: &pub}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
		if _, err := svc.GetPromptDetail(t.Context(), "user-2", p.ID); err != nil {
			t.Errorf("public read failed: %v", err)
		}
		title := "hijacked"
		if _, err := svc.UpdatePrompt(t.Context(), "user-2", p.ID, Patch{Title: &title}); !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden on write, got %v", err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, err := svc.GetPromptDetail(t.Context(), "user-1", "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestProjectPromptAccess(t *testing.T) {
	svc, _ := testService(t)

	p, err := svc.CreatePrompt(t.Context(), "user-1", CreateInput{Title: "Shared", OwnerScope: OwnerProject, ProjectID: "proj-1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if p.OwnerID != "proj-1" {
		t.Fatalf("project prompt owner should be the project, got %q", p.OwnerID)
	}

	// user-2 is a member of proj-1 in the fixture.
	if _, err := svc.GetPromptDetail(t.Context(), "user-2", p.ID); err != nil {
		t.Errorf("member read failed: %v", err)
	}
	title := "renamed by member"
	if _, err := svc.UpdatePrompt(t.Context(), "user-2", p.ID, Patch{Title: &title}); err != nil {
		t.Errorf("member write failed: %v", err)
	}
	if _, err := svc.GetPromptDetail(t.Context(), "outsider", p.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for non-member, got %v", err)
	}
}

func TestUpdatePromptPartialSemantics(t *testing.T) {
	svc, _ := testService(t)

	p, err := svc.CreatePrompt(t.Context(), "user-1", CreateInput{
		Title:       "Original",
		Description: "keep me",
		Category:    "standup",
		OwnerScope:  OwnerPersonal,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	title := "Renamed"
	updated, err := svc.UpdatePrompt(t.Context(), "user-1", p.ID, Patch{Title: &title})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("title not updated: %q", updated.Title)
	}
	if updated.Description != "keep me" || updated.Category != "standup" {
		t.Error("unsupplied fields must not change")
	}
	if !updated.UpdatedAt.After(p.CreatedAt) && !updated.UpdatedAt.Equal(p.CreatedAt) {
		t.Error("UpdatedAt went backwards")
	}

	empty := ""
	if _, err := svc.UpdatePrompt(t.Context(), "user-1", p.ID, Patch{Title: &empty}); !errors.Is(err, ErrBadInput) {
		t.Errorf("expected ErrBadInput for empty title, got %v", err)
	}
}

func TestDeletePromptReturnsSummary(t *testing.T) {
	svc, store := testService(t)

	p, err := svc.CreatePrompt(t.Context(), "user-1", CreateInput{Title: "Doomed", OwnerScope: OwnerPersonal})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	summary, err := svc.DeletePrompt(t.Context(), "user-1", p.ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if summary.ID != p.ID || summary.Title != "Doomed" {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if _, ok := store.prompts[p.ID]; ok {
		t.Error("prompt still in store after delete")
	}
}

func TestSnapshotAndRestoreFlow(t *testing.T) {
	svc, _ := testService(t)

	p, err := svc.CreatePrompt(t.Context(), "user-1", CreateInput{
		Title:      "Versioned",
		OwnerScope: OwnerPersonal,
		Content:    []ContentBlock{{Order: 0, Type: BlockText, Value: "v1 text"}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	snapped, err := svc.SnapshotPrompt(t.Context(), "user-1", p.ID, "checkpoint")
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if len(snapped.Versions) != 1 || snapped.Versions[0].Notes != "checkpoint" {
		t.Fatalf("unexpected versions: %+v", snapped.Versions)
	}

	newContent := []ContentBlock{{Order: 0, Type: BlockText, Value: "v2 text"}}
	if _, err := svc.UpdatePrompt(t.Context(), "user-1", p.ID, Patch{Content: &newContent}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	restored, err := svc.RestorePromptVersion(t.Context(), "user-1", p.ID, snapped.Versions[0].ID)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.Content[0].Value != "v1 text" {
		t.Errorf("expected restored content, got %q", restored.Content[0].Value)
	}
	if len(restored.Versions) != 1 {
		t.Errorf("restore must not change history length, got %d", len(restored.Versions))
	}

	if _, err := svc.RestorePromptVersion(t.Context(), "user-1", p.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

type staticEnhancer struct {
	out string
	err error
}

func (e staticEnhancer) Enhance(context.Context, string, string) (string, error) {
	return e.out, e.err
}

func TestSnapshotEnhancement(t *testing.T) {
	t.Run("enhanced text attached", func(t *testing.T) {
		store := newMemStore()
		gw := projectFixture()
		svc := NewService(store, gw, testResolver(gw), WithEnhancer(staticEnhancer{out: "polished"}))

		p, err := svc.CreatePrompt(t.Context(), "user-1", CreateInput{Title: "E", OwnerScope: OwnerPersonal})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		snapped, err := svc.SnapshotPrompt(t.Context(), "user-1", p.ID, "")
		if err != nil {
			t.Fatalf("snapshot failed: %v", err)
		}
		if snapped.Versions[0].AIEnhancedContent != "polished" {
			t.Errorf("expected enhanced content, got %q", snapped.Versions[0].AIEnhancedContent)
		}
	})

	t.Run("enhancement failure does not fail snapshot", func(t *testing.T) {
		store := newMemStore()
		gw := projectFixture()
		svc := NewService(store, gw, testResolver(gw), WithEnhancer(staticEnhancer{err: errors.New("rate limited")}))

		p, err := svc.CreatePrompt(t.Context(), "user-1", CreateInput{Title: "E", OwnerScope: OwnerPersonal})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		snapped, err := svc.SnapshotPrompt(t.Context(), "user-1", p.ID, "")
		if err != nil {
			t.Fatalf("snapshot must succeed despite enhancer error: %v", err)
		}
		if snapped.Versions[0].AIEnhancedContent != "" {
			t.Errorf("expected no enhanced content, got %q", snapped.Versions[0].AIEnhancedContent)
		}
	})
}

func TestRenderPrompt(t *testing.T) {
	svc, _ := testService(t)

	p, err := svc.CreatePrompt(t.Context(), "user-1", CreateInput{
		Title:      "Member digest",
		OwnerScope: OwnerProject,
		ProjectID:  "proj-1",
		Content: []ContentBlock{
			{Order: 0, Type: BlockText, Value: "Team: "},
			{Order: 1, Type: BlockVariable, VariableID: "v1"},
		},
		Variables: []PromptVariable{{
			ID:     "v1",
			Name:   "team",
			Source: MemberListSource{Format: FormatCommaSeparated},
		}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	out, err := svc.RenderPrompt(t.Context(), "user-1", p.ID)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if out != "Team: Ada Park, Ben Ito" {
		t.Errorf("unexpected render: %q", out)
	}
}

func TestRenderPersonalPromptHasNoProjectContext(t *testing.T) {
	svc, _ := testService(t)

	p, err := svc.CreatePrompt(t.Context(), "user-1", CreateInput{
		Title:      "Personal",
		OwnerScope: OwnerPersonal,
		Content: []ContentBlock{
			{Order: 0, Type: BlockVariable, VariableID: "v1"},
		},
		Variables: []PromptVariable{{
			ID:     "v1",
			Name:   "tasks",
			Source: TasksAggregationSource{Aggregation: AggCount},
		}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	out, err := svc.RenderPrompt(t.Context(), "user-1", p.ID)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if out != SentinelProjectRequired {
		t.Errorf("expected %q, got %q", SentinelProjectRequired, out)
	}
}

func TestResolveVariableStandalone(t *testing.T) {
	svc, _ := testService(t)

	out, err := svc.ResolveVariable(t.Context(), "user-1", UserFieldSource{Field: "firstName"}, "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if out != "Ada" {
		t.Errorf("expected Ada, got %q", out)
	}

	if _, err := svc.ResolveVariable(t.Context(), "", UserFieldSource{Field: "firstName"}, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestListPrompts(t *testing.T) {
	svc, _ := testService(t)

	for _, title := range []string{"One", "Two"} {
		if _, err := svc.CreatePrompt(t.Context(), "user-1", CreateInput{Title: title, OwnerScope: OwnerPersonal}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	if _, err := svc.CreatePrompt(t.Context(), "user-2", CreateInput{Title: "Other", OwnerScope: OwnerPersonal}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	mine, err := svc.ListPrompts(t.Context(), "user-1", OwnerPersonal, "", ListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("expected 2 personal prompts, got %d", len(mine))
	}

	if _, err := svc.ListPrompts(t.Context(), "outsider", OwnerProject, "proj-1", ListFilter{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}
