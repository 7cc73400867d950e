package prompt

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/forgeworks/promptlab/internal/defra"
)

func storeFixtureDoc() map[string]any {
	content, _ := json.Marshal([]ContentBlock{
		{Order: 0, Type: BlockText, Value: "Hello "},
		{Order: 1, Type: BlockVariable, VariableID: "v1"},
	})
	variables, _ := json.Marshal([]PromptVariable{{
		ID:     "v1",
		Name:   "name",
		Source: UserFieldSource{Field: "firstName"},
	}})
	versions, _ := json.Marshal([]Version{{
		ID:        "ver-1",
		Content:   []ContentBlock{{Order: 0, Type: BlockText, Value: "old"}},
		CreatedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Notes:     "first",
	}})
	return map[string]any{
		"_docID":         "prompt-1",
		"title":          "Greeting",
		"description":    "says hi",
		"category":       "misc",
		"tags":           []any{"greeting", "demo"},
		"is_public":      true,
		"model":          "gpt-4o-mini",
		"owner_scope":    "personal",
		"owner_id":       "user-1",
		"context":        "friendly tone",
		"content_json":   string(content),
		"variables_json": string(variables),
		"versions_json":  string(versions),
		"version_count":  float64(1),
		"created_at":     "2026-01-01T00:00:00Z",
		"updated_at":     "2026-01-06T00:00:00Z",
	}
}

func mockStoreServer(t *testing.T, docs []map[string]any) (*httptest.Server, *[]string) {
	t.Helper()
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req defra.GQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		queries = append(queries, req.Query)

		resp := defra.GQLResponse{Data: map[string]any{}}
		switch {
		case strings.HasPrefix(strings.TrimSpace(req.Query), "mutation { create_Prompt"):
			resp.Data["create_Prompt"] = []any{map[string]any{"_docID": "prompt-new"}}
		case strings.HasPrefix(strings.TrimSpace(req.Query), "mutation"):
			resp.Data["update_Prompt"] = []any{map[string]any{"_docID": "prompt-1"}}
		default:
			anyDocs := make([]any, 0, len(docs))
			for _, d := range docs {
				anyDocs = append(anyDocs, d)
			}
			resp.Data["Prompt"] = anyDocs
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &queries
}

func TestStoreGet(t *testing.T) {
	srv, _ := mockStoreServer(t, []map[string]any{storeFixtureDoc()})
	store := NewStore(defra.NewClient(srv.URL))

	p, err := store.Get(t.Context(), "prompt-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if p.ID != "prompt-1" || p.Title != "Greeting" {
		t.Errorf("unexpected identity: %s %q", p.ID, p.Title)
	}
	if len(p.Content) != 2 || p.Content[1].VariableID != "v1" {
		t.Errorf("content not decoded: %+v", p.Content)
	}
	if len(p.Variables) != 1 {
		t.Fatalf("variables not decoded: %+v", p.Variables)
	}
	src, ok := p.Variables[0].Source.(UserFieldSource)
	if !ok || src.Field != "firstName" {
		t.Errorf("variable source not decoded: %#v", p.Variables[0].Source)
	}
	if len(p.Versions) != 1 || p.Versions[0].Notes != "first" {
		t.Errorf("versions not decoded: %+v", p.Versions)
	}
	if p.Context != "friendly tone" {
		t.Errorf("context not decoded: %q", p.Context)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	srv, _ := mockStoreServer(t, nil)
	store := NewStore(defra.NewClient(srv.URL))

	_, err := store.Get(t.Context(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreListSelectsSummaryFieldsOnly(t *testing.T) {
	srv, queries := mockStoreServer(t, []map[string]any{storeFixtureDoc()})
	store := NewStore(defra.NewClient(srv.URL))

	summaries, err := store.List(t.Context(), OwnerPersonal, "user-1", ListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].VersionCount != 1 {
		t.Errorf("expected version count 1, got %d", summaries[0].VersionCount)
	}

	q := (*queries)[0]
	for _, heavy := range []string{"content_json", "variables_json", "versions_json", "context"} {
		if strings.Contains(q, heavy) {
			t.Errorf("list query must not select %s:\n%s", heavy, q)
		}
	}
	if !strings.Contains(q, `owner_scope: {_eq: "personal"}`) || !strings.Contains(q, `owner_id: {_eq: "user-1"}`) {
		t.Errorf("list query missing owner filter:\n%s", q)
	}
	if !strings.Contains(q, "order: {updated_at: DESC}") {
		t.Errorf("list query missing order clause:\n%s", q)
	}
}

func TestStoreListTagFilter(t *testing.T) {
	srv, _ := mockStoreServer(t, []map[string]any{storeFixtureDoc()})
	store := NewStore(defra.NewClient(srv.URL))

	hit, err := store.List(t.Context(), OwnerPersonal, "user-1", ListFilter{Tag: "demo"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(hit) != 1 {
		t.Errorf("expected tag match, got %d rows", len(hit))
	}

	miss, err := store.List(t.Context(), OwnerPersonal, "user-1", ListFilter{Tag: "unrelated"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(miss) != 0 {
		t.Errorf("expected no tag match, got %d rows", len(miss))
	}
}

func TestStoreCreateAssignsID(t *testing.T) {
	srv, queries := mockStoreServer(t, nil)
	store := NewStore(defra.NewClient(srv.URL))

	p := &Prompt{
		Title:      "New",
		OwnerScope: OwnerPersonal,
		OwnerID:    "user-1",
		Tags:       []string{"a", "b"},
		CreatedAt:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.Create(t.Context(), p); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if p.ID != "prompt-new" {
		t.Errorf("expected assigned id, got %q", p.ID)
	}
	if !strings.Contains((*queries)[0], "create_Prompt") {
		t.Errorf("unexpected mutation: %s", (*queries)[0])
	}
}

func TestStoreRoundTripThroughJSONColumns(t *testing.T) {
	// Writing a prompt and reading back the same document must reproduce
	// the typed fields, including the discriminated variable sources.
	p := &Prompt{
		ID:      "prompt-1",
		Title:   "Round trip",
		Content: []ContentBlock{{Order: 0, Type: BlockVariable, VariableID: "v1"}},
		Variables: []PromptVariable{{
			ID:     "v1",
			Name:   "sprint",
			Source: SprintFieldSource{Field: "name"},
		}},
		OwnerScope: OwnerPersonal,
		OwnerID:    "user-1",
		CreatedAt:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
	}

	doc := promptToDoc(p)
	doc["_docID"] = p.ID
	// GraphQL responses deliver tags as []any and counts as float64.
	doc["tags"] = nil
	doc["version_count"] = float64(0)

	back, err := docToPrompt(doc)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if back.Title != p.Title || back.OwnerID != p.OwnerID {
		t.Errorf("identity fields lost: %+v", back)
	}
	src, ok := back.Variables[0].Source.(SprintFieldSource)
	if !ok || src.Field != "name" {
		t.Errorf("source lost in round trip: %#v", back.Variables[0].Source)
	}
	if !back.UpdatedAt.Equal(p.UpdatedAt) {
		t.Errorf("timestamps lost: %v", back.UpdatedAt)
	}
}
