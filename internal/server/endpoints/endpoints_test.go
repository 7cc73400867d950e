package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/forgeworks/promptlab/internal/api"
	"github.com/forgeworks/promptlab/internal/gateway"
	"github.com/forgeworks/promptlab/internal/prompt"
	"github.com/forgeworks/promptlab/internal/svcctx"
)

// memStore is an in-memory prompt.Storage for handler tests.
type memStore struct {
	prompts map[string]*prompt.Prompt
	nextID  int
}

func newMemStore() *memStore {
	return &memStore{prompts: make(map[string]*prompt.Prompt)}
}

func (m *memStore) List(ctx context.Context, scope prompt.OwnerScope, ownerID string, filter prompt.ListFilter) ([]prompt.PromptSummary, error) {
	var out []prompt.PromptSummary
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

func (m *memStore) ListPublic(ctx context.Context, filter prompt.ListFilter) ([]prompt.PromptSummary, error) {
	var out []prompt.PromptSummary
	for _, p := range m.prompts {
		if p.IsPublic {
			out = append(out, p.Summary())
		}
	}
	return out, nil
}

func (m *memStore) Get(ctx context.Context, id string) (*prompt.Prompt, error) {
	p, ok := m.prompts[id]
	if !ok {
		return nil, prompt.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memStore) Create(ctx context.Context, p *prompt.Prompt) error {
	m.nextID++
	p.ID = fmt.Sprintf("prompt-%d", m.nextID)
	clone := *p
	m.prompts[p.ID] = &clone
	return nil
}

func (m *memStore) Update(ctx context.Context, p *prompt.Prompt) error {
	if _, ok := m.prompts[p.ID]; !ok {
		return prompt.ErrNotFound
	}
	clone := *p
	m.prompts[p.ID] = &clone
	return nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.prompts[id]; !ok {
		return prompt.ErrNotFound
	}
	delete(m.prompts, id)
	return nil
}

// fakeGateway serves fixed project records for proj-1.
type fakeGateway struct{}

func (fakeGateway) ListTasks(ctx context.Context, projectID string, filter gateway.TaskFilter) ([]gateway.Task, error) {
	if projectID != "proj-1" {
		return nil, nil
	}
	return []gateway.Task{
		{ID: "t1", Title: "Design schema", Status: "DONE", CreatedAt: time.Now()},
		{ID: "t2", Title: "Ship API", Status: "IN_PROGRESS", CreatedAt: time.Now()},
	}, nil
}

func (fakeGateway) ListSprints(ctx context.Context, projectID string, filter gateway.SprintFilter) ([]gateway.Sprint, error) {
	return nil, nil
}

func (fakeGateway) ListDocuments(ctx context.Context, projectID string) ([]gateway.Document, error) {
	return nil, nil
}

func (fakeGateway) ListMembers(ctx context.Context, projectID string, filter gateway.MemberFilter) ([]gateway.Member, error) {
	if projectID != "proj-1" {
		return nil, nil
	}
	return []gateway.Member{
		{UserID: "user-1", FirstName: "Ada", LastName: "Park", Role: "admin"},
		{UserID: "user-2", FirstName: "Ben", LastName: "Ito", Role: "member"},
	}, nil
}

func (fakeGateway) GetWorkspace(ctx context.Context, projectID string) (*gateway.Workspace, error) {
	return &gateway.Workspace{Name: "Forgeworks", TeamSize: 12}, nil
}

func (fakeGateway) GetUser(ctx context.Context, userID string) (*gateway.User, error) {
	if userID == "user-1" {
		return &gateway.User{FirstName: "Ada", Email: "ada@example.com"}, nil
	}
	return nil, nil
}

// newTestServer wires the full endpoint registry over in-memory services.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	gw := fakeGateway{}
	svc := prompt.NewService(newMemStore(), gw, prompt.NewResolver(gw))
	services := &svcctx.Services{
		Prompts: svc,
		Gateway: gw,
	}

	registry := api.NewRegistry()
	for _, ep := range All(Config{}) {
		registry.Register(ep)
	}

	mux := http.NewServeMux()
	registry.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc { return next })

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), services)))
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("health.Status = %q, want %q", health.Status, "ok")
	}
}

func TestPromptLifecycle(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	client := api.NewClient(srv.URL, api.WithUser("user-1")).Prompts()

	created, err := client.CreatePrompt(ctx, prompt.CreateInput{
		Title:      "Standup notes",
		Category:   "meetings",
		OwnerScope: prompt.OwnerPersonal,
		Content: []prompt.ContentBlock{
			{Order: 0, Type: prompt.BlockText, Value: "Hello"},
		},
	})
	if err != nil {
		t.Fatalf("CreatePrompt() error = %v", err)
	}
	if created.ID == "" {
		t.Fatal("created prompt has no id")
	}
	if created.OwnerID != "user-1" {
		t.Errorf("OwnerID = %q, want user-1", created.OwnerID)
	}

	got, err := client.GetPromptDetail(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPromptDetail() error = %v", err)
	}
	if got.Title != "Standup notes" {
		t.Errorf("Title = %q", got.Title)
	}

	summaries, err := client.ListPrompts(ctx, prompt.OwnerPersonal, "")
	if err != nil {
		t.Fatalf("ListPrompts() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}

	title := "Standup notes v2"
	updated, err := client.UpdatePrompt(ctx, created.ID, prompt.Patch{Title: &title})
	if err != nil {
		t.Fatalf("UpdatePrompt() error = %v", err)
	}
	if updated.Title != title {
		t.Errorf("updated Title = %q, want %q", updated.Title, title)
	}

	snapped, err := client.SnapshotPrompt(ctx, created.ID, "first cut")
	if err != nil {
		t.Fatalf("SnapshotPrompt() error = %v", err)
	}
	if len(snapped.Versions) != 1 {
		t.Fatalf("got %d versions, want 1", len(snapped.Versions))
	}
	if snapped.Versions[0].Notes != "first cut" {
		t.Errorf("version notes = %q", snapped.Versions[0].Notes)
	}

	restored, err := client.RestorePromptVersion(ctx, created.ID, snapped.Versions[0].ID)
	if err != nil {
		t.Fatalf("RestorePromptVersion() error = %v", err)
	}
	if len(restored.Versions) != 1 {
		t.Errorf("restore changed version count to %d", len(restored.Versions))
	}

	summary, err := client.DeletePrompt(ctx, created.ID)
	if err != nil {
		t.Fatalf("DeletePrompt() error = %v", err)
	}
	if summary.ID != created.ID {
		t.Errorf("deleted summary.ID = %q, want %q", summary.ID, created.ID)
	}

	if _, err := client.GetPromptDetail(ctx, created.ID); !errors.Is(err, prompt.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
}

func TestCreateValidation(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	client := api.NewClient(srv.URL, api.WithUser("user-1")).Prompts()

	_, err := client.CreatePrompt(ctx, prompt.CreateInput{OwnerScope: prompt.OwnerPersonal})
	if !errors.Is(err, prompt.ErrBadInput) {
		t.Errorf("missing title = %v, want ErrBadInput", err)
	}

	_, err = client.CreatePrompt(ctx, prompt.CreateInput{Title: "x", OwnerScope: prompt.OwnerProject})
	if !errors.Is(err, prompt.ErrBadInput) {
		t.Errorf("project scope without project = %v, want ErrBadInput", err)
	}
}

func TestAuthorization(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	owner := api.NewClient(srv.URL, api.WithUser("user-1")).Prompts()

	created, err := owner.CreatePrompt(ctx, prompt.CreateInput{
		Title:      "Private notes",
		OwnerScope: prompt.OwnerPersonal,
	})
	if err != nil {
		t.Fatalf("CreatePrompt() error = %v", err)
	}

	stranger := api.NewClient(srv.URL, api.WithUser("user-9")).Prompts()
	if _, err := stranger.GetPromptDetail(ctx, created.ID); !errors.Is(err, prompt.ErrForbidden) {
		t.Errorf("stranger get = %v, want ErrForbidden", err)
	}

	anon := api.NewClient(srv.URL).Prompts()
	if _, err := anon.GetPromptDetail(ctx, created.ID); !errors.Is(err, prompt.ErrUnauthenticated) {
		t.Errorf("anonymous get = %v, want ErrUnauthenticated", err)
	}
}

func TestRenderAndResolve(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	client := api.NewClient(srv.URL, api.WithUser("user-1")).Prompts()

	created, err := client.CreatePrompt(ctx, prompt.CreateInput{
		Title:      "Team intro",
		OwnerScope: prompt.OwnerProject,
		ProjectID:  "proj-1",
		Content: []prompt.ContentBlock{
			{Order: 0, Type: prompt.BlockText, Value: "Team: "},
			{Order: 1, Type: prompt.BlockVariable, VariableID: "var-team"},
		},
		Variables: []prompt.PromptVariable{
			{ID: "var-team", Name: "team", Source: prompt.MemberListSource{}},
		},
	})
	if err != nil {
		t.Fatalf("CreatePrompt() error = %v", err)
	}

	rendered, err := client.RenderPrompt(ctx, created.ID)
	if err != nil {
		t.Fatalf("RenderPrompt() error = %v", err)
	}
	if rendered != "Team: Ada Park, Ben Ito" {
		t.Errorf("rendered = %q", rendered)
	}

	value, err := client.ResolveVariable(ctx, prompt.WorkspaceFieldSource{Field: "name"}, "proj-1")
	if err != nil {
		t.Fatalf("ResolveVariable() error = %v", err)
	}
	if value != "Forgeworks" {
		t.Errorf("resolved value = %q, want Forgeworks", value)
	}

	// Without project context the resolver answers with a sentinel, not an error
	value, err = client.ResolveVariable(ctx, prompt.WorkspaceFieldSource{Field: "name"}, "")
	if err != nil {
		t.Fatalf("ResolveVariable() without project error = %v", err)
	}
	if !prompt.IsSentinel(value) {
		t.Errorf("value without project = %q, want sentinel", value)
	}
}

func TestListProjectData(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/projects/proj-1/members?role=admin")
	if err != nil {
		t.Fatalf("members request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("members status = %d", resp.StatusCode)
	}

	var members []gateway.Member
	if err := json.NewDecoder(resp.Body).Decode(&members); err != nil {
		t.Fatalf("failed to decode members: %v", err)
	}
	// fakeGateway ignores the role filter; both fixture members come back
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}

	resp, err = http.Get(srv.URL + "/api/projects/proj-1/tasks")
	if err != nil {
		t.Fatalf("tasks request failed: %v", err)
	}
	defer resp.Body.Close()

	var tasks []gateway.Task
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		t.Fatalf("failed to decode tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}

	// no sprint fixtures for proj-1; the handler still returns an empty array
	resp, err = http.Get(srv.URL + "/api/projects/proj-1/sprints")
	if err != nil {
		t.Fatalf("sprints request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sprints status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read sprints body: %v", err)
	}
	if got := strings.TrimSpace(string(body)); got != "[]" {
		t.Errorf("sprints body = %q, want []", got)
	}
}

func TestDomainErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/prompts/nope", nil)
	req.Header.Set(api.UserHeader, "user-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown prompt status = %d, want 404", resp.StatusCode)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if !strings.Contains(errResp.Error, "not found") {
		t.Errorf("error message = %q", errResp.Error)
	}
}
