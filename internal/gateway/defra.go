package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeworks/promptlab/internal/defra"
)

// DefraGateway implements ProjectData against DefraDB collections.
type DefraGateway struct {
	client *defra.Client
}

// NewDefraGateway creates a gateway over the given DefraDB client.
func NewDefraGateway(client *defra.Client) *DefraGateway {
	return &DefraGateway{client: client}
}

// ListTasks returns a project's tasks, oldest first.
func (g *DefraGateway) ListTasks(ctx context.Context, projectID string, filter TaskFilter) ([]Task, error) {
	conds := fmt.Sprintf(`project_id: {_eq: %q}`, projectID)
	if filter.Status != "" {
		conds += fmt.Sprintf(`, status: {_eq: %q}`, filter.Status)
	}
	if filter.Priority != "" {
		conds += fmt.Sprintf(`, priority: {_eq: %q}`, filter.Priority)
	}
	if filter.AssigneeID != "" {
		conds += fmt.Sprintf(`, assignee_id: {_eq: %q}`, filter.AssigneeID)
	}

	query := fmt.Sprintf(`{
		Task(filter: {%s}, order: {created_at: ASC}) {
			_docID
			title
			status
			priority
			assignee_id
			created_at
		}
	}`, conds)

	data, err := g.query(ctx, query)
	if err != nil {
		return nil, err
	}

	var tasks []Task
	for _, doc := range defra.Docs(data, "Task") {
		tasks = append(tasks, Task{
			ID:         getString(doc, "_docID"),
			Title:      getString(doc, "title"),
			Status:     getString(doc, "status"),
			Priority:   getString(doc, "priority"),
			AssigneeID: getString(doc, "assignee_id"),
			CreatedAt:  getTime(doc, "created_at"),
		})
	}
	return tasks, nil
}

// ListSprints returns a project's sprints ordered by start date ascending.
func (g *DefraGateway) ListSprints(ctx context.Context, projectID string, filter SprintFilter) ([]Sprint, error) {
	conds := fmt.Sprintf(`project_id: {_eq: %q}`, projectID)
	if filter.Status != "" {
		conds += fmt.Sprintf(`, status: {_eq: %q}`, filter.Status)
	}

	query := fmt.Sprintf(`{
		Sprint(filter: {%s}, order: {start_date: ASC}) {
			_docID
			name
			status
			start_date
			end_date
		}
	}`, conds)

	data, err := g.query(ctx, query)
	if err != nil {
		return nil, err
	}

	var sprints []Sprint
	for _, doc := range defra.Docs(data, "Sprint") {
		sprints = append(sprints, Sprint{
			ID:        getString(doc, "_docID"),
			Name:      getString(doc, "name"),
			Status:    getString(doc, "status"),
			StartDate: getTime(doc, "start_date"),
			EndDate:   getTime(doc, "end_date"),
		})
	}
	return sprints, nil
}

// ListDocuments returns a project's documents, most recently updated first.
func (g *DefraGateway) ListDocuments(ctx context.Context, projectID string) ([]Document, error) {
	query := fmt.Sprintf(`{
		Document(filter: {project_id: {_eq: %q}}, order: {updated_at: DESC}) {
			_docID
			title
			content
			updated_at
		}
	}`, projectID)

	data, err := g.query(ctx, query)
	if err != nil {
		return nil, err
	}

	var docs []Document
	for _, doc := range defra.Docs(data, "Document") {
		docs = append(docs, Document{
			ID:        getString(doc, "_docID"),
			Title:     getString(doc, "title"),
			Content:   getString(doc, "content"),
			UpdatedAt: getTime(doc, "updated_at"),
		})
	}
	return docs, nil
}

// ListMembers returns a project's members ordered by join time ascending.
func (g *DefraGateway) ListMembers(ctx context.Context, projectID string, filter MemberFilter) ([]Member, error) {
	conds := fmt.Sprintf(`project_id: {_eq: %q}`, projectID)
	if filter.Role != "" {
		conds += fmt.Sprintf(`, role: {_eq: %q}`, filter.Role)
	}

	query := fmt.Sprintf(`{
		Member(filter: {%s}, order: {joined_at: ASC}) {
			user_id
			first_name
			last_name
			role
			joined_at
		}
	}`, conds)

	data, err := g.query(ctx, query)
	if err != nil {
		return nil, err
	}

	var members []Member
	for _, doc := range defra.Docs(data, "Member") {
		members = append(members, Member{
			UserID:    getString(doc, "user_id"),
			FirstName: getString(doc, "first_name"),
			LastName:  getString(doc, "last_name"),
			Role:      getString(doc, "role"),
			JoinedAt:  getTime(doc, "joined_at"),
		})
	}
	return members, nil
}

// GetWorkspace returns the workspace owning the given project, or nil when
// either the project or its workspace is absent.
func (g *DefraGateway) GetWorkspace(ctx context.Context, projectID string) (*Workspace, error) {
	query := fmt.Sprintf(`{
		Project(filter: {_docID: {_eq: %q}}) {
			workspace_id
		}
	}`, projectID)

	data, err := g.query(ctx, query)
	if err != nil {
		return nil, err
	}

	projects := defra.Docs(data, "Project")
	if len(projects) == 0 {
		return nil, nil
	}
	workspaceID := getString(projects[0], "workspace_id")
	if workspaceID == "" {
		return nil, nil
	}

	query = fmt.Sprintf(`{
		Workspace(filter: {_docID: {_eq: %q}}) {
			name
			industry
			team_size
		}
	}`, workspaceID)

	data, err = g.query(ctx, query)
	if err != nil {
		return nil, err
	}

	workspaces := defra.Docs(data, "Workspace")
	if len(workspaces) == 0 {
		return nil, nil
	}
	return &Workspace{
		Name:     getString(workspaces[0], "name"),
		Industry: getString(workspaces[0], "industry"),
		TeamSize: getInt(workspaces[0], "team_size"),
	}, nil
}

// GetUser returns a user record, or nil when absent.
func (g *DefraGateway) GetUser(ctx context.Context, userID string) (*User, error) {
	query := fmt.Sprintf(`{
		User(filter: {_docID: {_eq: %q}}) {
			first_name
			email
		}
	}`, userID)

	data, err := g.query(ctx, query)
	if err != nil {
		return nil, err
	}

	users := defra.Docs(data, "User")
	if len(users) == 0 {
		return nil, nil
	}
	return &User{
		FirstName: getString(users[0], "first_name"),
		Email:     getString(users[0], "email"),
	}, nil
}

func (g *DefraGateway) query(ctx context.Context, query string) (map[string]any, error) {
	resp, err := g.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("graphql error: %s", errMsg)
	}
	return resp.Data, nil
}

// getString safely extracts a string from a map.
func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// getInt safely extracts an int from a map (GraphQL numbers decode as float64).
func getInt(m map[string]any, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}

// getTime parses an RFC3339 timestamp field, returning the zero time on failure.
func getTime(m map[string]any, key string) time.Time {
	if v, ok := m[key].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
