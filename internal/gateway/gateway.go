// Package gateway provides read access to a project's live data: tasks,
// sprints, documents, members, the owning workspace, and user records.
// Variable resolution consumes this interface; it never writes through it.
package gateway

import (
	"context"
	"time"
)

// Task is a single task row as seen by variable resolution.
type Task struct {
	ID         string
	Title      string
	Status     string
	Priority   string
	AssigneeID string
	CreatedAt  time.Time
}

// Sprint is a single sprint row.
type Sprint struct {
	ID        string
	Name      string
	Status    string
	StartDate time.Time
	EndDate   time.Time
}

// Document is a single project document row.
type Document struct {
	ID        string
	Title     string
	Content   string
	UpdatedAt time.Time
}

// Member is a project membership row.
type Member struct {
	UserID    string
	FirstName string
	LastName  string
	Role      string
	JoinedAt  time.Time
}

// Workspace holds the workspace fields exposed to variable resolution.
type Workspace struct {
	Name     string
	Industry string
	TeamSize int
}

// User holds the user fields exposed to variable resolution.
type User struct {
	FirstName string
	Email     string
}

// TaskFilter restricts task listings. Zero-value fields match everything.
type TaskFilter struct {
	Status     string
	Priority   string
	AssigneeID string
}

// SprintFilter restricts sprint listings.
type SprintFilter struct {
	Status string
}

// MemberFilter restricts member listings.
type MemberFilter struct {
	Role string
}

// ProjectData is the read-only gateway to project records.
//
// Implementations must return deterministic orderings for a fixed store
// state: tasks by creation time ascending, sprints by start date ascending,
// documents by update time descending, members by join time ascending.
type ProjectData interface {
	ListTasks(ctx context.Context, projectID string, filter TaskFilter) ([]Task, error)
	ListSprints(ctx context.Context, projectID string, filter SprintFilter) ([]Sprint, error)
	ListDocuments(ctx context.Context, projectID string) ([]Document, error)
	ListMembers(ctx context.Context, projectID string, filter MemberFilter) ([]Member, error)
	GetWorkspace(ctx context.Context, projectID string) (*Workspace, error)
	GetUser(ctx context.Context, userID string) (*User, error)
}
