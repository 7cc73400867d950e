package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgeworks/promptlab/internal/api"
	"github.com/forgeworks/promptlab/internal/gateway"
	"github.com/forgeworks/promptlab/internal/svcctx"
)

// SeedRequest carries project records to load into the store. Every section
// is optional.
type SeedRequest struct {
	Workspaces []SeedWorkspace `json:"workspaces,omitempty"`
	Projects   []SeedProject   `json:"projects,omitempty"`
	Users      []SeedUser      `json:"users,omitempty"`
	Tasks      []SeedTask      `json:"tasks,omitempty"`
	Sprints    []SeedSprint    `json:"sprints,omitempty"`
	Documents  []SeedDocument  `json:"documents,omitempty"`
	Members    []SeedMember    `json:"members,omitempty"`
}

type SeedWorkspace struct {
	Name      string `json:"name"`
	Industry  string `json:"industry,omitempty"`
	TeamSize  int    `json:"teamSize,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type SeedProject struct {
	WorkspaceID string `json:"workspaceId,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

type SeedUser struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type SeedTask struct {
	ProjectID  string `json:"projectId"`
	Title      string `json:"title"`
	Status     string `json:"status,omitempty"`
	Priority   string `json:"priority,omitempty"`
	AssigneeID string `json:"assigneeId,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

type SeedSprint struct {
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	Status    string `json:"status,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

type SeedDocument struct {
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
	Content   string `json:"content,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type SeedMember struct {
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role,omitempty"`
	JoinedAt  string `json:"joinedAt,omitempty"`
}

// SeedResponse reports per-collection document IDs for the created records.
type SeedResponse struct {
	Created map[string][]string `json:"created"`
}

// SeedEndpoint handles POST /api/projectdata.
// It loads workspace, project, user, task, sprint, document, and member
// records for variable resolution to read.
type SeedEndpoint struct{}

func (e *SeedEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/projectdata", e.handler
}

func (e *SeedEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Load project records
//	@Description	Create workspace, project, user, task, sprint, document, and member records in one call
//	@Tags			projectdata
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SeedRequest	true	"Records to create"
//	@Success		201	{object}	SeedResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/projectdata [post]
func (e *SeedEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	client := svcctx.DefraClientFrom(r.Context())
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "defra client not initialized")
		return
	}

	raw, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req SeedRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp := SeedResponse{Created: make(map[string][]string)}
	create := func(collection string, doc map[string]any) bool {
		docID, err := client.Create(r.Context(), collection, doc)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create %s: %v", collection, err))
			return false
		}
		resp.Created[collection] = append(resp.Created[collection], docID)
		return true
	}

	for _, ws := range req.Workspaces {
		if !create("Workspace", map[string]any{
			"name":       ws.Name,
			"industry":   ws.Industry,
			"team_size":  ws.TeamSize,
			"created_at": ws.CreatedAt,
		}) {
			return
		}
	}
	for _, p := range req.Projects {
		if !create("Project", map[string]any{
			"workspace_id": p.WorkspaceID,
			"name":         p.Name,
			"description":  p.Description,
			"status":       p.Status,
			"created_at":   p.CreatedAt,
		}) {
			return
		}
	}
	for _, u := range req.Users {
		if !create("User", map[string]any{
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"email":      u.Email,
			"created_at": u.CreatedAt,
		}) {
			return
		}
	}
	for _, t := range req.Tasks {
		if !create("Task", map[string]any{
			"project_id":  t.ProjectID,
			"title":       t.Title,
			"status":      t.Status,
			"priority":    t.Priority,
			"assignee_id": t.AssigneeID,
			"created_at":  t.CreatedAt,
		}) {
			return
		}
	}
	for _, s := range req.Sprints {
		if !create("Sprint", map[string]any{
			"project_id": s.ProjectID,
			"name":       s.Name,
			"status":     s.Status,
			"start_date": s.StartDate,
			"end_date":   s.EndDate,
		}) {
			return
		}
	}
	for _, d := range req.Documents {
		if !create("Document", map[string]any{
			"project_id": d.ProjectID,
			"title":      d.Title,
			"content":    d.Content,
			"updated_at": d.UpdatedAt,
		}) {
			return
		}
	}
	for _, m := range req.Members {
		if !create("Member", map[string]any{
			"project_id": m.ProjectID,
			"user_id":    m.UserID,
			"first_name": m.FirstName,
			"last_name":  m.LastName,
			"role":       m.Role,
			"joined_at":  m.JoinedAt,
		}) {
			return
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (e *SeedEndpoint) Command(getServerURL func() string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load project records from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}

			var req SeedRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("invalid seed JSON: %w", err)
			}

			client := apiClient(getServerURL)
			var resp SeedResponse
			if err := client.Post(cmd.Context(), "/api/projectdata", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to a JSON file with project records")
	cmd.MarkFlagRequired("file")
	return cmd
}

// ListTasksEndpoint handles GET /api/projects/{id}/tasks.
type ListTasksEndpoint struct{}

func (e *ListTasksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/projects/{id}/tasks", e.handler
}

func (e *ListTasksEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List project tasks
//	@Tags			projectdata
//	@Produce		json
//	@Param			id			path		string	false	"Project ID"
//	@Param			status		query		string	false	"Filter by status"
//	@Param			priority	query		string	false	"Filter by priority"
//	@Param			assignee	query		string	false	"Filter by assignee ID"
//	@Success		200	{array}		gateway.Task
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/projects/{id}/tasks [get]
func (e *ListTasksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	gw := svcctx.GatewayFrom(r.Context())
	if gw == nil {
		writeError(w, http.StatusServiceUnavailable, "gateway not initialized")
		return
	}

	q := r.URL.Query()
	tasks, err := gw.ListTasks(r.Context(), r.PathValue("id"), gateway.TaskFilter{
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		AssigneeID: q.Get("assignee"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []gateway.Task{}
	}

	writeJSON(w, http.StatusOK, tasks)
}

func (e *ListTasksEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks <project-id>",
		Short: "List tasks in a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiClient(getServerURL)
			var tasks []gateway.Task
			if err := client.Get(cmd.Context(), "/api/projects/"+args[0]+"/tasks", &tasks); err != nil {
				return err
			}
			return api.Output(tasks)
		},
	}
}

// ListSprintsEndpoint handles GET /api/projects/{id}/sprints.
type ListSprintsEndpoint struct{}

func (e *ListSprintsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/projects/{id}/sprints", e.handler
}

func (e *ListSprintsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List project sprints
//	@Tags			projectdata
//	@Produce		json
//	@Param			id		path		string	true	"Project ID"
//	@Param			status	query		string	false	"Filter by status"
//	@Success		200	{array}		gateway.Sprint
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/projects/{id}/sprints [get]
func (e *ListSprintsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	gw := svcctx.GatewayFrom(r.Context())
	if gw == nil {
		writeError(w, http.StatusServiceUnavailable, "gateway not initialized")
		return
	}

	sprints, err := gw.ListSprints(r.Context(), r.PathValue("id"), gateway.SprintFilter{
		Status: r.URL.Query().Get("status"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sprints == nil {
		sprints = []gateway.Sprint{}
	}

	writeJSON(w, http.StatusOK, sprints)
}

func (e *ListSprintsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "sprints <project-id>",
		Short: "List sprints in a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiClient(getServerURL)
			var sprints []gateway.Sprint
			if err := client.Get(cmd.Context(), "/api/projects/"+args[0]+"/sprints", &sprints); err != nil {
				return err
			}
			return api.Output(sprints)
		},
	}
}

// ListDocumentsEndpoint handles GET /api/projects/{id}/documents.
type ListDocumentsEndpoint struct{}

func (e *ListDocumentsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/projects/{id}/documents", e.handler
}

func (e *ListDocumentsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List project documents
//	@Tags			projectdata
//	@Produce		json
//	@Param			id	path		string	true	"Project ID"
//	@Success		200	{array}		gateway.Document
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/projects/{id}/documents [get]
func (e *ListDocumentsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	gw := svcctx.GatewayFrom(r.Context())
	if gw == nil {
		writeError(w, http.StatusServiceUnavailable, "gateway not initialized")
		return
	}

	docs, err := gw.ListDocuments(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []gateway.Document{}
	}

	writeJSON(w, http.StatusOK, docs)
}

func (e *ListDocumentsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "documents <project-id>",
		Short: "List documents in a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiClient(getServerURL)
			var docs []gateway.Document
			if err := client.Get(cmd.Context(), "/api/projects/"+args[0]+"/documents", &docs); err != nil {
				return err
			}
			return api.Output(docs)
		},
	}
}

// ListMembersEndpoint handles GET /api/projects/{id}/members.
type ListMembersEndpoint struct{}

func (e *ListMembersEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/projects/{id}/members", e.handler
}

func (e *ListMembersEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List project members
//	@Tags			projectdata
//	@Produce		json
//	@Param			id		path		string	true	"Project ID"
//	@Param			role	query		string	false	"Filter by role"
//	@Success		200	{array}		gateway.Member
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/projects/{id}/members [get]
func (e *ListMembersEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	gw := svcctx.GatewayFrom(r.Context())
	if gw == nil {
		writeError(w, http.StatusServiceUnavailable, "gateway not initialized")
		return
	}

	members, err := gw.ListMembers(r.Context(), r.PathValue("id"), gateway.MemberFilter{
		Role: r.URL.Query().Get("role"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if members == nil {
		members = []gateway.Member{}
	}

	writeJSON(w, http.StatusOK, members)
}

func (e *ListMembersEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "members <project-id>",
		Short: "List members of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiClient(getServerURL)
			var members []gateway.Member
			if err := client.Get(cmd.Context(), "/api/projects/"+args[0]+"/members", &members); err != nil {
				return err
			}
			return api.Output(members)
		},
	}
}
