package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgeworks/promptlab/internal/activity"
	"github.com/forgeworks/promptlab/internal/api"
	"github.com/forgeworks/promptlab/internal/prompt"
	"github.com/forgeworks/promptlab/internal/svcctx"
)

// maxBodyBytes caps request bodies on mutation endpoints.
const maxBodyBytes = 1 << 20

// requestUser extracts the caller identity from the request header.
func requestUser(r *http.Request) string {
	return r.Header.Get(api.UserHeader)
}

// writeDomainError maps service errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, prompt.ErrBadInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, prompt.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, prompt.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, prompt.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// readBody reads a length-capped request body.
func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

// recordPromptEvent queues one activity event for a prompt mutation.
func recordPromptEvent(r *http.Request, event, promptID, projectID string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	svcctx.ActivityFrom(r.Context()).Record(activity.Event{
		Event:     event,
		PromptID:  promptID,
		ProjectID: projectID,
		UserID:    requestUser(r),
		Success:   err == nil,
		Detail:    detail,
	})
}

// ListPromptsEndpoint handles GET /api/prompts.
type ListPromptsEndpoint struct{}

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List prompts
//	@Description	List prompt summaries for one owner scope. Use scope=public for the shared library.
//	@Tags			prompts
//	@Produce		json
//	@Param			scope		query		string	false	"personal, project, or public"
//	@Param			projectId	query		string	false	"Project ID for project scope"
//	@Param			category	query		string	false	"Filter by category"
//	@Param			tag			query		string	false	"Filter by tag"
//	@Success		200	{array}		prompt.PromptSummary
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/prompts [get]
func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.PromptsFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt service not initialized")
		return
	}

	q := r.URL.Query()
	filter := prompt.ListFilter{
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
	}
	scope := q.Get("scope")
	if scope == "" {
		scope = string(prompt.OwnerPersonal)
	}

	var (
		summaries []prompt.PromptSummary
		err       error
	)
	if scope == "public" {
		summaries, err = svc.ListPublicPrompts(r.Context(), requestUser(r), filter)
	} else {
		summaries, err = svc.ListPrompts(r.Context(), requestUser(r), prompt.OwnerScope(scope), q.Get("projectId"), filter)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if summaries == nil {
		summaries = []prompt.PromptSummary{}
	}

	writeJSON(w, http.StatusOK, summaries)
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var scope, projectID, category, tag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiClient(getServerURL)

			q := url.Values{}
			q.Set("scope", scope)
			if projectID != "" {
				q.Set("projectId", projectID)
			}
			if category != "" {
				q.Set("category", category)
			}
			if tag != "" {
				q.Set("tag", tag)
			}

			var summaries []prompt.PromptSummary
			if err := client.Get(cmd.Context(), "/api/prompts?"+q.Encode(), &summaries); err != nil {
				return err
			}
			return api.Output(summaries)
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "personal", "Owner scope (personal, project, public)")
	cmd.Flags().StringVar(&projectID, "project", "", "Project ID for project scope")
	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	cmd.Flags().StringVar(&tag, "tag", "", "Filter by tag")
	return cmd
}

// GetPromptEndpoint handles GET /api/prompts/{id}.
type GetPromptEndpoint struct{}

func (e *GetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/{id}", e.handler
}

func (e *GetPromptEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get prompt by ID
//	@Description	Get one prompt in full, including content blocks, variables, and versions
//	@Tags			prompts
//	@Produce		json
//	@Param			id	path		string	true	"Prompt ID"
//	@Success		200	{object}	prompt.Prompt
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/prompts/{id} [get]
func (e *GetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.PromptsFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt service not initialized")
		return
	}

	p, err := svc.GetPromptDetail(r.Context(), requestUser(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <prompt-id>",
		Short: "Get a prompt in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiClient(getServerURL)
			p, err := client.Prompts().GetPromptDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return api.Output(p)
		},
	}
}

// CreatePromptEndpoint handles POST /api/prompts.
type CreatePromptEndpoint struct{}

func (e *CreatePromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/prompts", e.handler
}

func (e *CreatePromptEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Create a prompt
//	@Description	Create a prompt from a JSON body. The body is validated against the creation schema before decoding.
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			prompt	body		prompt.CreateInput	true	"Prompt to create"
//	@Success		201	{object}	prompt.Prompt
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/prompts [post]
func (e *CreatePromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.PromptsFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt service not initialized")
		return
	}

	raw, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if err := prompt.ValidateCreate(raw); err != nil {
		writeDomainError(w, err)
		return
	}

	var in prompt.CreateInput
	if err := json.Unmarshal(raw, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p, err := svc.CreatePrompt(r.Context(), requestUser(r), in)
	if err != nil {
		recordPromptEvent(r, activity.EventCreate, "", in.ProjectID, err)
		writeDomainError(w, err)
		return
	}
	recordPromptEvent(r, activity.EventCreate, p.ID, in.ProjectID, nil)

	writeJSON(w, http.StatusCreated, p)
}

func (e *CreatePromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a prompt from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}

			var in prompt.CreateInput
			if err := json.Unmarshal(raw, &in); err != nil {
				return fmt.Errorf("invalid prompt JSON: %w", err)
			}

			client := apiClient(getServerURL)
			p, err := client.Prompts().CreatePrompt(cmd.Context(), in)
			if err != nil {
				return err
			}
			return api.Output(p)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to a JSON file describing the prompt")
	cmd.MarkFlagRequired("file")
	return cmd
}

// UpdatePromptEndpoint handles PATCH /api/prompts/{id}.
type UpdatePromptEndpoint struct{}

func (e *UpdatePromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PATCH", "/api/prompts/{id}", e.handler
}

func (e *UpdatePromptEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Update a prompt
//	@Description	Apply a partial update. Absent fields are left unchanged.
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Prompt ID"
//	@Param			patch	body		prompt.Patch	true	"Fields to change"
//	@Success		200	{object}	prompt.Prompt
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/prompts/{id} [patch]
func (e *UpdatePromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.PromptsFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt service not initialized")
		return
	}

	id := r.PathValue("id")
	raw, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if err := prompt.ValidateUpdate(raw); err != nil {
		writeDomainError(w, err)
		return
	}

	var patch prompt.Patch
	if err := json.Unmarshal(raw, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p, err := svc.UpdatePrompt(r.Context(), requestUser(r), id, patch)
	if err != nil {
		recordPromptEvent(r, activity.EventUpdate, id, "", err)
		writeDomainError(w, err)
		return
	}
	recordPromptEvent(r, activity.EventUpdate, id, "", nil)

	writeJSON(w, http.StatusOK, p)
}

func (e *UpdatePromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "update <prompt-id>",
		Short: "Apply a partial update from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}

			var patch prompt.Patch
			if err := json.Unmarshal(raw, &patch); err != nil {
				return fmt.Errorf("invalid patch JSON: %w", err)
			}

			client := apiClient(getServerURL)
			p, err := client.Prompts().UpdatePrompt(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return api.Output(p)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to a JSON file with the fields to change")
	cmd.MarkFlagRequired("file")
	return cmd
}

// DeletePromptEndpoint handles DELETE /api/prompts/{id}.
type DeletePromptEndpoint struct{}

func (e *DeletePromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/prompts/{id}", e.handler
}

func (e *DeletePromptEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete a prompt
//	@Description	Delete a prompt and return its summary
//	@Tags			prompts
//	@Produce		json
//	@Param			id	path		string	true	"Prompt ID"
//	@Success		200	{object}	prompt.PromptSummary
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/prompts/{id} [delete]
func (e *DeletePromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.PromptsFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt service not initialized")
		return
	}

	id := r.PathValue("id")
	summary, err := svc.DeletePrompt(r.Context(), requestUser(r), id)
	if err != nil {
		recordPromptEvent(r, activity.EventDelete, id, "", err)
		writeDomainError(w, err)
		return
	}
	recordPromptEvent(r, activity.EventDelete, id, "", nil)

	writeJSON(w, http.StatusOK, summary)
}

func (e *DeletePromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <prompt-id>",
		Short: "Delete a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiClient(getServerURL)
			summary, err := client.Prompts().DeletePrompt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return api.Output(summary)
		},
	}
}
