package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/forgeworks/promptlab/internal/activity"
	"github.com/forgeworks/promptlab/internal/prompt"
	"github.com/forgeworks/promptlab/internal/svcctx"
)

// RenderResponse carries a fully rendered prompt.
type RenderResponse struct {
	Rendered string `json:"rendered"`
}

// RenderPromptEndpoint handles GET /api/prompts/{id}/render.
type RenderPromptEndpoint struct{}

func (e *RenderPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/{id}/render", e.handler
}

func (e *RenderPromptEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Render a prompt
//	@Description	Compose the prompt's content blocks with all variables resolved against live project data
//	@Tags			prompts
//	@Produce		json
//	@Param			id	path		string	true	"Prompt ID"
//	@Success		200	{object}	RenderResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/prompts/{id}/render [get]
func (e *RenderPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.PromptsFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt service not initialized")
		return
	}

	id := r.PathValue("id")
	rendered, err := svc.RenderPrompt(r.Context(), requestUser(r), id)
	if err != nil {
		recordPromptEvent(r, activity.EventRender, id, "", err)
		writeDomainError(w, err)
		return
	}
	recordPromptEvent(r, activity.EventRender, id, "", nil)

	writeJSON(w, http.StatusOK, RenderResponse{Rendered: rendered})
}

func (e *RenderPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "render <prompt-id>",
		Short: "Render a prompt with live variable values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiClient(getServerURL)
			rendered, err := client.Prompts().RenderPrompt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(rendered)
			return nil
		},
	}
}

// ResolveRequest is the body for a one-off source resolution.
type ResolveRequest struct {
	Source    json.RawMessage `json:"source"`
	ProjectID string          `json:"projectId,omitempty"`
}

// ResolveResponse carries the resolved display value.
type ResolveResponse struct {
	Value string `json:"value"`
}

// ResolveVariableEndpoint handles POST /api/resolve.
type ResolveVariableEndpoint struct{}

func (e *ResolveVariableEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/resolve", e.handler
}

func (e *ResolveVariableEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Resolve a variable source
//	@Description	Evaluate one variable source against live project data for a preview. Resolution never fails; unreachable data yields a sentinel value.
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ResolveRequest	true	"Source to resolve"
//	@Success		200	{object}	ResolveResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/resolve [post]
func (e *ResolveVariableEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	var req ResolveRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	source, err := prompt.DecodeSource(req.Source)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	value, err := svc.ResolveVariable(r.Context(), requestUser(r), source, req.ProjectID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	svcctx.ActivityFrom(r.Context()).Record(activity.Event{
		Event:      activity.EventResolve,
		ProjectID:  req.ProjectID,
		UserID:     requestUser(r),
		SourceKind: string(source.Kind()),
		Success:    true,
	})

	writeJSON(w, http.StatusOK, ResolveResponse{Value: value})
}

func (e *ResolveVariableEndpoint) Command(getServerURL func() string) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "resolve <source-json>",
		Short: "Resolve a variable source against live project data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := prompt.DecodeSource([]byte(args[0]))
			if err != nil {
				return err
			}

			client := apiClient(getServerURL)
			value, err := client.Prompts().ResolveVariable(cmd.Context(), source, projectID)
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project ID for project-scoped sources")
	return cmd
}
