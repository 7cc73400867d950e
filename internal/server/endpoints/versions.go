package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/forgeworks/promptlab/internal/activity"
	"github.com/forgeworks/promptlab/internal/api"
	"github.com/forgeworks/promptlab/internal/prompt"
	"github.com/forgeworks/promptlab/internal/svcctx"
)

// ListVersionsEndpoint handles GET /api/prompts/{id}/versions.
type ListVersionsEndpoint struct{}

func (e *ListVersionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/{id}/versions", e.handler
}

func (e *ListVersionsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List prompt versions
//	@Description	List saved versions of a prompt, newest first
//	@Tags			versions
//	@Produce		json
//	@Param			id	path		string	true	"Prompt ID"
//	@Success		200	{array}		prompt.Version
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/prompts/{id}/versions [get]
func (e *ListVersionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.PromptsFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt service not initialized")
		return
	}

	versions, err := svc.ListVersions(r.Context(), requestUser(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if versions == nil {
		versions = []prompt.Version{}
	}

	writeJSON(w, http.StatusOK, versions)
}

func (e *ListVersionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list <prompt-id>",
		Short: "List saved versions of a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiClient(getServerURL)
			var versions []prompt.Version
			path := "/api/prompts/" + args[0] + "/versions"
			if err := client.Get(cmd.Context(), path, &versions); err != nil {
				return err
			}
			return api.Output(versions)
		},
	}
}

// SnapshotRequest is the body for creating a version.
type SnapshotRequest struct {
	Notes string `json:"notes,omitempty"`
}

// SnapshotPromptEndpoint handles POST /api/prompts/{id}/versions.
type SnapshotPromptEndpoint struct{}

func (e *SnapshotPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/prompts/{id}/versions", e.handler
}

func (e *SnapshotPromptEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Save a version
//	@Description	Snapshot the prompt's current content, context, and variables as a new version
//	@Tags			versions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Prompt ID"
//	@Param			body	body		SnapshotRequest	false	"Optional notes"
//	@Success		201	{object}	prompt.Prompt
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/prompts/{id}/versions [post]
func (e *SnapshotPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.PromptsFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt service not initialized")
		return
	}

	id := r.PathValue("id")
	var req SnapshotRequest
	if raw, err := readBody(r); err == nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	p, err := svc.SnapshotPrompt(r.Context(), requestUser(r), id, req.Notes)
	if err != nil {
		recordPromptEvent(r, activity.EventSnapshot, id, "", err)
		writeDomainError(w, err)
		return
	}
	recordPromptEvent(r, activity.EventSnapshot, id, "", nil)

	writeJSON(w, http.StatusCreated, p)
}

func (e *SnapshotPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "save <prompt-id>",
		Short: "Save the current prompt state as a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiClient(getServerURL)
			p, err := client.Prompts().SnapshotPrompt(cmd.Context(), args[0], notes)
			if err != nil {
				return err
			}
			fmt.Printf("Saved version (%d total)\n", len(p.Versions))
			return api.Output(p.Versions[0])
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Notes to attach to the version")
	return cmd
}

// RestoreVersionEndpoint handles POST /api/prompts/{id}/versions/{versionId}/restore.
type RestoreVersionEndpoint struct{}

func (e *RestoreVersionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/prompts/{id}/versions/{versionId}/restore", e.handler
}

func (e *RestoreVersionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Restore a version
//	@Description	Replace the prompt's working state with a saved version. The version list is unchanged.
//	@Tags			versions
//	@Produce		json
//	@Param			id			path		string	true	"Prompt ID"
//	@Param			versionId	path		string	true	"Version ID"
//	@Success		200	{object}	prompt.Prompt
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/prompts/{id}/versions/{versionId}/restore [post]
func (e *RestoreVersionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.PromptsFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt service not initialized")
		return
	}

	id := r.PathValue("id")
	p, err := svc.RestorePromptVersion(r.Context(), requestUser(r), id, r.PathValue("versionId"))
	if err != nil {
		recordPromptEvent(r, activity.EventRestore, id, "", err)
		writeDomainError(w, err)
		return
	}
	recordPromptEvent(r, activity.EventRestore, id, "", nil)

	writeJSON(w, http.StatusOK, p)
}

func (e *RestoreVersionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <prompt-id> <version-id>",
		Short: "Restore a prompt to a saved version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiClient(getServerURL)
			p, err := client.Prompts().RestorePromptVersion(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return api.Output(p)
		},
	}
}
