package endpoints

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgeworks/promptlab/internal/activity"
	"github.com/forgeworks/promptlab/internal/api"
	"github.com/forgeworks/promptlab/internal/svcctx"
)

// ActivitySummaryEndpoint handles GET /api/activity/summary.
type ActivitySummaryEndpoint struct{}

func (e *ActivitySummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/activity/summary", e.handler
}

func (e *ActivitySummaryEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Summarize recorded activity
//	@Description	Count prompt lifecycle events since a given time, optionally narrowed to one user
//	@Tags			activity
//	@Produce		json
//	@Param			since	query		string	false	"RFC3339 lower bound (default: last 24h)"
//	@Param			user	query		string	false	"Narrow to one user ID"
//	@Success		200	{object}	activity.Summary
//	@Failure		400	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/activity/summary [get]
func (e *ActivitySummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	query := svcctx.ActivityQueryFrom(r.Context())
	if query == nil {
		writeError(w, http.StatusServiceUnavailable, "activity query not initialized")
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = parsed
	}

	summary, err := query.Summarize(r.Context(), since, r.URL.Query().Get("user"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (e *ActivitySummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var since, user string
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Summarize recorded prompt activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiClient(getServerURL)

			path := "/api/activity/summary"
			sep := "?"
			if since != "" {
				path += sep + "since=" + since
				sep = "&"
			}
			if user != "" {
				path += sep + "user=" + user
			}

			var summary activity.Summary
			if err := client.Get(cmd.Context(), path, &summary); err != nil {
				return err
			}
			return api.Output(summary)
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "RFC3339 lower bound (default: last 24h)")
	cmd.Flags().StringVar(&user, "user", "", "Narrow to one user ID")
	return cmd
}
