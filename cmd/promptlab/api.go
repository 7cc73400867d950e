package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgeworks/promptlab/internal/api"
	"github.com/forgeworks/promptlab/internal/prompt"
	"github.com/forgeworks/promptlab/internal/promptcache"
	"github.com/forgeworks/promptlab/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Promptlab server via HTTP.

These commands require a running server (promptlab serve).
Use --server to specify a custom server URL and --user (or the
PROMPTLAB_USER environment variable) to set the caller identity.

Examples:
  promptlab api health                  # Check server health
  promptlab api prompts list            # List your prompts
  promptlab api prompts get <id>        # Get a prompt in full
  promptlab api versions save <id>      # Snapshot the current state`,
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Prompt management commands",
}

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Prompt version commands",
}

var projectDataCmd = &cobra.Command{
	Use:   "projectdata",
	Short: "Project record commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

// watchCmd keeps a local prompt cache reconciled against the server and
// prints the summary list on every refresh.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch prompts, keeping a local cache reconciled",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		scope, _ := cmd.Flags().GetString("scope")
		projectID, _ := cmd.Flags().GetString("project")
		interval, _ := cmd.Flags().GetDuration("interval")
		selectID, _ := cmd.Flags().GetString("select")

		client := api.NewClient(getServerURL(), api.WithUser(api.UserFromEnv()))
		rec := promptcache.NewReconciler(client.Prompts(), prompt.OwnerScope(scope), projectID)

		if selectID != "" {
			if err := rec.Select(ctx, selectID); err != nil {
				return err
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if err := rec.Refresh(ctx); err != nil {
				fmt.Printf("refresh failed: %v\n", err)
			} else {
				summaries := rec.Summaries()
				fmt.Printf("--- %d prompts at %s ---\n", len(summaries), time.Now().Format(time.Kitchen))
				for _, s := range summaries {
					fmt.Printf("  %-24s %-32s v%d\n", s.ID, s.Title, s.VersionCount)
				}
				if detail := rec.SelectedDetail(); detail != nil {
					fmt.Printf("  selected: %s (%d blocks, %d variables)\n",
						detail.Title, len(detail.Content), len(detail.Variables))
				}
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ActivitySummaryEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.SwaggerEndpoint{}).Command(getServerURL))

	// Prompts as subcommand group
	for _, ep := range endpoints.PromptCommands() {
		promptsCmd.AddCommand(ep.Command(getServerURL))
	}

	// Versions as subcommand group
	for _, ep := range endpoints.VersionCommands() {
		versionsCmd.AddCommand(ep.Command(getServerURL))
	}

	// Project records as subcommand group
	for _, ep := range endpoints.ProjectDataCommands() {
		projectDataCmd.AddCommand(ep.Command(getServerURL))
	}

	// Watch under prompts
	watchCmd.Flags().String("scope", "personal", "Owner scope to watch (personal, project, public)")
	watchCmd.Flags().String("project", "", "Project ID for project scope")
	watchCmd.Flags().Duration("interval", 5*time.Second, "Refresh interval")
	watchCmd.Flags().String("select", "", "Prompt ID to keep selected")
	promptsCmd.AddCommand(watchCmd)

	apiCmd.AddCommand(promptsCmd)
	apiCmd.AddCommand(versionsCmd)
	apiCmd.AddCommand(projectDataCmd)
	rootCmd.AddCommand(apiCmd)
}
