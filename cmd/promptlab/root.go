package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/forgeworks/promptlab/internal/api"
	"github.com/forgeworks/promptlab/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	userID       string
)

var rootCmd = &cobra.Command{
	Use:   "promptlab",
	Short: "Prompt library with live project-data variables",
	Long: `Promptlab is a prompt library server for product teams.

Prompts are composed from ordered content blocks and typed variables.
Variables resolve against live project data (tasks, sprints, documents,
members) at render time, so a saved prompt always reflects the current
state of the project.

Features:
  - Ordered text and variable blocks with fallback defaults
  - Live variable resolution with project-aware sources
  - Immutable version snapshots with restore
  - Personal, project, and public prompt scopes`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.promptlab/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "promptlab home directory (default: ~/.promptlab)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&userID, "user", "", "caller identity for API commands (default: $PROMPTLAB_USER)",
	)

	// Set output format and identity before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
		if userID != "" {
			os.Setenv("PROMPTLAB_USER", userID)
		}
	}

	rootCmd.AddCommand(versionCmd)
}
