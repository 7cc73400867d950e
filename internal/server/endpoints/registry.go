package endpoints

import (
	"github.com/forgeworks/promptlab/internal/api"
	"github.com/forgeworks/promptlab/internal/defra"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	DefraManager    *defra.DockerManager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{DefraManager: cfg.DefraManager},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},
		&CreatePromptEndpoint{},
		&UpdatePromptEndpoint{},
		&DeletePromptEndpoint{},

		// Version endpoints
		&ListVersionsEndpoint{},
		&SnapshotPromptEndpoint{},
		&RestoreVersionEndpoint{},

		// Rendering endpoints
		&RenderPromptEndpoint{},
		&ResolveVariableEndpoint{},

		// Project data endpoints
		&SeedEndpoint{},
		&ListTasksEndpoint{},
		&ListSprintsEndpoint{},
		&ListDocumentsEndpoint{},
		&ListMembersEndpoint{},

		// Activity endpoints
		&ActivitySummaryEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}

// PromptCommands returns endpoints grouped under the "prompts" subcommand.
func PromptCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},
		&CreatePromptEndpoint{},
		&UpdatePromptEndpoint{},
		&DeletePromptEndpoint{},
		&RenderPromptEndpoint{},
		&ResolveVariableEndpoint{},
	}
}

// VersionCommands returns endpoints grouped under the "versions" subcommand.
func VersionCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListVersionsEndpoint{},
		&SnapshotPromptEndpoint{},
		&RestoreVersionEndpoint{},
	}
}

// ProjectDataCommands returns endpoints grouped under the "projectdata"
// subcommand.
func ProjectDataCommands() []api.Endpoint {
	return []api.Endpoint{
		&SeedEndpoint{},
		&ListTasksEndpoint{},
		&ListSprintsEndpoint{},
		&ListDocumentsEndpoint{},
		&ListMembersEndpoint{},
	}
}
