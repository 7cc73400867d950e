// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/forgeworks/promptlab/internal/activity"
	"github.com/forgeworks/promptlab/internal/config"
	"github.com/forgeworks/promptlab/internal/defra"
	"github.com/forgeworks/promptlab/internal/gateway"
	"github.com/forgeworks/promptlab/internal/prompt"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	DefraClient   *defra.Client
	DefraSink     *defra.Sink
	Prompts       *prompt.Service
	Gateway       gateway.ProjectData
	Activity      *activity.Recorder
	ActivityQuery *activity.Query
	ConfigManager *config.Manager
	Logger        *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// DefraClientFrom extracts the DefraDB client from context.
func DefraClientFrom(ctx context.Context) *defra.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.DefraClient
	}
	return nil
}

// DefraSinkFrom extracts the DefraDB write sink from context.
func DefraSinkFrom(ctx context.Context) *defra.Sink {
	if s := ServicesFrom(ctx); s != nil {
		return s.DefraSink
	}
	return nil
}

// PromptsFrom extracts the prompt service from context.
func PromptsFrom(ctx context.Context) *prompt.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Prompts
	}
	return nil
}

// GatewayFrom extracts the project data gateway from context.
func GatewayFrom(ctx context.Context) gateway.ProjectData {
	if s := ServicesFrom(ctx); s != nil {
		return s.Gateway
	}
	return nil
}

// ActivityFrom extracts the activity recorder from context.
func ActivityFrom(ctx context.Context) *activity.Recorder {
	if s := ServicesFrom(ctx); s != nil {
		return s.Activity
	}
	return nil
}

// ActivityQueryFrom extracts the activity query helper from context.
func ActivityQueryFrom(ctx context.Context) *activity.Query {
	if s := ServicesFrom(ctx); s != nil {
		return s.ActivityQuery
	}
	return nil
}

// ConfigManagerFrom extracts the config manager from context.
func ConfigManagerFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigManager
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}
