package promptcache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/forgeworks/promptlab/internal/prompt"
)

// Backend is the server boundary the reconciler talks to. The HTTP API
// client implements it.
type Backend interface {
	ListPrompts(ctx context.Context, scope prompt.OwnerScope, projectID string) ([]prompt.PromptSummary, error)
	GetPromptDetail(ctx context.Context, id string) (*prompt.Prompt, error)
	UpdatePrompt(ctx context.Context, id string, patch prompt.Patch) (*prompt.Prompt, error)
	DeletePrompt(ctx context.Context, id string) (prompt.PromptSummary, error)
	SnapshotPrompt(ctx context.Context, id, notes string) (*prompt.Prompt, error)
	RestorePromptVersion(ctx context.Context, id, versionID string) (*prompt.Prompt, error)
}

// MutationState is the per-mutation lifecycle. A failed mutation ends in
// RolledBack after the reconciling refetch, never in a state the server
// did not produce.
type MutationState string

const (
	MutationIdle       MutationState = "idle"
	MutationPending    MutationState = "pending"
	MutationCommitted  MutationState = "committed"
	MutationRolledBack MutationState = "rolled_back"
)

// Reconciler drives the cache against a backend. All cache access is
// serialized through its mutex; fetch round-trips run outside the lock and
// their results are stamped so a superseded response is discarded instead
// of applied.
type Reconciler struct {
	mu      sync.Mutex
	backend Backend
	cache   *Cache
	logger  *slog.Logger

	scope     prompt.OwnerScope
	projectID string

	// selectSeq stamps in-flight detail fetches. A response whose stamp no
	// longer matches is ignored.
	selectSeq uint64

	lastMutation MutationState
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.logger = logger }
}

// NewReconciler creates a reconciler for one owner scope. For the project
// scope, projectID names the project whose prompts are listed.
func NewReconciler(backend Backend, scope prompt.OwnerScope, projectID string, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		backend:      backend,
		cache:        NewCache(),
		logger:       slog.Default(),
		scope:        scope,
		projectID:    projectID,
		lastMutation: MutationIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot of cache state accessors. These copy under the lock so callers
// never observe a half-applied merge.

// Summaries returns the current list rows, most recently updated first.
func (r *Reconciler) Summaries() []prompt.PromptSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Summaries()
}

// SelectedDetail returns the selected prompt's full record once loaded.
func (r *Reconciler) SelectedDetail() *prompt.Prompt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.SelectedDetail()
}

// State returns the selection state.
func (r *Reconciler) State() SelectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.State()
}

// LastMutation returns the state the most recent mutation ended in.
func (r *Reconciler) LastMutation() MutationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastMutation
}

// Refresh refetches the list and merges it. The selected row's detail
// fields survive the merge untouched.
func (r *Reconciler) Refresh(ctx context.Context) error {
	rows, err := r.backend.ListPrompts(ctx, r.scope, r.projectID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.MergeList(rows)
	return nil
}

// Select moves the selection to id and fetches its detail. If the
// selection changed while the fetch was in flight the response is
// discarded; the newer selection's own fetch is authoritative.
func (r *Reconciler) Select(ctx context.Context, id string) error {
	r.mu.Lock()
	r.cache.BeginSelect(id)
	r.selectSeq++
	stamp := r.selectSeq
	r.mu.Unlock()

	detail, err := r.backend.GetPromptDetail(ctx, id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if stamp != r.selectSeq || r.cache.SelectedID() != id {
		// Superseded while in flight; drop the response.
		return nil
	}
	if err != nil {
		r.cache.Deselect()
		return err
	}
	r.cache.CompleteSelect(detail)
	return nil
}

// Deselect clears the selection. A detail response still in flight will be
// discarded on arrival.
func (r *Reconciler) Deselect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selectSeq++
	r.cache.Deselect()
}

// Update applies an optimistic patch, then reconciles with the server's
// authoritative record, rolling back by refetch on failure.
func (r *Reconciler) Update(ctx context.Context, id string, patch prompt.Patch) error {
	r.mu.Lock()
	r.lastMutation = MutationPending
	r.cache.ApplyPatch(id, patch)
	r.mu.Unlock()

	updated, err := r.backend.UpdatePrompt(ctx, id, patch)
	if err != nil {
		return r.rollback(ctx, id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.PutDetail(updated)
	r.lastMutation = MutationCommitted
	return nil
}

// Delete removes the prompt optimistically. Deleting the selected id
// deselects and purges its remembered detail.
func (r *Reconciler) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	r.lastMutation = MutationPending
	r.cache.Drop(id)
	r.mu.Unlock()

	if _, err := r.backend.DeletePrompt(ctx, id); err != nil {
		return r.rollback(ctx, id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastMutation = MutationCommitted
	return nil
}

// TakeSnapshot asks the server for a new version and stores the returned
// record. Snapshots are not replayed on failure; a blind retry could
// double-apply, so failure reverts to a refetch like any other mutation.
func (r *Reconciler) TakeSnapshot(ctx context.Context, id, notes string) error {
	r.mu.Lock()
	r.lastMutation = MutationPending
	r.mu.Unlock()

	updated, err := r.backend.SnapshotPrompt(ctx, id, notes)
	if err != nil {
		return r.rollback(ctx, id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.PutDetail(updated)
	r.lastMutation = MutationCommitted
	return nil
}

// Restore asks the server to restore a version and stores the result.
func (r *Reconciler) Restore(ctx context.Context, id, versionID string) error {
	r.mu.Lock()
	r.lastMutation = MutationPending
	r.mu.Unlock()

	updated, err := r.backend.RestorePromptVersion(ctx, id, versionID)
	if err != nil {
		return r.rollback(ctx, id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.PutDetail(updated)
	r.lastMutation = MutationCommitted
	return nil
}

// rollback discards the optimistic state for the failed mutation on id by
// refetching authoritative records. A mutation on the selected row refetches
// its detail; one on any other row (or with nothing selected) refetches the
// list, since the optimistic patch landed on a summary row the detail fetch
// would miss. The original mutation error is returned either way; refetch
// failures are logged, not masked over it.
func (r *Reconciler) rollback(ctx context.Context, id string, cause error) error {
	r.mu.Lock()
	selected := r.cache.SelectedID()
	ready := r.cache.State() == DetailReady
	r.mu.Unlock()

	if id != selected || !ready {
		rows, err := r.backend.ListPrompts(ctx, r.scope, r.projectID)
		r.mu.Lock()
		if err != nil {
			r.logger.Error("rollback list refetch failed", "error", err)
		} else {
			r.cache.MergeList(rows)
			// A remembered detail for the mutated row still carries the
			// optimistic patch; forget it so a reselect re-fetches.
			r.cache.DropDetail(id)
		}
		r.mu.Unlock()
	}

	if selected != "" && ready {
		detail, err := r.backend.GetPromptDetail(ctx, selected)
		r.mu.Lock()
		if err != nil {
			r.logger.Error("rollback detail refetch failed", "id", selected, "error", err)
		} else if r.cache.SelectedID() == selected {
			r.cache.PutDetail(detail)
		}
		r.mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastMutation = MutationRolledBack
	return cause
}
