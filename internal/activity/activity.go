// Package activity records prompt lifecycle events through the batching
// write sink and answers aggregate queries over them.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeworks/promptlab/internal/defra"
)

const collection = "Activity"

// Event names.
const (
	EventCreate   = "prompt_create"
	EventUpdate   = "prompt_update"
	EventDelete   = "prompt_delete"
	EventSnapshot = "prompt_snapshot"
	EventRestore  = "prompt_restore"
	EventRender   = "prompt_render"
	EventResolve  = "variable_resolve"
)

// Event is one recorded action.
type Event struct {
	Event      string
	PromptID   string
	ProjectID  string
	UserID     string
	SourceKind string
	Success    bool
	Detail     string
}

// Recorder writes events fire-and-forget. Request handlers never block on
// activity bookkeeping; a dropped event is logged by the sink, not surfaced.
type Recorder struct {
	sink *defra.Sink
	now  func() time.Time
}

// NewRecorder creates a recorder over the given sink.
func NewRecorder(sink *defra.Sink) *Recorder {
	return &Recorder{sink: sink, now: time.Now}
}

// Record queues one event.
func (r *Recorder) Record(e Event) {
	if r == nil || r.sink == nil {
		return
	}
	r.sink.Send(defra.WriteOp{
		Collection: collection,
		Op:         defra.OpCreate,
		Document: map[string]any{
			"event":       e.Event,
			"prompt_id":   e.PromptID,
			"project_id":  e.ProjectID,
			"user_id":     e.UserID,
			"source_kind": e.SourceKind,
			"success":     e.Success,
			"detail":      e.Detail,
			"created_at":  r.now().UTC().Format(time.RFC3339),
		},
	})
}

// Summary aggregates recorded events by name.
type Summary struct {
	Total    int            `json:"total"`
	Failures int            `json:"failures"`
	ByEvent  map[string]int `json:"byEvent"`
}

// Query answers aggregate questions over recorded events.
type Query struct {
	client *defra.Client
}

// NewQuery creates a query helper over the given DefraDB client.
func NewQuery(client *defra.Client) *Query {
	return &Query{client: client}
}

// Summarize counts events since the given time, optionally narrowed to one
// user.
func (q *Query) Summarize(ctx context.Context, since time.Time, userID string) (*Summary, error) {
	conds := fmt.Sprintf(`created_at: {_gt: %q}`, since.UTC().Format(time.RFC3339))
	if userID != "" {
		conds += fmt.Sprintf(`, user_id: {_eq: %q}`, userID)
	}

	query := fmt.Sprintf(`{
		Activity(filter: {%s}) {
			event
			success
		}
	}`, conds)

	resp, err := q.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("activity query failed: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("graphql error: %s", errMsg)
	}

	summary := &Summary{ByEvent: make(map[string]int)}
	for _, doc := range defra.Docs(resp.Data, collection) {
		summary.Total++
		if event, ok := doc["event"].(string); ok {
			summary.ByEvent[event]++
		}
		if success, ok := doc["success"].(bool); ok && !success {
			summary.Failures++
		}
	}
	return summary, nil
}
