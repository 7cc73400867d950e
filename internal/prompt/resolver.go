package prompt

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/forgeworks/promptlab/internal/gateway"
)

// ResolveContext carries the identity a resolution runs under. ProjectID may
// be empty for personal prompts; project-scoped sources then resolve to the
// project-required sentinel.
type ResolveContext struct {
	ProjectID string
	UserID    string
}

// PickPolicy names the tie-break rule used when a field source must select
// exactly one entity without an explicit id.
type PickPolicy struct {
	Task     string
	Sprint   string
	Document string
}

// Pick policy values.
const (
	PickTaskNewestCreated      = "newest_created"
	PickTaskOldestCreated      = "oldest_created"
	PickSprintActiveElseLatest = "active_else_latest_start"
	PickSprintLatestStart      = "latest_start"
	PickSprintEarliestStart    = "earliest_start"
	PickDocumentLatestUpdated  = "latest_updated"
	PickDocumentOldestUpdated  = "oldest_updated"
)

// DefaultPickPolicy returns the default single-entity selection rules.
func DefaultPickPolicy() PickPolicy {
	return PickPolicy{
		Task:     PickTaskNewestCreated,
		Sprint:   PickSprintActiveElseLatest,
		Document: PickDocumentLatestUpdated,
	}
}

// Resolver evaluates variable sources against project data. Resolution is a
// pure read: it never mutates the store and never returns an error, only a
// display string or a sentinel.
type Resolver struct {
	gw    gateway.ProjectData
	now   func() time.Time
	picks PickPolicy
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock overrides the wall clock used by date functions.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// WithPickPolicy overrides the single-entity selection rules.
func WithPickPolicy(p PickPolicy) ResolverOption {
	return func(r *Resolver) { r.picks = p }
}

// NewResolver creates a resolver over the given project data gateway.
func NewResolver(gw gateway.ProjectData, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		gw:    gw,
		now:   time.Now,
		picks: DefaultPickPolicy(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve evaluates one source to a display string. A nil source, missing
// entity, unknown field, or gateway failure all yield a sentinel rather
// than an error.
func (r *Resolver) Resolve(ctx context.Context, source VariableSource, rc ResolveContext) string {
	if source == nil {
		return SentinelNA
	}

	switch src := source.(type) {
	case UserFieldSource:
		return r.resolveUserField(ctx, src, rc)
	case DateFunctionSource:
		return r.resolveDateFunction(src)
	case ProjectFieldSource:
		return r.resolveProjectField(ctx, src, rc)
	case TasksAggregationSource:
		return r.resolveTasksAggregation(ctx, src, rc)
	case SingleTaskFieldSource:
		return r.resolveSingleTaskField(ctx, src, rc)
	case SprintFieldSource:
		return r.resolveSprintField(ctx, src, rc)
	case SprintAggregationSource:
		return r.resolveSprintAggregation(ctx, src, rc)
	case DocumentFieldSource:
		return r.resolveDocumentField(ctx, src, rc)
	case DocumentAggregationSource:
		return r.resolveDocumentAggregation(ctx, src, rc)
	case MemberListSource:
		return r.resolveMemberList(ctx, src, rc)
	case WorkspaceFieldSource:
		return r.resolveWorkspaceField(ctx, src, rc)
	default:
		return SentinelNA
	}
}

func (r *Resolver) resolveUserField(ctx context.Context, src UserFieldSource, rc ResolveContext) string {
	if rc.UserID == "" {
		return SentinelNA
	}
	user, err := r.gw.GetUser(ctx, rc.UserID)
	if err != nil {
		return SentinelNA
	}
	if user == nil {
		return SentinelUserNotFound
	}
	switch normalizeField(src.Field) {
	case "firstname":
		return orNA(user.FirstName)
	case "email":
		return orNA(user.Email)
	default:
		return SentinelNA
	}
}

func (r *Resolver) resolveDateFunction(src DateFunctionSource) string {
	now := r.now()
	switch normalizeField(src.Field) {
	case "currentdate":
		return now.Format("January 2, 2006")
	case "currenttime":
		return now.Format("3:04 PM")
	case "currentdatetime":
		return now.Format("January 2, 2006 3:04 PM")
	case "currentyear":
		return strconv.Itoa(now.Year())
	case "currentmonth":
		return now.Format("January")
	case "dayofweek":
		return now.Format("Monday")
	default:
		return SentinelNA
	}
}

// resolveProjectField exposes derived project fields. The gateway has no
// project record read, so the supported fields are entity counts.
func (r *Resolver) resolveProjectField(ctx context.Context, src ProjectFieldSource, rc ResolveContext) string {
	if rc.ProjectID == "" {
		return SentinelProjectRequired
	}
	switch normalizeField(src.Field) {
	case "taskcount":
		tasks, err := r.gw.ListTasks(ctx, rc.ProjectID, gateway.TaskFilter{})
		if err != nil {
			return SentinelNA
		}
		return strconv.Itoa(len(tasks))
	case "sprintcount":
		sprints, err := r.gw.ListSprints(ctx, rc.ProjectID, gateway.SprintFilter{})
		if err != nil {
			return SentinelNA
		}
		return strconv.Itoa(len(sprints))
	case "documentcount":
		docs, err := r.gw.ListDocuments(ctx, rc.ProjectID)
		if err != nil {
			return SentinelNA
		}
		return strconv.Itoa(len(docs))
	case "membercount":
		members, err := r.gw.ListMembers(ctx, rc.ProjectID, gateway.MemberFilter{})
		if err != nil {
			return SentinelNA
		}
		return strconv.Itoa(len(members))
	default:
		return SentinelNA
	}
}

func (r *Resolver) resolveTasksAggregation(ctx context.Context, src TasksAggregationSource, rc ResolveContext) string {
	if rc.ProjectID == "" {
		return SentinelProjectRequired
	}
	assignee := src.Filter.Assignee
	if assignee == CurrentUserMarker {
		if rc.UserID == "" {
			return SentinelNA
		}
		assignee = rc.UserID
	}
	tasks, err := r.gw.ListTasks(ctx, rc.ProjectID, gateway.TaskFilter{
		Status:     src.Filter.Status,
		Priority:   src.Filter.Priority,
		AssigneeID: assignee,
	})
	if err != nil {
		return SentinelNA
	}
	switch src.Aggregation {
	case AggCount:
		return strconv.Itoa(len(tasks))
	case AggListTitles, AggListNames:
		if len(tasks) == 0 {
			return SentinelNoTasks
		}
		titles := make([]string, 0, len(tasks))
		for _, t := range tasks {
			titles = append(titles, t.Title)
		}
		return formatList(titles, src.Format)
	default:
		return SentinelNA
	}
}

func (r *Resolver) resolveSingleTaskField(ctx context.Context, src SingleTaskFieldSource, rc ResolveContext) string {
	if rc.ProjectID == "" {
		return SentinelProjectRequired
	}
	tasks, err := r.gw.ListTasks(ctx, rc.ProjectID, gateway.TaskFilter{})
	if err != nil {
		return SentinelNA
	}
	task := pickTask(tasks, src.EntityID, r.picks.Task)
	if task == nil {
		return SentinelTaskNotFound
	}
	switch normalizeField(src.Field) {
	case "title":
		return orNA(task.Title)
	case "status":
		return orNA(task.Status)
	case "priority":
		return orNA(task.Priority)
	case "createdat":
		return task.CreatedAt.Format("January 2, 2006")
	default:
		return SentinelNA
	}
}

func (r *Resolver) resolveSprintField(ctx context.Context, src SprintFieldSource, rc ResolveContext) string {
	if rc.ProjectID == "" {
		return SentinelProjectRequired
	}
	sprints, err := r.gw.ListSprints(ctx, rc.ProjectID, gateway.SprintFilter{})
	if err != nil {
		return SentinelNA
	}
	sprint := pickSprint(sprints, src.EntityID, r.picks.Sprint)
	if sprint == nil {
		return SentinelSprintNotFound
	}
	switch normalizeField(src.Field) {
	case "name":
		return orNA(sprint.Name)
	case "status":
		return orNA(sprint.Status)
	case "startdate":
		return sprint.StartDate.Format("January 2, 2006")
	case "enddate":
		return sprint.EndDate.Format("January 2, 2006")
	default:
		return SentinelNA
	}
}

func (r *Resolver) resolveSprintAggregation(ctx context.Context, src SprintAggregationSource, rc ResolveContext) string {
	if rc.ProjectID == "" {
		return SentinelProjectRequired
	}
	sprints, err := r.gw.ListSprints(ctx, rc.ProjectID, gateway.SprintFilter{Status: src.Filter.Status})
	if err != nil {
		return SentinelNA
	}
	switch src.Aggregation {
	case AggCount:
		return strconv.Itoa(len(sprints))
	case AggListTitles, AggListNames:
		if len(sprints) == 0 {
			return SentinelNoSprints
		}
		names := make([]string, 0, len(sprints))
		for _, s := range sprints {
			names = append(names, s.Name)
		}
		return formatList(names, src.Format)
	default:
		return SentinelNA
	}
}

func (r *Resolver) resolveDocumentField(ctx context.Context, src DocumentFieldSource, rc ResolveContext) string {
	if rc.ProjectID == "" {
		return SentinelProjectRequired
	}
	docs, err := r.gw.ListDocuments(ctx, rc.ProjectID)
	if err != nil {
		return SentinelNA
	}
	doc := pickDocument(docs, r.picks.Document)
	if doc == nil {
		return SentinelDocumentNotFound
	}
	switch normalizeField(src.Field) {
	case "title":
		return orNA(doc.Title)
	case "content":
		return orNA(doc.Content)
	case "updatedat":
		return doc.UpdatedAt.Format("January 2, 2006")
	default:
		return SentinelNA
	}
}

func (r *Resolver) resolveDocumentAggregation(ctx context.Context, src DocumentAggregationSource, rc ResolveContext) string {
	if rc.ProjectID == "" {
		return SentinelProjectRequired
	}
	docs, err := r.gw.ListDocuments(ctx, rc.ProjectID)
	if err != nil {
		return SentinelNA
	}
	switch src.Aggregation {
	case AggCount:
		return strconv.Itoa(len(docs))
	case AggListTitles, AggListNames:
		if len(docs) == 0 {
			return SentinelNoDocuments
		}
		titles := make([]string, 0, len(docs))
		for _, d := range docs {
			titles = append(titles, d.Title)
		}
		return formatList(titles, src.Format)
	default:
		return SentinelNA
	}
}

func (r *Resolver) resolveMemberList(ctx context.Context, src MemberListSource, rc ResolveContext) string {
	if rc.ProjectID == "" {
		return SentinelProjectRequired
	}
	members, err := r.gw.ListMembers(ctx, rc.ProjectID, gateway.MemberFilter{Role: src.Filter.Role})
	if err != nil {
		return SentinelNA
	}
	if len(members) == 0 {
		return SentinelNoMembers
	}
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, displayName(m))
	}
	return formatList(names, src.Format)
}

func (r *Resolver) resolveWorkspaceField(ctx context.Context, src WorkspaceFieldSource, rc ResolveContext) string {
	if rc.ProjectID == "" {
		return SentinelProjectRequired
	}
	ws, err := r.gw.GetWorkspace(ctx, rc.ProjectID)
	if err != nil {
		return SentinelNA
	}
	if ws == nil {
		return SentinelProjectNotFound
	}
	switch normalizeField(src.Field) {
	case "name":
		return orNA(ws.Name)
	case "industry":
		return orNA(ws.Industry)
	case "teamsize":
		return strconv.Itoa(ws.TeamSize)
	default:
		return SentinelNA
	}
}

// pickTask selects one task. An explicit id wins; otherwise the policy
// decides over the creation-ordered list.
func pickTask(tasks []gateway.Task, entityID, policy string) *gateway.Task {
	if entityID != "" {
		for i := range tasks {
			if tasks[i].ID == entityID {
				return &tasks[i]
			}
		}
		return nil
	}
	if len(tasks) == 0 {
		return nil
	}
	if policy == PickTaskOldestCreated {
		return &tasks[0]
	}
	return &tasks[len(tasks)-1]
}

// pickSprint selects one sprint from the start-date-ordered list.
func pickSprint(sprints []gateway.Sprint, entityID, policy string) *gateway.Sprint {
	if entityID != "" {
		for i := range sprints {
			if sprints[i].ID == entityID {
				return &sprints[i]
			}
		}
		return nil
	}
	if len(sprints) == 0 {
		return nil
	}
	switch policy {
	case PickSprintEarliestStart:
		return &sprints[0]
	case PickSprintLatestStart:
		return &sprints[len(sprints)-1]
	default:
		for i := range sprints {
			if sprints[i].Status == "active" {
				return &sprints[i]
			}
		}
		return &sprints[len(sprints)-1]
	}
}

// pickDocument selects one document from the update-time-descending list.
func pickDocument(docs []gateway.Document, policy string) *gateway.Document {
	if len(docs) == 0 {
		return nil
	}
	if policy == PickDocumentOldestUpdated {
		return &docs[len(docs)-1]
	}
	return &docs[0]
}

func formatList(items []string, format Format) string {
	if format == FormatBulletPoints {
		return "• " + strings.Join(items, "\n• ")
	}
	return strings.Join(items, ", ")
}

func displayName(m gateway.Member) string {
	name := strings.TrimSpace(m.FirstName + " " + m.LastName)
	if name == "" {
		return m.UserID
	}
	return name
}

// normalizeField accepts camelCase and snake_case spellings of the same
// field name.
func normalizeField(field string) string {
	return strings.ToLower(strings.ReplaceAll(field, "_", ""))
}

func orNA(s string) string {
	if s == "" {
		return SentinelNA
	}
	return s
}
