package prompt

import (
	"encoding/json"
	"fmt"
)

// SourceKind is the discriminator carried in a variable source's `type`
// field on the wire.
type SourceKind string

const (
	KindUserField           SourceKind = "USER_FIELD"
	KindDateFunction        SourceKind = "DATE_FUNCTION"
	KindProjectField        SourceKind = "PROJECT_FIELD"
	KindTasksAggregation    SourceKind = "TASKS_AGGREGATION"
	KindSingleTaskField     SourceKind = "SINGLE_TASK_FIELD"
	KindSprintField         SourceKind = "SPRINT_FIELD"
	KindSprintAggregation   SourceKind = "SPRINT_AGGREGATION"
	KindDocumentField       SourceKind = "DOCUMENT_FIELD"
	KindDocumentAggregation SourceKind = "DOCUMENT_AGGREGATION"
	KindMemberList          SourceKind = "MEMBER_LIST"
	KindWorkspaceField      SourceKind = "WORKSPACE_FIELD"
)

// Aggregation selects how a matched entity set collapses to a string.
type Aggregation string

const (
	AggCount      Aggregation = "COUNT"
	AggListTitles Aggregation = "LIST_TITLES"
	AggListNames  Aggregation = "LIST_NAMES"
)

// Format selects how a non-empty list aggregation is joined.
type Format string

const (
	FormatCommaSeparated Format = "COMMA_SEPARATED"
	FormatBulletPoints   Format = "BULLET_POINTS"
)

// SourceFilter is an optional set of exact-match constraints applied before
// aggregation. Assignee accepts the CurrentUserMarker, replaced with the
// resolving user's id at evaluation time.
type SourceFilter struct {
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Assignee string `json:"assignee,omitempty"`
	Role     string `json:"role,omitempty"`
}

// CurrentUserMarker in a filter's assignee field stands for the user
// performing the resolution.
const CurrentUserMarker = "CURRENT_USER"

func (f SourceFilter) isZero() bool {
	return f == SourceFilter{}
}

// VariableSource describes how to compute a variable's value from project
// data. Each kind carries only the fields meaningful to it.
type VariableSource interface {
	Kind() SourceKind
}

// UserFieldSource reads a field of the resolving user's record.
type UserFieldSource struct {
	Field string
}

func (UserFieldSource) Kind() SourceKind { return KindUserField }

// DateFunctionSource evaluates a wall-clock function. It is the one source
// kind whose output may change between identical calls.
type DateFunctionSource struct {
	Field string
}

func (DateFunctionSource) Kind() SourceKind { return KindDateFunction }

// ProjectFieldSource reads a derived field of the project, such as entity
// counts.
type ProjectFieldSource struct {
	Field string
}

func (ProjectFieldSource) Kind() SourceKind { return KindProjectField }

// TasksAggregationSource collapses the project's filtered tasks to a count
// or a formatted title list.
type TasksAggregationSource struct {
	Aggregation Aggregation
	Filter      SourceFilter
	Format      Format
}

func (TasksAggregationSource) Kind() SourceKind { return KindTasksAggregation }

// SingleTaskFieldSource reads a field of one task, either explicitly
// identified or picked by the resolver's task policy.
type SingleTaskFieldSource struct {
	EntityID string
	Field    string
}

func (SingleTaskFieldSource) Kind() SourceKind { return KindSingleTaskField }

// SprintFieldSource reads a field of one sprint, either explicitly
// identified or picked by the resolver's sprint policy.
type SprintFieldSource struct {
	EntityID string
	Field    string
}

func (SprintFieldSource) Kind() SourceKind { return KindSprintField }

// SprintAggregationSource collapses the project's filtered sprints to a
// count or a formatted name list.
type SprintAggregationSource struct {
	Aggregation Aggregation
	Filter      SourceFilter
	Format      Format
}

func (SprintAggregationSource) Kind() SourceKind { return KindSprintAggregation }

// DocumentFieldSource reads a field of the document picked by the resolver's
// document policy.
type DocumentFieldSource struct {
	Field string
}

func (DocumentFieldSource) Kind() SourceKind { return KindDocumentField }

// DocumentAggregationSource collapses the project's documents to a count or
// a formatted title list.
type DocumentAggregationSource struct {
	Aggregation Aggregation
	Format      Format
}

func (DocumentAggregationSource) Kind() SourceKind { return KindDocumentAggregation }

// MemberListSource lists the project's members as display names.
type MemberListSource struct {
	Filter SourceFilter
	Format Format
}

func (MemberListSource) Kind() SourceKind { return KindMemberList }

// WorkspaceFieldSource reads a field of the workspace owning the project.
type WorkspaceFieldSource struct {
	Field string
}

func (WorkspaceFieldSource) Kind() SourceKind { return KindWorkspaceField }

// sourceEnvelope is the flat wire form. Only the fields meaningful to the
// discriminated kind are populated.
type sourceEnvelope struct {
	Type        SourceKind    `json:"type"`
	Field       string        `json:"field,omitempty"`
	EntityID    string        `json:"entityId,omitempty"`
	Aggregation Aggregation   `json:"aggregation,omitempty"`
	Filter      *SourceFilter `json:"filter,omitempty"`
	Format      Format        `json:"format,omitempty"`
}

// EncodeSource serializes a source into its discriminated wire form.
func EncodeSource(s VariableSource) ([]byte, error) {
	env := sourceEnvelope{Type: s.Kind()}
	switch src := s.(type) {
	case UserFieldSource:
		env.Field = src.Field
	case DateFunctionSource:
		env.Field = src.Field
	case ProjectFieldSource:
		env.Field = src.Field
	case TasksAggregationSource:
		env.Aggregation = src.Aggregation
		env.Format = src.Format
		if !src.Filter.isZero() {
			f := src.Filter
			env.Filter = &f
		}
	case SingleTaskFieldSource:
		env.EntityID = src.EntityID
		env.Field = src.Field
	case SprintFieldSource:
		env.EntityID = src.EntityID
		env.Field = src.Field
	case SprintAggregationSource:
		env.Aggregation = src.Aggregation
		env.Format = src.Format
		if !src.Filter.isZero() {
			f := src.Filter
			env.Filter = &f
		}
	case DocumentFieldSource:
		env.Field = src.Field
	case DocumentAggregationSource:
		env.Aggregation = src.Aggregation
		env.Format = src.Format
	case MemberListSource:
		env.Format = src.Format
		if !src.Filter.isZero() {
			f := src.Filter
			env.Filter = &f
		}
	case WorkspaceFieldSource:
		env.Field = src.Field
	default:
		return nil, fmt.Errorf("%w: unknown source kind %q", ErrBadInput, s.Kind())
	}
	return json.Marshal(env)
}

// DecodeSource parses the discriminated wire form back into a typed source.
// An unrecognized type discriminator is a bad input, not a panic.
func DecodeSource(data []byte) (VariableSource, error) {
	var env sourceEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: invalid source: %v", ErrBadInput, err)
	}

	filter := SourceFilter{}
	if env.Filter != nil {
		filter = *env.Filter
	}

	switch env.Type {
	case KindUserField:
		return UserFieldSource{Field: env.Field}, nil
	case KindDateFunction:
		return DateFunctionSource{Field: env.Field}, nil
	case KindProjectField:
		return ProjectFieldSource{Field: env.Field}, nil
	case KindTasksAggregation:
		return TasksAggregationSource{Aggregation: env.Aggregation, Filter: filter, Format: env.Format}, nil
	case KindSingleTaskField:
		return SingleTaskFieldSource{EntityID: env.EntityID, Field: env.Field}, nil
	case KindSprintField:
		return SprintFieldSource{EntityID: env.EntityID, Field: env.Field}, nil
	case KindSprintAggregation:
		return SprintAggregationSource{Aggregation: env.Aggregation, Filter: filter, Format: env.Format}, nil
	case KindDocumentField:
		return DocumentFieldSource{Field: env.Field}, nil
	case KindDocumentAggregation:
		return DocumentAggregationSource{Aggregation: env.Aggregation, Format: env.Format}, nil
	case KindMemberList:
		return MemberListSource{Filter: filter, Format: env.Format}, nil
	case KindWorkspaceField:
		return WorkspaceFieldSource{Field: env.Field}, nil
	default:
		return nil, fmt.Errorf("%w: unknown source type %q", ErrBadInput, env.Type)
	}
}
