package prompt

import (
	"testing"
	"time"

	"github.com/forgeworks/promptlab/internal/gateway"
)

func TestRenderTaskCount(t *testing.T) {
	gw := &fakeGateway{tasks: projectFixture().tasks}
	r := testResolver(gw)
	rc := ResolveContext{ProjectID: "proj-1", UserID: "user-1"}

	variables := []PromptVariable{{
		ID:     "v1",
		Name:   "done_count",
		Source: TasksAggregationSource{Aggregation: AggCount, Filter: SourceFilter{Status: "DONE"}},
	}}
	blocks := []ContentBlock{
		{Order: 0, Type: BlockText, Value: "Summary: "},
		{Order: 1, Type: BlockVariable, VariableID: "v1"},
	}

	if got := Render(t.Context(), blocks, variables, r, rc); got != "Summary: 2" {
		t.Errorf("expected %q, got %q", "Summary: 2", got)
	}
}

func TestRenderEmptyAggregationShowsSentinel(t *testing.T) {
	r := testResolver(&fakeGateway{})
	rc := ResolveContext{ProjectID: "proj-1", UserID: "user-1"}

	variables := []PromptVariable{{
		ID:     "v1",
		Name:   "titles",
		Source: TasksAggregationSource{Aggregation: AggListTitles, Format: FormatBulletPoints},
	}}
	blocks := []ContentBlock{
		{Order: 0, Type: BlockText, Value: "Summary: "},
		{Order: 1, Type: BlockVariable, VariableID: "v1"},
	}

	want := "Summary: " + SentinelNoTasks
	if got := Render(t.Context(), blocks, variables, r, rc); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRenderOrderIndependentOfInputOrder(t *testing.T) {
	r := testResolver(&fakeGateway{})
	blocks := []ContentBlock{
		{Order: 2, Type: BlockText, Value: "c"},
		{Order: 0, Type: BlockText, Value: "a"},
		{Order: 1, Type: BlockText, Value: "b"},
	}
	if got := Render(t.Context(), blocks, nil, r, ResolveContext{}); got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
}

func TestRenderStableSortOnEqualOrder(t *testing.T) {
	r := testResolver(&fakeGateway{})
	blocks := []ContentBlock{
		{Order: 1, Type: BlockText, Value: "first"},
		{Order: 1, Type: BlockText, Value: "second"},
		{Order: 0, Type: BlockText, Value: "lead "},
	}
	if got := Render(t.Context(), blocks, nil, r, ResolveContext{}); got != "lead firstsecond" {
		t.Errorf("ties must keep original sequence, got %q", got)
	}
}

func TestRenderFallbackChain(t *testing.T) {
	r := testResolver(&fakeGateway{})
	rc := ResolveContext{ProjectID: "proj-1", UserID: "user-1"}
	block := []ContentBlock{{Order: 0, Type: BlockVariable, VariableID: "v1"}}

	t.Run("default value overrides sentinel", func(t *testing.T) {
		variables := []PromptVariable{{
			ID:           "v1",
			Name:         "titles",
			DefaultValue: "none yet",
			Placeholder:  "{tasks}",
			Source:       TasksAggregationSource{Aggregation: AggListTitles},
		}}
		if got := Render(t.Context(), block, variables, r, rc); got != "none yet" {
			t.Errorf("expected default value, got %q", got)
		}
	})

	t.Run("sentinel when no default", func(t *testing.T) {
		variables := []PromptVariable{{
			ID:          "v1",
			Name:        "titles",
			Placeholder: "{tasks}",
			Source:      TasksAggregationSource{Aggregation: AggListTitles},
		}}
		if got := Render(t.Context(), block, variables, r, rc); got != SentinelNoTasks {
			t.Errorf("expected sentinel, got %q", got)
		}
	})

	t.Run("placeholder for unbound variable", func(t *testing.T) {
		variables := []PromptVariable{{
			ID:          "v1",
			Name:        "titles",
			Placeholder: "{tasks}",
		}}
		if got := Render(t.Context(), block, variables, r, rc); got != "{tasks}" {
			t.Errorf("expected placeholder, got %q", got)
		}
	})

	t.Run("default for unbound variable", func(t *testing.T) {
		variables := []PromptVariable{{
			ID:           "v1",
			Name:         "titles",
			DefaultValue: "fallback",
			Placeholder:  "{tasks}",
		}}
		if got := Render(t.Context(), block, variables, r, rc); got != "fallback" {
			t.Errorf("expected default, got %q", got)
		}
	})
}

func TestRenderKeepsDataResemblingMarkers(t *testing.T) {
	gw := &fakeGateway{
		tasks:     []gateway.Task{{ID: "t1", Title: "No bugs found", Status: "DONE", CreatedAt: day(1)}},
		workspace: &gateway.Workspace{Name: "N/A East", TeamSize: 4},
	}
	r := testResolver(gw)
	rc := ResolveContext{ProjectID: "proj-1", UserID: "user-1"}

	variables := []PromptVariable{
		{ID: "v1", Name: "titles", DefaultValue: "none yet", Source: TasksAggregationSource{Aggregation: AggListTitles, Format: FormatCommaSeparated}},
		{ID: "v2", Name: "region", DefaultValue: "HQ", Source: WorkspaceFieldSource{Field: "name"}},
	}
	blocks := []ContentBlock{
		{Order: 0, Type: BlockVariable, VariableID: "v1"},
		{Order: 1, Type: BlockText, Value: " @ "},
		{Order: 2, Type: BlockVariable, VariableID: "v2"},
	}

	if got := Render(t.Context(), blocks, variables, r, rc); got != "No bugs found @ N/A East" {
		t.Errorf("resolved data swapped for defaults: %q", got)
	}
}

func TestRenderDanglingReferenceEmitsNothing(t *testing.T) {
	r := testResolver(&fakeGateway{})
	blocks := []ContentBlock{
		{Order: 0, Type: BlockText, Value: "before|"},
		{Order: 1, Type: BlockVariable, VariableID: "missing"},
		{Order: 2, Type: BlockText, Value: "|after"},
	}
	if got := Render(t.Context(), blocks, nil, r, ResolveContext{}); got != "before||after" {
		t.Errorf("dangling reference must not break the render, got %q", got)
	}
}

func TestRenderNoImplicitSeparators(t *testing.T) {
	r := testResolver(&fakeGateway{})
	blocks := []ContentBlock{
		{Order: 0, Type: BlockText, Value: "a"},
		{Order: 1, Type: BlockText, Value: "b"},
	}
	if got := Render(t.Context(), blocks, nil, r, ResolveContext{}); got != "ab" {
		t.Errorf("expected ab with no separator, got %q", got)
	}
}

func TestRenderIdempotentWithFrozenClock(t *testing.T) {
	frozen := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	r := NewResolver(projectFixture(), WithClock(func() time.Time { return frozen }))
	rc := ResolveContext{ProjectID: "proj-1", UserID: "user-1"}

	variables := []PromptVariable{
		{ID: "v1", Name: "date", Source: DateFunctionSource{Field: "current_date"}},
		{ID: "v2", Name: "tasks", Source: TasksAggregationSource{Aggregation: AggListTitles, Format: FormatCommaSeparated}},
	}
	blocks := []ContentBlock{
		{Order: 0, Type: BlockText, Value: "On "},
		{Order: 1, Type: BlockVariable, VariableID: "v1"},
		{Order: 2, Type: BlockText, Value: ": "},
		{Order: 3, Type: BlockVariable, VariableID: "v2"},
	}

	first := Render(t.Context(), blocks, variables, r, rc)
	second := Render(t.Context(), blocks, variables, r, rc)
	if first != second {
		t.Errorf("renders differ:\n%q\n%q", first, second)
	}
	if first != "On May 1, 2026: Design schema, Write migrations, Ship API" {
		t.Errorf("unexpected render: %q", first)
	}
}

func TestRenderDoesNotMutateInput(t *testing.T) {
	r := testResolver(&fakeGateway{})
	blocks := []ContentBlock{
		{Order: 1, Type: BlockText, Value: "b"},
		{Order: 0, Type: BlockText, Value: "a"},
	}
	Render(t.Context(), blocks, nil, r, ResolveContext{})
	if blocks[0].Value != "b" || blocks[1].Value != "a" {
		t.Error("render reordered the caller's slice")
	}
}
