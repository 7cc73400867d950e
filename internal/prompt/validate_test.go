package prompt

import (
	"errors"
	"testing"
)

func TestValidateCreate(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		body := `{
			"title": "Standup",
			"ownerScope": "personal",
			"content": [{"order": 0, "type": "TEXT", "value": "hi"}],
			"variables": [{
				"name": "count",
				"source": {"type": "TASKS_AGGREGATION", "aggregation": "COUNT", "filter": {"status": "DONE"}}
			}]
		}`
		if err := ValidateCreate([]byte(body)); err != nil {
			t.Errorf("expected valid, got %v", err)
		}
	})

	t.Run("missing title", func(t *testing.T) {
		err := ValidateCreate([]byte(`{"ownerScope": "personal"}`))
		if !errors.Is(err, ErrBadInput) {
			t.Errorf("expected ErrBadInput, got %v", err)
		}
	})

	t.Run("empty title", func(t *testing.T) {
		err := ValidateCreate([]byte(`{"title": "", "ownerScope": "personal"}`))
		if !errors.Is(err, ErrBadInput) {
			t.Errorf("expected ErrBadInput, got %v", err)
		}
	})

	t.Run("bad owner scope", func(t *testing.T) {
		err := ValidateCreate([]byte(`{"title": "x", "ownerScope": "galactic"}`))
		if !errors.Is(err, ErrBadInput) {
			t.Errorf("expected ErrBadInput, got %v", err)
		}
	})

	t.Run("bad aggregation enum", func(t *testing.T) {
		body := `{
			"title": "x",
			"ownerScope": "personal",
			"variables": [{"name": "v", "source": {"type": "TASKS_AGGREGATION", "aggregation": "SUM"}}]
		}`
		err := ValidateCreate([]byte(body))
		if !errors.Is(err, ErrBadInput) {
			t.Errorf("expected ErrBadInput, got %v", err)
		}
	})

	t.Run("not JSON", func(t *testing.T) {
		err := ValidateCreate([]byte(`title: x`))
		if !errors.Is(err, ErrBadInput) {
			t.Errorf("expected ErrBadInput, got %v", err)
		}
	})
}

func TestValidateUpdate(t *testing.T) {
	t.Run("partial body is valid", func(t *testing.T) {
		if err := ValidateUpdate([]byte(`{"title": "renamed"}`)); err != nil {
			t.Errorf("expected valid, got %v", err)
		}
	})

	t.Run("empty body is valid", func(t *testing.T) {
		if err := ValidateUpdate([]byte(`{}`)); err != nil {
			t.Errorf("expected valid, got %v", err)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		err := ValidateUpdate([]byte(`{"ownerScope": "project"}`))
		if !errors.Is(err, ErrBadInput) {
			t.Errorf("expected ErrBadInput, got %v", err)
		}
	})
}
