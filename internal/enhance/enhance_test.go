package enhance

import (
	"testing"
)

func TestDisabledWithoutAPIKey(t *testing.T) {
	c := New(Config{Enabled: true, Model: "gpt-4o-mini"})
	if c.Enabled() {
		t.Error("client must be disabled without an API key")
	}

	out, err := c.Enhance(t.Context(), "some prompt", "")
	if err != nil {
		t.Errorf("disabled enhance must not error: %v", err)
	}
	if out != "" {
		t.Errorf("disabled enhance must return empty output, got %q", out)
	}
}

func TestDisabledByConfig(t *testing.T) {
	c := New(Config{Enabled: false, APIKey: "sk-test", Model: "gpt-4o-mini"})
	if c.Enabled() {
		t.Error("client must respect the enabled flag")
	}
}

func TestEmptyInputIsNoop(t *testing.T) {
	c := New(Config{Enabled: true, APIKey: "sk-test", Model: "gpt-4o-mini"})

	out, err := c.Enhance(t.Context(), "   \n", "")
	if err != nil {
		t.Errorf("empty input must not error: %v", err)
	}
	if out != "" {
		t.Errorf("empty input must return empty output, got %q", out)
	}
}
