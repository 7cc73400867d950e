package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	createSchema *jsonschema.Schema
	updateSchema *jsonschema.Schema
)

func init() {
	compiler := jsonschema.NewCompiler()
	for _, name := range []string{"create.json", "update.json"} {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			panic(fmt.Sprintf("read schema %s: %v", name, err))
		}
		if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
			panic(fmt.Sprintf("add schema %s: %v", name, err))
		}
	}
	createSchema = compiler.MustCompile("create.json")
	updateSchema = compiler.MustCompile("update.json")
}

// ValidateCreate checks a raw create request body against the create schema.
func ValidateCreate(raw []byte) error {
	return validateRaw(createSchema, raw)
}

// ValidateUpdate checks a raw update request body against the update schema.
func ValidateUpdate(raw []byte) error {
	return validateRaw(updateSchema, raw)
}

func validateRaw(schema *jsonschema.Schema, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrBadInput, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadInput, err)
	}
	return nil
}
