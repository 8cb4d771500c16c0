package usecase

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

const (
	PayloadSignup      = "signup"
	PayloadLogin       = "login"
	PayloadVerifyEmail = "verify_email"
	PayloadProduct     = "product"
	PayloadRoleChange  = "role_change"
	PayloadOrder       = "order"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// PayloadValidator checks request bodies against the embedded JSON schemas
// before they are decoded into use-case inputs.
type PayloadValidator struct {
	schemas map[string]*santhosh.Schema
}

func NewPayloadValidator() (*PayloadValidator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}

	schemas := make(map[string]*santhosh.Schema, len(entries))
	for _, entry := range entries {
		raw, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}
		compiled, err := compileSchema(entry.Name(), raw)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", entry.Name(), err)
		}
		schemas[strings.TrimSuffix(entry.Name(), ".json")] = compiled
	}
	return &PayloadValidator{schemas: schemas}, nil
}

// Validate returns *domain.ErrPayloadViolation when data does not match the
// named schema.
func (v *PayloadValidator) Validate(name string, data json.RawMessage) error {
	sch, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown payload schema %q", name)
	}
	return runValidation(sch, data)
}

func compileSchema(name string, schemaJSON []byte) (*santhosh.Schema, error) {
	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	if err := compiler.AddResource(name, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

func runValidation(sch *santhosh.Schema, data json.RawMessage) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return &domain.ErrPayloadViolation{Errors: []string{"body must be valid json"}}
	}
	if err := sch.Validate(v); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return &domain.ErrPayloadViolation{Errors: collectValidationErrors(ve)}
		}
		return &domain.ErrPayloadViolation{Errors: []string{err.Error()}}
	}
	return nil
}

func collectValidationErrors(ve *santhosh.ValidationError) []string {
	var msgs []string
	for _, cause := range ve.Causes {
		msgs = append(msgs, collectValidationErrors(cause)...)
	}
	if len(ve.Causes) == 0 {
		msgs = append(msgs, ve.InstanceLocation+": "+ve.Message)
	}
	return msgs
}
