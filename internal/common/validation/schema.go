// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// SchemaValidator checks raw JSON documents against a compiled JSON schema.
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

// NewSchemaValidator compiles schemaJSON once for reuse across messages.
func NewSchemaValidator(schemaJSON string) (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Validate returns nil when raw conforms, otherwise an error listing every
// violation.
func (v *SchemaValidator) Validate(raw []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("data validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

// Struct validates `validate` struct tags on request bodies.
func Struct(v interface{}) error {
	structValidatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
	})

	err := structValidator.Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, ", "))
}
