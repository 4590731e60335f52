// Package schemas holds the JSON Schema contract for each pipeline stage and
// validates model output against it before the output is trusted.
package schemas

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/perviz24/innovati-x/internal/types"
)

//go:embed definitions/*.json
var definitions embed.FS

// schemaFiles maps each stage to its embedded schema document.
var schemaFiles = map[types.Stage]string{
	types.StageDecomposition: "definitions/decomposition.json",
	types.StageResearch:      "definitions/research.json",
	types.StageGapAnalysis:   "definitions/gap_analysis.json",
	types.StageInnovation:    "definitions/innovation.json",
	types.StageScoring:       "definitions/scoring.json",
	types.StagePatent:        "definitions/patent.json",
}

// compiled holds the parsed schema per stage, built once at package init.
// The documents ship inside the binary, so a compile failure is a programming
// error and panics immediately.
var compiled = func() map[types.Stage]*gojsonschema.Schema {
	m := make(map[types.Stage]*gojsonschema.Schema, len(schemaFiles))
	for stage, path := range schemaFiles {
		raw, err := definitions.ReadFile(path)
		if err != nil {
			panic(fmt.Sprintf("schemas: missing embedded schema for %s: %v", stage, err))
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			panic(fmt.Sprintf("schemas: invalid schema for %s: %v", stage, err))
		}
		m[stage] = schema
	}
	return m
}()

// ViolationReason classifies a single schema violation.
type ViolationReason string

// Violation reasons.
const (
	ReasonMissingField  ViolationReason = "missing_field"
	ReasonWrongType     ViolationReason = "wrong_type"
	ReasonEnumViolation ViolationReason = "enum_violation"
	ReasonOutOfRange    ViolationReason = "out_of_range"
	ReasonOther         ViolationReason = "other"
)

// Violation is one schema validation failure at a specific field.
type Violation struct {
	Field   string
	Reason  ViolationReason
	Message string
}

// SchemaError reports that a candidate document did not match a stage's
// schema, with one entry per violated constraint.
type SchemaError struct {
	Stage      types.Stage
	Violations []Violation
}

func (e *SchemaError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s output failed schema validation:", e.Stage)
	for _, v := range e.Violations {
		fmt.Fprintf(&sb, "\n  %s: %s (%s)", v.Field, v.Message, v.Reason)
	}
	return sb.String()
}

// classify maps gojsonschema error kinds onto the violation taxonomy.
func classify(kind string) ViolationReason {
	switch kind {
	case "required":
		return ReasonMissingField
	case "invalid_type":
		return ReasonWrongType
	case "enum", "const":
		return ReasonEnumViolation
	case "number_gte", "number_lte", "number_gt", "number_lt":
		return ReasonOutOfRange
	default:
		return ReasonOther
	}
}

// ValidateStage checks a raw JSON document against the named stage's schema.
// It returns nil when the document conforms, a *SchemaError listing every
// violation when it does not, and a plain error for stages with no schema.
func ValidateStage(stage types.Stage, document []byte) error {
	schema, ok := compiled[stage]
	if !ok {
		return fmt.Errorf("no schema registered for stage %q", stage)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		// The document could not be parsed as JSON.
		return &SchemaError{
			Stage: stage,
			Violations: []Violation{{
				Field:   "(root)",
				Reason:  ReasonWrongType,
				Message: err.Error(),
			}},
		}
	}

	if result.Valid() {
		return nil
	}

	schemaErr := &SchemaError{
		Stage:      stage,
		Violations: make([]Violation, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		schemaErr.Violations = append(schemaErr.Violations, Violation{
			Field:   field,
			Reason:  classify(desc.Type()),
			Message: desc.Description(),
		})
	}
	return schemaErr
}
