package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const subjectSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"topics": {"type": "string"},
		"difficulty": {"type": ["string", "integer"]},
		"extracted_topics": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"name": {"type": "string"},
					"difficulty": {"type": "integer", "minimum": 0, "maximum": 3},
					"reference": {"type": "string"}
				}
			}
		}
	}
}`

const maxJSONBody = 1 << 20

const dateSchema = `{"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}"}`

var previewSchema = `{
	"type": "object",
	"required": ["start_date", "end_date", "subjects"],
	"properties": {
		"start_date": ` + dateSchema + `,
		"end_date": ` + dateSchema + `,
		"subjects": {"type": "array", "minItems": 1, "items": ` + subjectSchema + `}
	}
}`

var createPlanSchema = `{
	"type": "object",
	"required": ["user_id", "title", "start_date", "end_date", "subjects"],
	"properties": {
		"user_id": {"type": "string", "minLength": 1},
		"title": {"type": "string", "minLength": 1},
		"goal": {"type": "string"},
		"start_date": ` + dateSchema + `,
		"end_date": ` + dateSchema + `,
		"subjects": {"type": "array", "minItems": 1, "items": ` + subjectSchema + `}
	}
}`

const toggleTaskSchema = `{
	"type": "object",
	"required": ["completed"],
	"properties": {
		"completed": {"type": "boolean"}
	}
}`

type schemas struct {
	preview    *gojsonschema.Schema
	createPlan *gojsonschema.Schema
	toggleTask *gojsonschema.Schema
}

func compileSchemas() (*schemas, error) {
	var sc schemas
	for _, s := range []struct {
		name string
		src  string
		dst  **gojsonschema.Schema
	}{
		{"preview", previewSchema, &sc.preview},
		{"create plan", createPlanSchema, &sc.createPlan},
		{"toggle task", toggleTaskSchema, &sc.toggleTask},
	} {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s.src))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", s.name, err)
		}
		*s.dst = compiled
	}
	return &sc, nil
}

// validate checks body against schema and returns a validation error that
// lists every violation.
func validate(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return invalidf("malformed JSON: %v", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return invalidf("%s", strings.Join(msgs, "; "))
}

// decodeJSON reads a JSON request body, checks it against schema and
// decodes it into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, schema *gojsonschema.Schema, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		return err
	}
	if err := validate(schema, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return invalidf("decode body: %v", err)
	}
	return nil
}
