package remote

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const todoSchemaURL = "todo.schema.json"

// The reference backend names the id "_id", so either key is accepted.
const todoSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "id":          {"type": "string", "minLength": 1},
    "_id":         {"type": "string", "minLength": 1},
    "title":       {"type": "string"},
    "description": {"type": ["string", "null"]},
    "completed":   {"type": "boolean"}
  },
  "required": ["title", "completed"],
  "anyOf": [{"required": ["id"]}, {"required": ["_id"]}]
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func todoValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(todoSchemaURL, strings.NewReader(todoSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(todoSchemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// validateTodos checks a raw body holding one todo object, or an array of them when many is set.
func validateTodos(body []byte, many bool) error {
	s, err := todoValidator()
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if !many {
		if err := s.Validate(doc); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return nil
	}
	arr, ok := doc.([]interface{})
	if !ok {
		return fmt.Errorf("%w: expected array", ErrInvalidResponse)
	}
	for i, el := range arr {
		if err := s.Validate(el); err != nil {
			return fmt.Errorf("%w: item %d: %v", ErrInvalidResponse, i, err)
		}
	}
	return nil
}
