package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// forestSchema accepts both the legacy flat shape (no subtasks, no
// timestamps) and the current nested shape. Unknown fields are allowed so
// newer data is not rejected.
const forestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": { "$ref": "#/$defs/task" },
  "$defs": {
    "task": {
      "type": "object",
      "required": ["id", "title"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "title": { "type": "string" },
        "status": { "enum": ["TODO", "IN_PROGRESS", "DONE", ""] },
        "createdAt": { "type": "string" },
        "updatedAt": { "type": "string" },
        "subtasks": {
          "type": ["array", "null"],
          "items": { "$ref": "#/$defs/task" }
        }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("tasks.schema.json", forestSchema)

// Encode serializes a forest. A nil forest encodes as an empty array.
func Encode(forest []Task) ([]byte, error) {
	if forest == nil {
		forest = []Task{}
	}
	return json.Marshal(forest)
}

// Decode validates data against the forest schema and unmarshals it. The
// result may still be in the legacy shape; run Migrate on it.
func Decode(data []byte) ([]Task, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate tasks: %w", err)
	}

	var forest []Task
	if err := json.Unmarshal(data, &forest); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	if id, dup := duplicateID(forest); dup {
		if id == "" {
			return nil, fmt.Errorf("decode tasks: empty id")
		}
		return nil, fmt.Errorf("decode tasks: duplicate id %q", id)
	}
	return forest, nil
}
