package message

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToolFromStruct derives a Tool's input_schema from a Go struct via
// reflection, the way an agent author would otherwise hand-write JSON
// Schema for every tool. T's exported fields and their `jsonschema`/`json`
// tags (see invopop/jsonschema's documentation) control the generated
// schema; T is given as a type argument, e.g.
// ToolFromStruct[SearchInput]("search", "...").
//
// Grounded on spec.md §6's tool-definition surface; invopop/jsonschema is a
// DOMAIN STACK dependency with no teacher analog (the teacher's tool
// definitions in pkg/providerutils/tool are hand-authored per provider), so
// this helper is new rather than adapted.
func ToolFromStruct[T any](name, description string) (Tool, error) {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(new(T))
	raw, err := json.Marshal(schema)
	if err != nil {
		return Tool{}, NewSerializationError("failed to derive tool input schema", err)
	}
	return Tool{Name: name, Description: description, InputSchema: raw}, nil
}
