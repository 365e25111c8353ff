package message

import (
	"encoding/json"
	"testing"
)

type searchInput struct {
	Query string `json:"query" jsonschema:"required,description=the search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=max results"`
}

func TestToolFromStruct_DerivesSchema(t *testing.T) {
	t.Parallel()

	tool, err := ToolFromStruct[searchInput]("search", "search the web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tool.Name != "search" || tool.Description != "search the web" {
		t.Fatalf("unexpected tool fields: %+v", tool)
	}

	var schema map[string]interface{}
	if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
		t.Fatalf("expected valid JSON schema, got error: %v", err)
	}
	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected a properties map, got %+v", schema)
	}
	if _, ok := props["query"]; !ok {
		t.Errorf("expected 'query' property in derived schema, got %+v", props)
	}
}
