package schema

import (
	"encoding/json"
	"slices"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/visionbench/bench/model"
)

// DiscriminatorField tags every multi-tool output with the tool that produced
// it, so the selection can be recovered uniformly no matter which native
// mechanism (tool-call name, union response schema) the vendor used.
const DiscriminatorField = "item_type"

const discriminatorDescription = "The type of analysis performed - which tool was conceptually used"

// ToolEnvelope is the uniform view of a multi-tool response: the tool the
// model selected and the payload it produced.
type ToolEnvelope struct {
	SelectedTool string
	Payload      map[string]any
}

// DecodeToolEnvelope recovers the tool selection from a raw multi-tool
// response body. The body must be a JSON object whose discriminator field
// names one of the configured tools; the discriminator is removed from the
// returned payload.
func DecodeToolEnvelope(raw string, toolNames []string) (*ToolEnvelope, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, errors.Wrap(err, "response is not a JSON object")
	}

	selected, ok := payload[DiscriminatorField].(string)
	if !ok {
		return nil, errors.Errorf("response carries no %q field", DiscriminatorField)
	}
	if !slices.Contains(toolNames, selected) {
		return nil, errors.Errorf("selected tool %q is not one of the configured tools", selected)
	}

	delete(payload, DiscriminatorField)
	return &ToolEnvelope{SelectedTool: selected, Payload: payload}, nil
}

// withDiscriminator returns a copy of the tool's schema whose root carries the
// discriminator property pinned to the tool's own name.
func withDiscriminator(tool model.Tool) (map[string]any, error) {
	cloned, err := cloneSchema(tool.Schema)
	if err != nil {
		return nil, err
	}
	if cloned == nil {
		cloned = map[string]any{}
	}

	props, ok := cloned["properties"].(map[string]any)
	if !ok {
		props = map[string]any{}
		cloned["properties"] = props
	}
	props[DiscriminatorField] = map[string]any{
		"type":        "string",
		"enum":        []any{tool.Name},
		"description": discriminatorDescription,
	}
	cloned["required"] = appendUnique(anySlice(cloned["required"]), DiscriminatorField)
	return cloned, nil
}

// unionSchema merges every tool's schema into a single object schema whose
// discriminator enumerates all tool names. Vendors without native tool
// selection receive this union and report the choice through the
// discriminator value.
func unionSchema(tools []model.Tool) (map[string]any, error) {
	names := make([]any, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}

	unionProps := map[string]any{
		DiscriminatorField: map[string]any{
			"type":        "string",
			"enum":        names,
			"description": discriminatorDescription,
		},
	}
	required := []any{DiscriminatorField}

	// First tool wins on conflicting property names, matching declaration order.
	for _, tool := range tools {
		cloned, err := cloneSchema(tool.Schema)
		if err != nil {
			return nil, err
		}
		props, _ := cloned["properties"].(map[string]any)
		for name, def := range props {
			if _, exists := unionProps[name]; !exists {
				unionProps[name] = def
			}
		}
		for _, req := range anySlice(cloned["required"]) {
			required = appendUniqueAny(required, req)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": unionProps,
		"required":   required,
	}, nil
}

// anySlice coerces a decoded schema "required" entry into a generic slice.
func anySlice(val any) []any {
	switch typed := val.(type) {
	case []any:
		return typed
	case []string:
		out := make([]any, 0, len(typed))
		for _, s := range typed {
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}

func appendUnique(list []any, val string) []any {
	return appendUniqueAny(list, val)
}

func appendUniqueAny(list []any, val any) []any {
	if slices.Contains(list, val) {
		return list
	}
	return append(list, val)
}
