// Package schema translates provider-agnostic output schemas and tool lists
// into each vendor's native structured-output directive. Translation is a pure
// function of its input: source schemas are deep-copied before any rewrite, so
// translating the same test case twice yields identical directives.
package schema

import (
	"sort"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/jinzhu/copier"

	"github.com/songquanpeng/visionbench/bench/model"
	"github.com/songquanpeng/visionbench/common/logger"
)

// maxSchemaDepth bounds schema nesting, measured over raw schema nodes: every
// nested map or array counts one level, so one object level costs two (the
// schema node plus its properties map). 12 admits the five levels of object
// nesting strict response-format mode accepts; schemas beyond this cannot be
// expressed and fail translation as a configuration error.
const maxSchemaDepth = 12

// ResponseFormat is the chat-completions response_format directive.
type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

// JSONSchema is the strict-mode schema envelope inside a response_format.
type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// FunctionTool is one callable definition in the chat-completions tool list.
type FunctionTool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function describes a callable the model may invoke with schema-shaped arguments.
type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// OpenAIDirective is the structured-output directive for the OpenAI family:
// either a strict response format (single schema) or a tool list the model
// chooses from (multi-tool mode).
type OpenAIDirective struct {
	ResponseFormat *ResponseFormat
	Tools          []FunctionTool
	ToolChoice     any
}

// NamedSchema is one named tool schema in vendor-neutral form; the Bedrock
// adapter renders it into whichever call shape the model family requires.
type NamedSchema struct {
	Name        string
	Description string
	Schema      map[string]any
}

// BedrockDirective carries the tool definitions both Bedrock call shapes
// consume. ForcedTool names the tool the model must invoke in single-schema
// mode; empty means the model chooses.
type BedrockDirective struct {
	Tools      []NamedSchema
	ForcedTool string
}

// GeminiDirective configures generateContent structured output. Relaxed lists
// the schema keywords stripped because the response-schema dialect rejects
// them; empty means the schema survived untouched.
type GeminiDirective struct {
	ResponseMimeType string
	ResponseSchema   map[string]any
	Relaxed          []string
}

// ForOpenAI builds the OpenAI-family directive for a test case.
func ForOpenAI(tc *model.TestCase) (*OpenAIDirective, error) {
	if len(tc.Tools) > 0 {
		tools := make([]FunctionTool, 0, len(tc.Tools))
		for _, tool := range tc.Tools {
			if err := checkDepth(tool.Schema, tool.Name); err != nil {
				return nil, err
			}
			params, err := withDiscriminator(tool)
			if err != nil {
				return nil, err
			}
			tools = append(tools, FunctionTool{
				Type: "function",
				Function: Function{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  params,
				},
			})
		}
		return &OpenAIDirective{Tools: tools, ToolChoice: "auto"}, nil
	}

	if err := checkDepth(tc.Schema, tc.Name); err != nil {
		return nil, err
	}
	strict, err := strictSchema(tc.Schema)
	if err != nil {
		return nil, err
	}
	return &OpenAIDirective{
		ResponseFormat: &ResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchema{
				Name:   sanitizeName(tc.Name),
				Strict: true,
				Schema: strict,
			},
		},
	}, nil
}

// ForBedrock builds the Bedrock-family directive for a test case. A single
// schema becomes one synthesized tool the model is forced to invoke, matching
// the messages-API convention for guaranteed structured output.
func ForBedrock(tc *model.TestCase) (*BedrockDirective, error) {
	if len(tc.Tools) > 0 {
		tools := make([]NamedSchema, 0, len(tc.Tools))
		for _, tool := range tc.Tools {
			if err := checkDepth(tool.Schema, tool.Name); err != nil {
				return nil, err
			}
			tagged, err := withDiscriminator(tool)
			if err != nil {
				return nil, err
			}
			tools = append(tools, NamedSchema{
				Name:        tool.Name,
				Description: tool.Description,
				Schema:      tagged,
			})
		}
		return &BedrockDirective{Tools: tools}, nil
	}

	if err := checkDepth(tc.Schema, tc.Name); err != nil {
		return nil, err
	}
	cloned, err := cloneSchema(tc.Schema)
	if err != nil {
		return nil, err
	}
	toolName := sanitizeName(tc.Name)
	return &BedrockDirective{
		Tools: []NamedSchema{{
			Name:        toolName,
			Description: "Analyze and respond with structured data according to the schema for: " + tc.Name,
			Schema:      cloned,
		}},
		ForcedTool: toolName,
	}, nil
}

// ForGemini builds the generateContent directive for a test case. Multi-tool
// mode is emulated with a union of all tool schemas discriminated by the
// item_type field, because the response-schema mechanism accepts exactly one
// schema. Unsupported keywords are stripped; the relaxation is deliberate and
// logged, never silent.
func ForGemini(tc *model.TestCase) (*GeminiDirective, error) {
	var base map[string]any
	var err error
	if len(tc.Tools) > 0 {
		for _, tool := range tc.Tools {
			if err := checkDepth(tool.Schema, tool.Name); err != nil {
				return nil, err
			}
		}
		base, err = unionSchema(tc.Tools)
	} else {
		if err := checkDepth(tc.Schema, tc.Name); err != nil {
			return nil, err
		}
		base, err = cloneSchema(tc.Schema)
	}
	if err != nil {
		return nil, err
	}

	relaxed := relaxSchema(base)
	if len(relaxed) > 0 {
		logger.Logger.Warn("schema relaxed for response-schema dialect",
			zap.String("test_case", tc.Name),
			zap.Strings("stripped_keywords", relaxed))
	}

	return &GeminiDirective{
		ResponseMimeType: "application/json",
		ResponseSchema:   base,
		Relaxed:          relaxed,
	}, nil
}

// strictSchema prepares a schema for strict response-format mode, which
// requires every top-level property to be listed as required.
func strictSchema(schema map[string]any) (map[string]any, error) {
	cloned, err := cloneSchema(schema)
	if err != nil {
		return nil, err
	}
	if props, ok := cloned["properties"].(map[string]any); ok {
		keys := make([]string, 0, len(props))
		for key := range props {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		required := make([]any, 0, len(keys))
		for _, key := range keys {
			required = append(required, key)
		}
		cloned["required"] = required
	}
	return cloned, nil
}

// cloneSchema deep-copies a schema map so rewrites never leak back into the
// immutable test case.
func cloneSchema(schema map[string]any) (map[string]any, error) {
	if schema == nil {
		return nil, nil
	}
	cloned := make(map[string]any, len(schema))
	if err := copier.CopyWithOption(&cloned, schema, copier.Option{DeepCopy: true}); err != nil {
		return nil, errors.Wrap(err, "deep copy schema")
	}
	return cloned, nil
}

// checkDepth rejects schemas nested beyond what vendor structured-output modes
// accept. The returned error names the offending tool or test case so the
// caller can skip just that test case.
func checkDepth(schema map[string]any, name string) error {
	if depth := nodeDepth(schema); depth > maxSchemaDepth {
		return errors.Errorf("schema for %q exceeds max nesting depth %d (got %d)", name, maxSchemaDepth, depth)
	}
	return nil
}

func nodeDepth(node any) int {
	deepest := 0
	switch typed := node.(type) {
	case map[string]any:
		for _, val := range typed {
			if d := nodeDepth(val); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	case []any:
		for _, item := range typed {
			if d := nodeDepth(item); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	default:
		return 0
	}
}

// sanitizeName turns a human test-case name into a vendor-safe identifier.
func sanitizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
