// Package model holds the benchmark's data entities: configured test cases and
// providers on the way in, call and test-case results on the way out. All of
// them are built fresh per run and immutable once constructed.
package model

// Tool is one selectable output shape in multi-tool mode. The model reads the
// description to decide which tool fits the image; the schema constrains the
// fields it must produce.
type Tool struct {
	Name        string         `json:"name" koanf:"name" validate:"required"`
	Description string         `json:"description" koanf:"description" validate:"required"`
	Schema      map[string]any `json:"schema" koanf:"schema" validate:"required"`
}

// TestCase is one prompt/image/output-shape combination issued to every
// configured provider. Exactly one of Schema and Tools is set; an empty
// ImagePath fans the test case out over the configured image directory.
type TestCase struct {
	Name        string         `koanf:"name" validate:"required"`
	Prompt      string         `koanf:"prompt" validate:"required"`
	ImagePath   string         `koanf:"image_path"`
	MaxTokens   int            `koanf:"max_tokens" validate:"gte=0"`
	Temperature float64        `koanf:"temperature" validate:"gte=0,lte=2"`
	Schema      map[string]any `koanf:"schema" validate:"excluded_with=Tools"`
	Tools       []Tool         `koanf:"tools" validate:"excluded_with=Schema,dive"`
}

// MultiImage reports whether the test case runs against every image in the
// image directory instead of a single fixed file.
func (tc *TestCase) MultiImage() bool {
	return tc.ImagePath == ""
}

// MultiTool reports whether the model chooses among several tools instead of
// filling a single schema.
func (tc *TestCase) MultiTool() bool {
	return len(tc.Tools) > 0
}

// ToolNames returns the tool names in declaration order.
func (tc *TestCase) ToolNames() []string {
	names := make([]string, 0, len(tc.Tools))
	for _, tool := range tc.Tools {
		names = append(names, tool.Name)
	}
	return names
}

// Provider is one configured benchmark target: a free-form name whose prefix
// selects the adapter family, and the vendor-specific model identifier.
type Provider struct {
	Name  string `koanf:"name" validate:"required"`
	Model string `koanf:"model" validate:"required"`
}
