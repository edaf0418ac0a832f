// Package config loads and validates the benchmark document: the provider
// list, the test cases, and the run-level delay and directory settings.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	kenv "github.com/knadh/koanf/providers/env"
	kfile "github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/songquanpeng/visionbench/bench/model"
	"github.com/songquanpeng/visionbench/common/logger"
)

const (
	// DefaultMaxTokens caps the response size when a test case does not set
	// its own limit.
	DefaultMaxTokens = 2000
	// DefaultTemperature applies when a test case does not set one. An
	// explicit zero is honored, not replaced.
	DefaultTemperature = 0.7

	defaultDelayBetweenCalls     = 1.0
	defaultDelayBetweenTestCases = 2.0

	// DefaultImageDir is scanned by multi-image test cases.
	DefaultImageDir = "images"
	// DefaultOutputDir receives the timestamped result document.
	DefaultOutputDir = "results"
)

// Config is the fully resolved benchmark document. Every optional field has
// its default applied; durations are ready to sleep on.
type Config struct {
	Providers             []model.Provider
	TestCases             []model.TestCase
	DelayBetweenCalls     time.Duration
	DelayBetweenTestCases time.Duration
	ImageDir              string
	OutputDir             string
}

// document mirrors the YAML shape. Optional numerics are pointers so an
// explicit zero survives default application.
type document struct {
	Providers             []model.Provider `koanf:"providers"`
	TestCases             []rawTestCase    `koanf:"test_cases"`
	DelayBetweenCalls     *float64         `koanf:"delay_between_calls"`
	DelayBetweenTestCases *float64         `koanf:"delay_between_test_cases"`
	ImageDir              string           `koanf:"image_dir"`
	OutputDir             string           `koanf:"output_dir"`
}

type rawTestCase struct {
	Name        string         `koanf:"name"`
	Prompt      string         `koanf:"prompt"`
	ImagePath   string         `koanf:"image_path"`
	MaxTokens   *int           `koanf:"max_tokens"`
	Temperature *float64       `koanf:"temperature"`
	Schema      map[string]any `koanf:"schema"`
	Tools       []model.Tool   `koanf:"tools"`
}

var validate = validator.New()

// Load reads the document at path, layers BENCH__ environment overrides on
// top (double underscore splits levels), applies defaults, and validates.
// Invalid test cases are dropped with a warning; invalid providers and an
// empty document are fatal.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		example := path + ".example"
		if _, exErr := os.Stat(example); exErr == nil {
			return nil, errors.Errorf("%s not found; copy %s to %s and fill in your providers and test cases", path, example, path)
		}
		return nil, errors.Errorf("%s not found", path)
	}

	k := koanf.New(".")
	if err := k.Load(kfile.Provider(path), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	if err := k.Load(kenv.Provider("BENCH__", "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "BENCH__"))
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env overrides")
	}

	var doc document
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return build(&doc)
}

func build(doc *document) (*Config, error) {
	if len(doc.Providers) == 0 {
		return nil, errors.New("no providers configured")
	}
	for i := range doc.Providers {
		if err := validate.Struct(&doc.Providers[i]); err != nil {
			return nil, errors.Wrapf(err, "provider %d", i)
		}
	}

	cases := make([]model.TestCase, 0, len(doc.TestCases))
	for i := range doc.TestCases {
		tc, err := buildTestCase(&doc.TestCases[i])
		if err != nil {
			logger.Logger.Warn("dropping invalid test case",
				zap.String("test_case", doc.TestCases[i].Name),
				zap.Error(err))
			continue
		}
		cases = append(cases, tc)
	}
	if len(cases) == 0 {
		return nil, errors.New("no valid test cases configured")
	}

	return &Config{
		Providers:             doc.Providers,
		TestCases:             cases,
		DelayBetweenCalls:     seconds(doc.DelayBetweenCalls, defaultDelayBetweenCalls),
		DelayBetweenTestCases: seconds(doc.DelayBetweenTestCases, defaultDelayBetweenTestCases),
		ImageDir:              stringOr(doc.ImageDir, DefaultImageDir),
		OutputDir:             stringOr(doc.OutputDir, DefaultOutputDir),
	}, nil
}

func buildTestCase(raw *rawTestCase) (model.TestCase, error) {
	tc := model.TestCase{
		Name:        raw.Name,
		Prompt:      raw.Prompt,
		ImagePath:   raw.ImagePath,
		MaxTokens:   intOr(raw.MaxTokens, DefaultMaxTokens),
		Temperature: floatOr(raw.Temperature, DefaultTemperature),
		Schema:      raw.Schema,
		Tools:       raw.Tools,
	}

	if tc.Schema != nil && len(tc.Tools) > 0 {
		return tc, errors.New("schema and tools are mutually exclusive")
	}
	if tc.Schema == nil && len(tc.Tools) == 0 {
		return tc, errors.New("either a schema or at least one tool is required")
	}
	seen := make(map[string]struct{}, len(tc.Tools))
	for _, tool := range tc.Tools {
		if _, dup := seen[tool.Name]; dup {
			return tc, errors.Errorf("duplicate tool name %q", tool.Name)
		}
		seen[tool.Name] = struct{}{}
	}
	if err := validate.Struct(&tc); err != nil {
		return tc, errors.Wrap(err, "validate")
	}
	return tc, nil
}

func intOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}

func floatOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

func seconds(v *float64, fallback float64) time.Duration {
	s := fallback
	if v != nil {
		s = *v
	}
	return time.Duration(s * float64(time.Second))
}

func stringOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
