package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: openai
    model: gpt-4o
test_cases:
  - name: basic
    prompt: describe the image
    image_path: images/cat.jpg
    schema:
      type: object
      properties:
        summary:
          type: string
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.TestCases, 1)
	tc := cfg.TestCases[0]
	require.Equal(t, DefaultMaxTokens, tc.MaxTokens)
	require.Equal(t, DefaultTemperature, tc.Temperature)
	require.False(t, tc.MultiImage())

	require.Equal(t, time.Second, cfg.DelayBetweenCalls)
	require.Equal(t, 2*time.Second, cfg.DelayBetweenTestCases)
	require.Equal(t, DefaultImageDir, cfg.ImageDir)
	require.Equal(t, DefaultOutputDir, cfg.OutputDir)
}

func TestLoadHonorsExplicitZeros(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: gemini
    model: gemini-2.0-flash
test_cases:
  - name: deterministic
    prompt: classify
    temperature: 0
    max_tokens: 500
    schema:
      type: object
delay_between_calls: 0
delay_between_test_cases: 0.5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 0.0, cfg.TestCases[0].Temperature)
	require.Equal(t, 500, cfg.TestCases[0].MaxTokens)
	require.Equal(t, time.Duration(0), cfg.DelayBetweenCalls)
	require.Equal(t, 500*time.Millisecond, cfg.DelayBetweenTestCases)
}

func TestLoadDropsInvalidTestCases(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: openai
    model: gpt-4o
test_cases:
  - name: both-shapes
    prompt: p
    schema:
      type: object
    tools:
      - name: t
        description: d
        schema:
          type: object
  - name: no-shape
    prompt: p
  - name: duplicate-tools
    prompt: p
    tools:
      - name: same
        description: d
        schema:
          type: object
      - name: same
        description: d
        schema:
          type: object
  - name: survivor
    prompt: p
    tools:
      - name: only
        description: d
        schema:
          type: object
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.TestCases, 1)
	require.Equal(t, "survivor", cfg.TestCases[0].Name)
	require.True(t, cfg.TestCases[0].MultiTool())
	require.True(t, cfg.TestCases[0].MultiImage())
}

func TestLoadAllTestCasesInvalid(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: openai
    model: gpt-4o
test_cases:
  - name: no-shape
    prompt: p
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "no valid test cases")
}

func TestLoadNoProviders(t *testing.T) {
	path := writeConfig(t, `
test_cases:
  - name: tc
    prompt: p
    schema:
      type: object
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "no providers")
}

func TestLoadMissingFileWithExampleHint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path+".example", []byte("providers: []\n"), 0o644))

	_, err := Load(path)
	require.ErrorContains(t, err, "copy")
	require.ErrorContains(t, err, "config.yaml.example")
}

func TestLoadMissingFileWithoutExample(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.ErrorContains(t, err, "not found")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BENCH__OUTPUT_DIR", "elsewhere")
	path := writeConfig(t, `
providers:
  - name: openai
    model: gpt-4o
test_cases:
  - name: tc
    prompt: p
    schema:
      type: object
output_dir: results
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "elsewhere", cfg.OutputDir)
}
