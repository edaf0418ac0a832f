package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/visionbench/bench/model"
)

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func successCall(provider, modelID string, latency float64, tokens int, response string) model.CallResult {
	return model.CallResult{
		Provider:   provider,
		Model:      modelID,
		Response:   strPtr(response),
		LatencyMs:  latency,
		Timestamp:  "2026-08-25T10:00:00Z",
		TokensUsed: intPtr(tokens),
	}
}

func failedCall(provider, modelID string, latency float64, message string) model.CallResult {
	return model.CallResult{
		Provider:  provider,
		Model:     modelID,
		LatencyMs: latency,
		Timestamp: "2026-08-25T10:00:01Z",
		Error:     strPtr(message),
	}
}

func TestWriteRoundTrip(t *testing.T) {
	raw := "{\n  \"label\": \"café ☃\",\n  \"note\": \"line one\\nline two\"\n}"
	results := []model.TestCaseResult{{
		Name:        "round-trip",
		Prompt:      "describe the image",
		MaxTokens:   100,
		Temperature: 0.5,
		Schema:      map[string]any{"type": "object"},
		ImagePath:   "images/cat.jpg",
		ProviderResults: []model.CallResult{
			successCall("openai", "gpt-4o", 812.5, 42, raw),
			failedCall("gemini", "gemini-2.0-flash", 90.25, "prompt blocked: SAFETY"),
		},
	}}

	dir := t.TempDir()
	now := time.Date(2026, 8, 25, 13, 4, 5, 0, time.UTC)
	path, err := Write(results, dir, now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "test_results_20260825_130405.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []model.TestCaseResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)

	okCall := decoded[0].ProviderResults[0]
	require.NotNil(t, okCall.Response)
	require.Equal(t, raw, *okCall.Response)
	require.Nil(t, okCall.Error)
	require.Equal(t, 42, *okCall.TokensUsed)

	failed := decoded[0].ProviderResults[1]
	require.Nil(t, failed.Response)
	require.NotNil(t, failed.Error)
	require.Nil(t, failed.TokensUsed)

	// Absent sides are explicit nulls, not omitted keys.
	require.Contains(t, string(data), `"error": null`)
	require.Contains(t, string(data), `"response": null`)
}

func TestWriteCreatesOutputDir(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "results", "nightly")
	path, err := Write([]model.TestCaseResult{}, nested, time.Now())
	require.NoError(t, err)
	require.FileExists(t, path)
}

func TestWritePromptAndToolsAppearOnce(t *testing.T) {
	results := []model.TestCaseResult{{
		Name:        "dedup",
		Prompt:      "classify the subject",
		MaxTokens:   64,
		Temperature: 0,
		Tools: []model.Tool{{
			Name:        "animal",
			Description: "an animal",
			Schema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"species": map[string]any{"type": "string"}},
			},
		}},
		IsMultiImage: true,
		ImageResults: []model.ImageResult{
			{ImagePath: "images/a.jpg", ProviderResults: []model.CallResult{
				successCall("openai", "gpt-4o", 100, 10, `{"item_type":"animal"}`),
				successCall("gemini", "gemini-2.0-flash", 120, 11, `{"item_type":"animal"}`),
			}},
			{ImagePath: "images/b.png", ProviderResults: []model.CallResult{
				successCall("openai", "gpt-4o", 110, 12, `{"item_type":"animal"}`),
			}},
		},
	}}

	path, err := Write(results, t.TempDir(), time.Now())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(data)
	require.Equal(t, 1, strings.Count(text, `"prompt"`))
	require.Equal(t, 1, strings.Count(text, `"classify the subject"`))
	require.Equal(t, 1, strings.Count(text, `"tools"`))
}

func TestSummarize(t *testing.T) {
	results := []model.TestCaseResult{
		{
			Name:      "one",
			ImagePath: "images/a.jpg",
			ProviderResults: []model.CallResult{
				successCall("openai", "gpt-4o", 100, 40, `{}`),
				successCall("bedrock_claude", "anthropic.claude-3", 300, 20, `{}`),
				failedCall("gemini", "gemini-2.0-flash", 50, "boom"),
			},
		},
		{
			Name:         "two",
			IsMultiImage: true,
			ImageResults: []model.ImageResult{
				{ImagePath: "images/a.jpg", ProviderResults: []model.CallResult{
					successCall("openai", "gpt-4o", 200, 60, `{}`),
				}},
				{ImagePath: "images/b.png", ProviderResults: []model.CallResult{
					failedCall("openai", "gpt-4o", 999, "boom"),
				}},
			},
		},
	}

	s := Summarize(results)
	require.Equal(t, 2, s.TestCases)
	require.Equal(t, 3, s.Images)
	require.Equal(t, 5, s.Calls)
	require.Equal(t, 3, s.Successes)
	require.Equal(t, 2, s.Failures)

	require.Len(t, s.Providers, 3)
	require.Equal(t, "openai", s.Providers[0].Provider)
	require.Equal(t, "bedrock_claude", s.Providers[1].Provider)
	require.Equal(t, "gemini", s.Providers[2].Provider)

	openaiStats := s.Providers[0]
	require.Equal(t, 3, openaiStats.Calls)
	require.Equal(t, 2, openaiStats.Successes)
	require.InEpsilon(t, 150.0, openaiStats.MeanLatencyMs, 1e-9)
	require.InEpsilon(t, 50.0, openaiStats.MeanTokens, 1e-9)
	require.Equal(t, 2, openaiStats.TokenReports)

	geminiStats := s.Providers[2]
	require.Equal(t, 0, geminiStats.Successes)
	require.Zero(t, geminiStats.MeanLatencyMs)

	require.Equal(t, "openai", s.Fastest)
	require.Equal(t, "bedrock_claude", s.MostTokenEfficient)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	require.Zero(t, s.Calls)
	require.Empty(t, s.Providers)
	require.Empty(t, s.Fastest)
	require.Empty(t, s.MostTokenEfficient)
}

func TestRender(t *testing.T) {
	results := []model.TestCaseResult{
		{
			Name:      "basic",
			ImagePath: "images/cat.jpg",
			ProviderResults: []model.CallResult{
				successCall("openai", "gpt-4o", 100, 40, `{}`),
				failedCall("gemini", "gemini-2.0-flash", 50, "boom"),
			},
		},
		{
			Name:         "sweep",
			IsMultiImage: true,
			ImageResults: []model.ImageResult{
				{ImagePath: "images/a.jpg", ProviderResults: []model.CallResult{
					successCall("openai", "gpt-4o", 200, 60, `{}`),
				}},
				{ImagePath: "images/b.png", ProviderResults: []model.CallResult{
					successCall("openai", "gpt-4o", 300, 80, `{}`),
				}},
			},
		},
	}

	var buf bytes.Buffer
	Render(&buf, "run-123", results, "/tmp/out.json")
	out := buf.String()

	require.Contains(t, out, "benchmark run run-123")
	require.Contains(t, out, "test cases: 2  images: 3  calls: 4  successful: 3  failed: 1")
	require.Contains(t, out, "basic (images/cat.jpg)")
	require.Contains(t, out, "ok   openai: 100ms, 40 tokens")
	require.Contains(t, out, "fail gemini: 50ms (boom)")
	require.Contains(t, out, "sweep (2 images)")
	require.Contains(t, out, "images/b.png")
	require.Contains(t, out, "PROVIDER")
	require.Contains(t, out, "fastest provider: openai")
	require.Contains(t, out, "most token-efficient: openai")
	require.Contains(t, out, "results saved to /tmp/out.json")
}
