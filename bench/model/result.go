package model

// CallResult is the uniform record of one provider call. Exactly one of
// Response and Error is non-nil: a call either succeeded with a verbatim
// vendor body or failed with a diagnostic, never both. The null-able fields
// marshal as explicit nulls so every document carries the same keys.
type CallResult struct {
	Provider   string  `json:"provider"`
	Model      string  `json:"model"`
	Response   *string `json:"response"`
	LatencyMs  float64 `json:"latency_ms"`
	Timestamp  string  `json:"timestamp"`
	TokensUsed *int    `json:"tokens_used"`
	Error      *string `json:"error"`
}

// Succeeded reports whether the call produced a response.
func (r *CallResult) Succeeded() bool {
	return r.Error == nil
}

// ImageResult groups the per-provider results for one image of a multi-image
// test case.
type ImageResult struct {
	ImagePath       string       `json:"image_path"`
	ProviderResults []CallResult `json:"provider_results"`
}

// TestCaseResult is the persisted record of one test case. Prompt and
// tools/schema appear here exactly once, never duplicated per image or per
// provider, so the document does not grow combinatorially with provider count.
type TestCaseResult struct {
	Name        string         `json:"name"`
	Prompt      string         `json:"prompt"`
	MaxTokens   int            `json:"max_tokens"`
	Temperature float64        `json:"temperature"`
	Tools       []Tool         `json:"tools,omitempty"`
	Schema      map[string]any `json:"schema,omitempty"`

	IsMultiImage bool `json:"is_multi_image"`

	// Single-image mode.
	ImagePath       string       `json:"image_path,omitempty"`
	ProviderResults []CallResult `json:"provider_results,omitempty"`

	// Multi-image mode.
	ImageResults []ImageResult `json:"image_results,omitempty"`
}

// CallResults flattens the results regardless of image mode, preserving image
// then provider order.
func (r *TestCaseResult) CallResults() []CallResult {
	if !r.IsMultiImage {
		return r.ProviderResults
	}
	var all []CallResult
	for _, group := range r.ImageResults {
		all = append(all, group.ProviderResults...)
	}
	return all
}
