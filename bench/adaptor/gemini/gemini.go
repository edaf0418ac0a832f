// Package gemini calls the generateContent API with inline image data and the
// response-schema dialect of structured output.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/visionbench/bench/adaptor"
	"github.com/songquanpeng/visionbench/bench/schema"
	"github.com/songquanpeng/visionbench/common/config"
)

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	MaxOutputTokens  int            `json:"maxOutputTokens"`
	Temperature      float64        `json:"temperature"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type response struct {
	Candidates     []candidate     `json:"candidates"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata"`
	PromptFeedback *promptFeedback `json:"promptFeedback"`
	Error          *apiError       `json:"error"`
}

type candidate struct {
	Content      candidateContent `json:"content"`
	FinishReason string           `json:"finishReason"`
}

type candidateContent struct {
	Parts []part `json:"parts"`
}

type usageMetadata struct {
	TotalTokenCount int `json:"totalTokenCount"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Adaptor talks to the generateContent endpoint. The API key travels as a
// query parameter, so error messages must never echo the request URL.
type Adaptor struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewAdaptor() *Adaptor {
	return &Adaptor{
		BaseURL: config.GeminiBaseURL,
		APIKey:  config.GeminiAPIKey,
		Client:  adaptor.HTTPClient,
	}
}

func (a *Adaptor) Invoke(ctx context.Context, req *adaptor.Request) (string, *int, error) {
	directive, ok := req.Directive.(*schema.GeminiDirective)
	if !ok {
		return "", nil, errors.Errorf("unexpected directive type %T", req.Directive)
	}

	body := request{
		Contents: []content{{
			Parts: []part{
				{Text: req.Prompt},
				{InlineData: &inlineData{MimeType: req.Image.MimeType, Data: req.Image.Base64}},
			},
		}},
		GenerationConfig: generationConfig{
			MaxOutputTokens:  req.MaxTokens,
			Temperature:      req.Temperature,
			ResponseMimeType: directive.ResponseMimeType,
			ResponseSchema:   directive.ResponseSchema,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", nil, errors.Wrap(err, "marshal generateContent request")
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		a.BaseURL, req.Model, a.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", nil, errors.Wrap(scrubURL(err), "build generateContent request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(httpReq)
	if err != nil {
		return "", nil, errors.Wrap(scrubURL(err), "post generateContent")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, errors.Wrap(err, "read generateContent response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, errors.Errorf("generateContent returned status %d: %s",
			resp.StatusCode, adaptor.Snippet(respBody, 200))
	}

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", nil, errors.Wrap(err, "decode generateContent response")
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", nil, errors.Errorf("generateContent error: %s (%s)",
			parsed.Error.Message, parsed.Error.Status)
	}
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return "", nil, errors.Errorf("prompt blocked: %s", parsed.PromptFeedback.BlockReason)
	}
	if len(parsed.Candidates) == 0 {
		return "", nil, errors.New("generateContent returned no candidates")
	}

	cand := parsed.Candidates[0]
	if len(cand.Content.Parts) == 0 || cand.Content.Parts[0].Text == "" {
		if cand.FinishReason != "" {
			return "", nil, errors.Errorf("generateContent returned no text (finish reason %s)", cand.FinishReason)
		}
		return "", nil, errors.New("generateContent returned no text")
	}

	var tokens *int
	if parsed.UsageMetadata != nil {
		total := parsed.UsageMetadata.TotalTokenCount
		tokens = &total
	}
	return cand.Content.Parts[0].Text, tokens, nil
}

// scrubURL drops the url.Error layer from request and transport failures. Its
// message echoes the full request URL, key parameter included, and the inner
// error carries the diagnostic that matters.
func scrubURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
