// Package openai calls the chat completions API with a vision message and a
// native structured-output directive, either response_format json_schema or
// function tools.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/visionbench/bench/adaptor"
	"github.com/songquanpeng/visionbench/bench/schema"
	"github.com/songquanpeng/visionbench/common/config"
)

type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type request struct {
	Model          string                 `json:"model"`
	Messages       []message              `json:"messages"`
	MaxTokens      int                    `json:"max_tokens"`
	Temperature    float64                `json:"temperature"`
	ResponseFormat *schema.ResponseFormat `json:"response_format,omitempty"`
	Tools          []schema.FunctionTool  `json:"tools,omitempty"`
	ToolChoice     any                    `json:"tool_choice,omitempty"`
}

type response struct {
	Choices []choice  `json:"choices"`
	Usage   *usage    `json:"usage"`
	Error   *apiError `json:"error"`
}

type choice struct {
	Message responseMessage `json:"message"`
}

type responseMessage struct {
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls"`
}

type toolCall struct {
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type usage struct {
	TotalTokens int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Adaptor talks to the chat completions endpoint. BaseURL and APIKey default
// to the process configuration; tests point BaseURL at a local server.
type Adaptor struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewAdaptor() *Adaptor {
	return &Adaptor{
		BaseURL: config.OpenAIBaseURL,
		APIKey:  config.OpenAIAPIKey,
		Client:  adaptor.HTTPClient,
	}
}

func (a *Adaptor) Invoke(ctx context.Context, req *adaptor.Request) (string, *int, error) {
	directive, ok := req.Directive.(*schema.OpenAIDirective)
	if !ok {
		return "", nil, errors.Errorf("unexpected directive type %T", req.Directive)
	}

	body := request{
		Model: req.Model,
		Messages: []message{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: req.Prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: req.Image.DataURL()}},
			},
		}},
		MaxTokens:      req.MaxTokens,
		Temperature:    req.Temperature,
		ResponseFormat: directive.ResponseFormat,
		Tools:          directive.Tools,
		ToolChoice:     directive.ToolChoice,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", nil, errors.Wrap(err, "marshal chat completions request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", nil, errors.Wrap(err, "build chat completions request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.APIKey)

	resp, err := a.Client.Do(httpReq)
	if err != nil {
		return "", nil, errors.Wrap(err, "post chat completions")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, errors.Wrap(err, "read chat completions response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, errors.Errorf("chat completions returned status %d: %s",
			resp.StatusCode, adaptor.Snippet(respBody, 200))
	}

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", nil, errors.Wrap(err, "decode chat completions response")
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", nil, errors.Errorf("chat completions error: %s (%s)",
			parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return "", nil, errors.New("chat completions returned no choices")
	}

	msg := parsed.Choices[0].Message
	text := msg.Content
	if len(directive.Tools) > 0 {
		if len(msg.ToolCalls) == 0 {
			return "", nil, errors.New("model returned no tool call")
		}
		text = msg.ToolCalls[0].Function.Arguments
	}

	var tokens *int
	if parsed.Usage != nil {
		total := parsed.Usage.TotalTokens
		tokens = &total
	}
	return text, tokens, nil
}
