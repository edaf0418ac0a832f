package aws

import (
	"context"
	"encoding/json"

	"github.com/Laisky/errors/v2"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/songquanpeng/visionbench/bench/adaptor"
	"github.com/songquanpeng/visionbench/bench/schema"
)

// anthropicVersion is the messages-API revision Bedrock expects in every
// direct-invoke body.
const anthropicVersion = "bedrock-2023-05-31"

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	Messages         []anthropicMessage `json:"messages"`
	Tools            []anthropicTool    `json:"tools,omitempty"`
	ToolChoice       map[string]string  `json:"tool_choice,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

// anthropicContent covers both request blocks (text, image) and response
// blocks (text, tool_use).
type anthropicContent struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
	Name   string           `json:"name,omitempty"`
	Input  json.RawMessage  `json:"input,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Usage   *anthropicUsage    `json:"usage"`
}

type anthropicUsage struct {
	OutputTokens int `json:"output_tokens"`
}

// invokeCall performs one direct-invoke request with an Anthropic messages
// body carrying the image, the prompt, and the translated tool set.
func invokeCall(ctx context.Context, client Client, req *adaptor.Request, directive *schema.BedrockDirective) (string, *int, error) {
	body := anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		Messages: []anthropicMessage{{
			Role: "user",
			Content: []anthropicContent{
				{Type: "image", Source: &anthropicSource{
					Type:      "base64",
					MediaType: req.Image.MimeType,
					Data:      req.Image.Base64,
				}},
				{Type: "text", Text: req.Prompt},
			},
		}},
	}
	for _, tool := range directive.Tools {
		body.Tools = append(body.Tools, anthropicTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Schema,
		})
	}
	if directive.ForcedTool != "" {
		body.ToolChoice = map[string]string{"type": "tool", "name": directive.ForcedTool}
	} else {
		body.ToolChoice = map[string]string{"type": "auto"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", nil, errors.Wrap(err, "marshal invoke body")
	}

	output, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     awssdk.String(req.Model),
		Body:        payload,
		ContentType: awssdk.String("application/json"),
		Accept:      awssdk.String("application/json"),
	})
	if err != nil {
		return "", nil, classifyError(err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(output.Body, &parsed); err != nil {
		return "", nil, errors.Wrap(err, "decode invoke response")
	}

	text, err := extractInvokeText(parsed)
	if err != nil {
		return "", nil, err
	}

	var tokens *int
	if parsed.Usage != nil {
		generated := parsed.Usage.OutputTokens
		tokens = &generated
	}
	return text, tokens, nil
}

// extractInvokeText prefers the first tool_use block, re-serialized with
// indentation so the recorded response is the structured payload itself.
// Plain text responses come back verbatim.
func extractInvokeText(resp anthropicResponse) (string, error) {
	for _, block := range resp.Content {
		if block.Type != "tool_use" {
			continue
		}
		var input any
		if err := json.Unmarshal(block.Input, &input); err != nil {
			return "", errors.Wrap(err, "decode tool input")
		}
		pretty, err := json.MarshalIndent(input, "", "  ")
		if err != nil {
			return "", errors.Wrap(err, "render tool input")
		}
		return string(pretty), nil
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("response carries no tool_use or text content")
}
