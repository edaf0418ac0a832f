package aws

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/songquanpeng/visionbench/bench/adaptor"
	"github.com/songquanpeng/visionbench/bench/schema"
)

// converseCall performs one Converse request. The image travels as raw bytes
// with its format derived from the MIME subtype, and the tool set becomes a
// ToolConfiguration with lazy JSON documents for the schemas.
func converseCall(ctx context.Context, client Client, req *adaptor.Request, directive *schema.BedrockDirective) (string, *int, error) {
	imageBytes, err := req.Image.Bytes()
	if err != nil {
		return "", nil, err
	}
	format := types.ImageFormat(strings.TrimPrefix(req.Image.MimeType, "image/"))

	input := &bedrockruntime.ConverseInput{
		ModelId: awssdk.String(req.Model),
		Messages: []types.Message{{
			Role: types.ConversationRoleUser,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberImage{Value: types.ImageBlock{
					Format: format,
					Source: &types.ImageSourceMemberBytes{Value: imageBytes},
				}},
				&types.ContentBlockMemberText{Value: req.Prompt},
			},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   awssdk.Int32(int32(req.MaxTokens)),
			Temperature: awssdk.Float32(float32(req.Temperature)),
		},
	}

	toolConfig := &types.ToolConfiguration{}
	for _, tool := range directive.Tools {
		toolConfig.Tools = append(toolConfig.Tools, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        awssdk.String(tool.Name),
				Description: awssdk.String(tool.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(tool.Schema),
				},
			},
		})
	}
	if directive.ForcedTool != "" {
		toolConfig.ToolChoice = &types.ToolChoiceMemberTool{
			Value: types.SpecificToolChoice{Name: awssdk.String(directive.ForcedTool)},
		}
	} else {
		toolConfig.ToolChoice = &types.ToolChoiceMemberAuto{Value: types.AutoToolChoice{}}
	}
	input.ToolConfig = toolConfig

	output, err := client.Converse(ctx, input)
	if err != nil {
		return "", nil, classifyError(err)
	}

	message, ok := output.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", nil, errors.Errorf("unexpected converse output type %T", output.Output)
	}

	text, err := extractConverseText(message.Value.Content)
	if err != nil {
		return "", nil, err
	}

	var tokens *int
	if output.Usage != nil && output.Usage.OutputTokens != nil {
		generated := int(*output.Usage.OutputTokens)
		tokens = &generated
	}
	return text, tokens, nil
}

// extractConverseText mirrors the invoke path: the first tool-use block wins
// and is re-serialized with indentation, otherwise the text blocks are joined.
func extractConverseText(blocks []types.ContentBlock) (string, error) {
	for _, block := range blocks {
		toolUse, ok := block.(*types.ContentBlockMemberToolUse)
		if !ok {
			continue
		}
		raw, err := toolUse.Value.Input.MarshalSmithyDocument()
		if err != nil {
			return "", errors.Wrap(err, "decode tool input")
		}
		var input any
		if err := json.Unmarshal(raw, &input); err != nil {
			return "", errors.Wrap(err, "decode tool input")
		}
		pretty, err := json.MarshalIndent(input, "", "  ")
		if err != nil {
			return "", errors.Wrap(err, "render tool input")
		}
		return string(pretty), nil
	}

	var parts []string
	for _, block := range blocks {
		if text, ok := block.(*types.ContentBlockMemberText); ok && text.Value != "" {
			parts = append(parts, text.Value)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("response carries no tool_use or text content")
	}
	return strings.Join(parts, "\n"), nil
}
