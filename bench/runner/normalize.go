package runner

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/songquanpeng/visionbench/bench/adaptor"
	"github.com/songquanpeng/visionbench/bench/model"
	"github.com/songquanpeng/visionbench/bench/provider"
	"github.com/songquanpeng/visionbench/bench/schema"
	"github.com/songquanpeng/visionbench/common/config"
	"github.com/songquanpeng/visionbench/common/helper"
	"github.com/songquanpeng/visionbench/common/image"
	"github.com/songquanpeng/visionbench/common/logger"
)

// call performs one provider invocation and normalizes whatever happens into
// a CallResult. The raw response is stored untouched; exactly one of the
// response and error fields ends up non-nil.
func (r *Runner) call(ctx context.Context, tc *model.TestCase, resolved provider.Resolved, directive any, imagePath string) model.CallResult {
	start := time.Now()
	raw, tokens, err := r.invoke(ctx, tc, resolved, directive, imagePath)

	record := model.CallResult{
		Provider:   resolved.Name,
		Model:      resolved.Model,
		LatencyMs:  helper.CalcElapsedTimeFloat(start),
		Timestamp:  helper.FormatTimestamp(time.Now()),
		TokensUsed: tokens,
	}
	if err != nil {
		message := err.Error()
		record.Error = &message
		record.TokensUsed = nil
		logger.Logger.Warn("provider call failed",
			zap.String("provider", resolved.Name),
			zap.String("model", resolved.Model),
			zap.String("image", imagePath),
			zap.Error(err))
		return record
	}

	record.Response = &raw
	logger.Logger.Info("provider call finished",
		zap.String("provider", resolved.Name),
		zap.String("model", resolved.Model),
		zap.Float64("latency_ms", record.LatencyMs))

	if tc.MultiTool() {
		envelope, decodeErr := schema.DecodeToolEnvelope(raw, tc.ToolNames())
		if decodeErr != nil {
			logger.Logger.Debug("tool envelope not decodable",
				zap.String("provider", resolved.Name),
				zap.Error(decodeErr))
		} else {
			logger.Logger.Info("model selected tool",
				zap.String("provider", resolved.Name),
				zap.String("tool", envelope.SelectedTool))
		}
	}
	return record
}

// invoke loads the image payload and dispatches to the family adapter under a
// per-call deadline. Image read failures surface here so they become per-call
// errors like any transport failure.
func (r *Runner) invoke(ctx context.Context, tc *model.TestCase, resolved provider.Resolved, directive any, imagePath string) (string, *int, error) {
	payload, err := image.Load(imagePath)
	if err != nil {
		return "", nil, err
	}

	adapter, ok := r.adapters[resolved.Family]
	if !ok {
		return "", nil, errors.Errorf("no adapter wired for family %s", resolved.Family)
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(config.RequestTimeout)*time.Second)
	defer cancel()

	return adapter.Invoke(callCtx, &adaptor.Request{
		Model:       resolved.Model,
		Prompt:      tc.Prompt,
		Image:       payload,
		MaxTokens:   tc.MaxTokens,
		Temperature: tc.Temperature,
		Directive:   directive,
	})
}
