// Package runner drives a benchmark run: it resolves the configured providers
// once, expands every test case over its image set, issues one provider call
// at a time with the configured delays, and accumulates the grouped results.
package runner

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/google/uuid"

	"github.com/songquanpeng/visionbench/bench/adaptor"
	"github.com/songquanpeng/visionbench/bench/adaptor/aws"
	"github.com/songquanpeng/visionbench/bench/adaptor/gemini"
	"github.com/songquanpeng/visionbench/bench/adaptor/openai"
	benchconfig "github.com/songquanpeng/visionbench/bench/config"
	"github.com/songquanpeng/visionbench/bench/model"
	"github.com/songquanpeng/visionbench/bench/provider"
	"github.com/songquanpeng/visionbench/bench/schema"
	"github.com/songquanpeng/visionbench/common/helper"
	"github.com/songquanpeng/visionbench/common/image"
	"github.com/songquanpeng/visionbench/common/logger"
)

// RunResult is the accumulated outcome of one run. Results appear in test
// case declaration order; within each test case, image then provider order.
type RunResult struct {
	RunID   string
	Results []model.TestCaseResult
}

// Runner executes a loaded benchmark configuration. All state lives on the
// struct and in the returned RunResult; nothing package-level accumulates.
type Runner struct {
	cfg      *benchconfig.Config
	adapters map[provider.Family]adaptor.Adaptor
}

func New(cfg *benchconfig.Config) *Runner {
	return &Runner{
		cfg: cfg,
		adapters: map[provider.Family]adaptor.Adaptor{
			provider.FamilyOpenAI:  openai.NewAdaptor(),
			provider.FamilyBedrock: aws.NewAdaptor(),
			provider.FamilyGemini:  gemini.NewAdaptor(),
		},
	}
}

// NewWithAdapters substitutes the family adapters, used by tests.
func NewWithAdapters(cfg *benchconfig.Config, adapters map[provider.Family]adaptor.Adaptor) *Runner {
	return &Runner{cfg: cfg, adapters: adapters}
}

// Run processes every test case sequentially. Per-call failures land in the
// result records; a test case whose schema cannot be translated or whose
// images cannot be found is skipped with a warning. Only context cancellation
// and a fully ineligible provider list abort the run.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.NewString()
	startTime := time.Now()
	logger.Logger.Info("benchmark run starting",
		zap.String("run_id", runID),
		zap.Int("test_cases", len(r.cfg.TestCases)),
		zap.Int("providers", len(r.cfg.Providers)))

	eligible := r.eligibleProviders()
	if len(eligible) == 0 {
		return nil, errors.New("no eligible providers; check configuration and credentials")
	}

	results := make([]model.TestCaseResult, 0, len(r.cfg.TestCases))
	for i := range r.cfg.TestCases {
		tc := &r.cfg.TestCases[i]
		logger.Logger.Info("running test case",
			zap.Int("index", i+1),
			zap.Int("total", len(r.cfg.TestCases)),
			zap.String("name", tc.Name))

		result, err := r.runTestCase(ctx, tc, eligible)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), "run interrupted")
			}
			logger.Logger.Warn("skipping test case",
				zap.String("name", tc.Name),
				zap.Error(err))
			continue
		}
		results = append(results, *result)

		if i < len(r.cfg.TestCases)-1 {
			if err := sleepCtx(ctx, r.cfg.DelayBetweenTestCases); err != nil {
				return nil, errors.Wrap(err, "run interrupted")
			}
		}
	}

	logger.Logger.Info("benchmark run finished",
		zap.String("run_id", runID),
		zap.Int("test_cases", len(results)),
		zap.Int64("elapsed_ms", helper.CalcElapsedTime(startTime)))
	return &RunResult{RunID: runID, Results: results}, nil
}

// eligibleProviders resolves every configured provider exactly once, so each
// unrecognized name and each credential gap warns a single time per run.
func (r *Runner) eligibleProviders() []provider.Resolved {
	eligible := make([]provider.Resolved, 0, len(r.cfg.Providers))
	for _, p := range r.cfg.Providers {
		resolved, ok := provider.Resolve(p.Name, p.Model)
		if !ok {
			logger.Logger.Warn("unrecognized provider name, skipping",
				zap.String("provider", p.Name))
			continue
		}
		if !resolved.HasCredentials() {
			logger.Logger.Warn("credentials missing, provider skipped for this run",
				zap.String("provider", p.Name),
				zap.String("family", resolved.Family.String()))
			continue
		}
		eligible = append(eligible, resolved)
	}
	return eligible
}

func (r *Runner) runTestCase(ctx context.Context, tc *model.TestCase, eligible []provider.Resolved) (*model.TestCaseResult, error) {
	directives, err := translateFor(tc, eligible)
	if err != nil {
		return nil, err
	}

	result := &model.TestCaseResult{
		Name:         tc.Name,
		Prompt:       tc.Prompt,
		MaxTokens:    tc.MaxTokens,
		Temperature:  tc.Temperature,
		Tools:        tc.Tools,
		Schema:       tc.Schema,
		IsMultiImage: tc.MultiImage(),
	}

	if !tc.MultiImage() {
		result.ImagePath = tc.ImagePath
		calls, err := r.runImage(ctx, tc, tc.ImagePath, eligible, directives)
		if err != nil {
			return nil, err
		}
		result.ProviderResults = calls
		return result, nil
	}

	images, err := image.ListDir(r.cfg.ImageDir)
	if err != nil {
		return nil, errors.Wrapf(err, "enumerate %s", r.cfg.ImageDir)
	}
	if len(images) == 0 {
		return nil, errors.Errorf("no supported images in %s", r.cfg.ImageDir)
	}
	logger.Logger.Info("multi-image test case",
		zap.String("name", tc.Name),
		zap.Int("images", len(images)))

	for _, imagePath := range images {
		calls, err := r.runImage(ctx, tc, imagePath, eligible, directives)
		if err != nil {
			return nil, err
		}
		result.ImageResults = append(result.ImageResults, model.ImageResult{
			ImagePath:       imagePath,
			ProviderResults: calls,
		})
	}
	return result, nil
}

// runImage issues one call per eligible provider in declared order, sleeping
// the inter-call delay after every call.
func (r *Runner) runImage(ctx context.Context, tc *model.TestCase, imagePath string, eligible []provider.Resolved, directives map[provider.Family]any) ([]model.CallResult, error) {
	calls := make([]model.CallResult, 0, len(eligible))
	for _, resolved := range eligible {
		calls = append(calls, r.call(ctx, tc, resolved, directives[resolved.Family], imagePath))
		if err := sleepCtx(ctx, r.cfg.DelayBetweenCalls); err != nil {
			return calls, err
		}
	}
	return calls, nil
}

// translateFor produces the structured-output directive for every family that
// will actually be called. A translation failure is fatal for the test case.
func translateFor(tc *model.TestCase, eligible []provider.Resolved) (map[provider.Family]any, error) {
	directives := make(map[provider.Family]any, len(eligible))
	for _, resolved := range eligible {
		if _, done := directives[resolved.Family]; done {
			continue
		}
		var (
			directive any
			err       error
		)
		switch resolved.Family {
		case provider.FamilyOpenAI:
			directive, err = schema.ForOpenAI(tc)
		case provider.FamilyBedrock:
			directive, err = schema.ForBedrock(tc)
		case provider.FamilyGemini:
			directive, err = schema.ForGemini(tc)
		default:
			err = errors.Errorf("no translation for family %s", resolved.Family)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "translate %q for %s", tc.Name, resolved.Family)
		}
		directives[resolved.Family] = directive
	}
	return directives, nil
}

// sleepCtx sleeps d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
