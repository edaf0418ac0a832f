// Package report persists run results as JSON and renders the console
// summary. Everything here is read-only over the result records; the
// superlative picks (fastest, most token-efficient) exist only on the
// console and are never written to disk.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/olekukonko/tablewriter"
	"github.com/pkoukk/tiktoken-go"

	"github.com/songquanpeng/visionbench/bench/model"
	"github.com/songquanpeng/visionbench/common/logger"
)

// Write marshals the results as indented JSON under outputDir, named after
// the run start time, and returns the written path. The directory is created
// if missing.
func Write(results []model.TestCaseResult, outputDir string, now time.Time) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create output dir %s", outputDir)
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal results")
	}
	path := filepath.Join(outputDir, fmt.Sprintf("test_results_%s.json", now.Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	logger.Logger.Info("results saved", zap.String("path", path))
	return path, nil
}

// ProviderStats aggregates every call one provider made during a run.
// Latency and token means cover successful calls only; EstimatedTokens sums
// tiktoken estimates for successes whose vendor returned no usage.
type ProviderStats struct {
	Provider        string
	Calls           int
	Successes       int
	MeanLatencyMs   float64
	MeanTokens      float64
	TokenReports    int
	EstimatedTokens int
}

// Summary is the console-only aggregate view of a run.
type Summary struct {
	TestCases          int
	Images             int
	Calls              int
	Successes          int
	Failures           int
	Providers          []ProviderStats
	Fastest            string
	MostTokenEfficient string
}

type providerTally struct {
	calls           int
	successes       int
	latencySum      float64
	tokenSum        int
	tokenReports    int
	estimatedTokens int
}

// Summarize folds the result records into run totals and per-provider stats.
// Providers appear in first-seen order, which follows their declaration
// order in the configuration.
func Summarize(results []model.TestCaseResult) Summary {
	s := Summary{TestCases: len(results)}

	var order []string
	tallies := make(map[string]*providerTally)
	observe := func(call model.CallResult) {
		tally, ok := tallies[call.Provider]
		if !ok {
			tally = &providerTally{}
			tallies[call.Provider] = tally
			order = append(order, call.Provider)
		}
		s.Calls++
		tally.calls++
		if !call.Succeeded() {
			s.Failures++
			return
		}
		s.Successes++
		tally.successes++
		tally.latencySum += call.LatencyMs
		if call.TokensUsed != nil {
			tally.tokenSum += *call.TokensUsed
			tally.tokenReports++
		} else if call.Response != nil {
			tally.estimatedTokens += countTokens(*call.Response)
		}
	}

	for i := range results {
		res := &results[i]
		if res.IsMultiImage {
			s.Images += len(res.ImageResults)
		} else {
			s.Images++
		}
		for _, call := range res.CallResults() {
			observe(call)
		}
	}

	var bestLatency, bestTokens float64
	for _, name := range order {
		tally := tallies[name]
		stats := ProviderStats{
			Provider:        name,
			Calls:           tally.calls,
			Successes:       tally.successes,
			TokenReports:    tally.tokenReports,
			EstimatedTokens: tally.estimatedTokens,
		}
		if tally.successes > 0 {
			stats.MeanLatencyMs = tally.latencySum / float64(tally.successes)
		}
		if tally.tokenReports > 0 {
			stats.MeanTokens = float64(tally.tokenSum) / float64(tally.tokenReports)
		}
		s.Providers = append(s.Providers, stats)

		if stats.Successes > 0 && (s.Fastest == "" || stats.MeanLatencyMs < bestLatency) {
			s.Fastest, bestLatency = name, stats.MeanLatencyMs
		}
		if stats.TokenReports > 0 && (s.MostTokenEfficient == "" || stats.MeanTokens < bestTokens) {
			s.MostTokenEfficient, bestTokens = name, stats.MeanTokens
		}
	}
	return s
}

// Render prints the console summary: run header, totals, per-test-case
// breakdown with inline errors, the provider stats table, the superlatives,
// and where the JSON landed.
func Render(w io.Writer, runID string, results []model.TestCaseResult, path string) {
	s := Summarize(results)

	fmt.Fprintf(w, "benchmark run %s\n", runID)
	fmt.Fprintf(w, "test cases: %d  images: %d  calls: %d  successful: %d  failed: %d\n\n",
		s.TestCases, s.Images, s.Calls, s.Successes, s.Failures)

	for i := range results {
		res := &results[i]
		if res.IsMultiImage {
			fmt.Fprintf(w, "%s (%d images)\n", res.Name, len(res.ImageResults))
			for _, group := range res.ImageResults {
				fmt.Fprintf(w, "  %s\n", group.ImagePath)
				renderCalls(w, "    ", group.ProviderResults)
			}
		} else {
			fmt.Fprintf(w, "%s (%s)\n", res.Name, res.ImagePath)
			renderCalls(w, "  ", res.ProviderResults)
		}
		fmt.Fprintln(w)
	}

	if len(s.Providers) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"provider", "calls", "ok", "mean latency", "mean tokens", "est tokens"})
		for _, stats := range s.Providers {
			meanTokens := "-"
			if stats.TokenReports > 0 {
				meanTokens = fmt.Sprintf("%.1f", stats.MeanTokens)
			}
			table.Append([]string{
				stats.Provider,
				strconv.Itoa(stats.Calls),
				strconv.Itoa(stats.Successes),
				fmt.Sprintf("%.0fms", stats.MeanLatencyMs),
				meanTokens,
				strconv.Itoa(stats.EstimatedTokens),
			})
		}
		table.Render()
	}

	if s.Fastest != "" {
		fmt.Fprintf(w, "fastest provider: %s\n", s.Fastest)
	}
	if s.MostTokenEfficient != "" {
		fmt.Fprintf(w, "most token-efficient: %s\n", s.MostTokenEfficient)
	}
	fmt.Fprintf(w, "results saved to %s\n", path)
}

func renderCalls(w io.Writer, indent string, calls []model.CallResult) {
	for _, call := range calls {
		status := "ok  "
		if !call.Succeeded() {
			status = "fail"
		}
		fmt.Fprintf(w, "%s%s %s: %.0fms", indent, status, call.Provider, call.LatencyMs)
		if call.TokensUsed != nil {
			fmt.Fprintf(w, ", %d tokens", *call.TokensUsed)
		}
		if call.Error != nil {
			fmt.Fprintf(w, " (%s)", *call.Error)
		}
		fmt.Fprintln(w)
	}
}

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// countTokens estimates completion tokens when a vendor reports no usage.
// The gpt-4o encoding is loaded once on first use; if it cannot load, for
// example offline without TIKTOKEN_CACHE_DIR, a character heuristic stands
// in.
func countTokens(text string) int {
	encoderOnce.Do(func() {
		enc, err := tiktoken.EncodingForModel("gpt-4o")
		if err != nil {
			logger.Logger.Debug("tiktoken encoder unavailable, estimating by character count",
				zap.Error(err))
			return
		}
		encoder = enc
	})
	if encoder == nil {
		return int(float64(len(text)) * 0.38)
	}
	return len(encoder.Encode(text, nil, nil))
}
