package config

import (
	"strings"

	"github.com/songquanpeng/visionbench/common/env"
)

var (
	// DebugEnabled toggles verbose structured logging when DEBUG=true.
	DebugEnabled = env.Bool("DEBUG", false)

	// OpenAIAPIKey authenticates chat-completions requests; when empty every
	// provider in the OpenAI family is skipped with a warning.
	OpenAIAPIKey = strings.TrimSpace(env.String("OPENAI_API_KEY", ""))
	// OpenAIBaseURL overrides the OpenAI endpoint, mainly to point the bench at
	// proxies or OpenAI-compatible gateways.
	OpenAIBaseURL = strings.TrimSuffix(strings.TrimSpace(env.String("OPENAI_BASE_URL", "https://api.openai.com/v1")), "/")

	// GeminiAPIKey authenticates generateContent requests; when empty every
	// provider in the Gemini family is skipped with a warning.
	GeminiAPIKey = strings.TrimSpace(env.String("GEMINI_API_KEY", ""))
	// GeminiBaseURL overrides the Generative Language API endpoint.
	GeminiBaseURL = strings.TrimSuffix(strings.TrimSpace(env.String("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")), "/")

	// AWSAccessKeyID is half of the ambient Bedrock credential pair; both keys
	// must be present or the Bedrock family is skipped with a warning.
	AWSAccessKeyID = strings.TrimSpace(env.String("AWS_ACCESS_KEY_ID", ""))
	// AWSSecretAccessKey is the other half of the Bedrock credential pair.
	AWSSecretAccessKey = strings.TrimSpace(env.String("AWS_SECRET_ACCESS_KEY", ""))
	// AWSRegion scopes the Bedrock runtime client.
	AWSRegion = strings.TrimSpace(env.String("AWS_REGION", "us-east-1"))

	// RequestTimeout bounds each provider HTTP request (seconds). A timeout
	// surfaces as a per-call error, never as a process failure.
	RequestTimeout = env.Int("REQUEST_TIMEOUT", 120)

	// MaxInlineImageSizeMB limits the size (MB) of images inlined as base64 so a
	// stray file cannot blow up request payloads.
	MaxInlineImageSizeMB = func() int {
		v := env.Int("MAX_INLINE_IMAGE_SIZE_MB", 30)
		if v < 0 {
			panic("MAX_INLINE_IMAGE_SIZE_MB must not be negative")
		}
		return v
	}()
)
