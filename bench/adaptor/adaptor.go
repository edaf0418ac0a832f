// Package adaptor defines the contract every provider adapter implements. An
// adapter translates one uniform request into its vendor's wire protocol,
// performs the single non-streaming call, and hands back the verbatim response
// text plus whatever token count the vendor reported.
package adaptor

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/songquanpeng/visionbench/common/config"
	"github.com/songquanpeng/visionbench/common/image"
)

// Request is one provider invocation. Directive carries the family-specific
// structured-output directive produced by the translator; each adapter asserts
// the type it understands.
type Request struct {
	Model       string
	Prompt      string
	Image       *image.Payload
	MaxTokens   int
	Temperature float64
	Directive   any
}

// Adaptor performs one provider call. Implementations convert every failure
// (transport, auth, malformed response) into the error return and never panic
// past their boundary; the caller turns a non-nil error into the call record's
// error field.
type Adaptor interface {
	Invoke(ctx context.Context, req *Request) (raw string, tokens *int, err error)
}

// HTTPClient is shared by the HTTP adapters. Per-request deadlines come from
// REQUEST_TIMEOUT so a hung vendor surfaces as a per-call error.
var HTTPClient = &http.Client{
	Timeout: time.Duration(config.RequestTimeout) * time.Second,
}

// Snippet trims a response body for diagnostics so error strings stay short.
func Snippet(body []byte, limit int) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
