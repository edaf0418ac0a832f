// Package provider decides which adapter family handles each configured
// provider. Resolution is a pure function over the closed set of supported
// families, so routing is testable without touching any vendor client.
package provider

import (
	"strings"

	"github.com/songquanpeng/visionbench/common/config"
)

// Family identifies one adapter family. The set is closed: adding a vendor
// means adding a variant here and an adapter package for it.
type Family int

const (
	FamilyOpenAI Family = iota
	FamilyBedrock
	FamilyGemini
	// FamilyDummy only counts the families, do not add any family after it.
	FamilyDummy
)

func (f Family) String() string {
	switch f {
	case FamilyOpenAI:
		return "openai"
	case FamilyBedrock:
		return "bedrock"
	case FamilyGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// Resolved is a configured provider whose family routing has been decided,
// carrying the vendor-specific model identifier it will invoke.
type Resolved struct {
	Family Family
	Name   string
	Model  string
}

// Resolve maps a configured provider entry onto its family. Names beginning
// with "bedrock" select the Bedrock family no matter the suffix; other names
// must match a vendor exactly. The boolean is false for unrecognized names,
// which callers skip with a warning instead of failing the run.
func Resolve(name, model string) (Resolved, bool) {
	resolved := Resolved{Name: name, Model: model}
	switch {
	case strings.HasPrefix(name, "bedrock"):
		resolved.Family = FamilyBedrock
	case name == "openai":
		resolved.Family = FamilyOpenAI
	case name == "gemini":
		resolved.Family = FamilyGemini
	default:
		return Resolved{}, false
	}
	return resolved, true
}

// HasCredentials reports whether the ambient environment carries the secrets
// this provider's family needs. Families without credentials are skipped
// before any call is attempted.
func (r Resolved) HasCredentials() bool {
	switch r.Family {
	case FamilyOpenAI:
		return config.OpenAIAPIKey != ""
	case FamilyBedrock:
		return config.AWSAccessKeyID != "" && config.AWSSecretAccessKey != ""
	case FamilyGemini:
		return config.GeminiAPIKey != ""
	default:
		return false
	}
}
