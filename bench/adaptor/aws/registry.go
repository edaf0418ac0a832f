package aws

import "strings"

// CallShape selects which Bedrock runtime API a model identifier requires.
type CallShape int

const (
	// CallShapeInvoke is the direct invoke API. Claude-family models take an
	// Anthropic messages body and answer tool use with tool_use blocks.
	CallShapeInvoke CallShape = iota + 1
	// CallShapeConverse is the conversation API. Nova and Llama vision models
	// expose image input and tool use only through it.
	CallShapeConverse
)

// converseMarkers are the family substrings that require the Converse API.
// The check also catches inference-profile ARNs, which embed the family name.
var converseMarkers = []string{"nova", "llama"}

// ResolveCallShape inspects a model identifier for known family markers.
// Unrecognized identifiers fall back to direct invoke.
func ResolveCallShape(model string) CallShape {
	lowered := strings.ToLower(model)
	for _, marker := range converseMarkers {
		if strings.Contains(lowered, marker) {
			return CallShapeConverse
		}
	}
	return CallShapeInvoke
}
