package aws

import "testing"

func TestResolveCallShape(t *testing.T) {
	tests := []struct {
		model string
		want  CallShape
	}{
		{"amazon.nova-lite-v1:0", CallShapeConverse},
		{"amazon.nova-pro-v1:0", CallShapeConverse},
		{"us.meta.llama3-2-11b-instruct-v1:0", CallShapeConverse},
		{"arn:aws:bedrock:us-west-2:123456789012:inference-profile/us.amazon.nova-pro-v1:0", CallShapeConverse},
		{"anthropic.claude-3-5-sonnet-20241022-v2:0", CallShapeInvoke},
		{"arn:aws:bedrock:us-east-1:123456789012:inference-profile/us.anthropic.claude-3-7-sonnet-20250219-v1:0", CallShapeInvoke},
		{"mistral.pixtral-large-2502-v1:0", CallShapeInvoke},
	}
	for _, tt := range tests {
		if got := ResolveCallShape(tt.model); got != tt.want {
			t.Errorf("ResolveCallShape(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}
