package openai

import (
	"context"
	"fmt"
)

// StaticClient is an offline model collaborator: it echoes back a
// deterministic, zero-cost response instead of calling out to OpenAI.
// Useful for local development and for the conversation/orchestrator
// tests that don't want a live API dependency.
type StaticClient struct{}

// NewStaticClient constructs a stubbed client.
func NewStaticClient() *StaticClient {
	return &StaticClient{}
}

// Complete returns a deterministic placeholder response at zero cost.
func (s *StaticClient) Complete(ctx context.Context, systemPrompt, prompt string, maxTokens int) (string, int64, error) {
	return fmt.Sprintf("static response to: %.60s", prompt), 0, nil
}
