package openai

import (
	"context"

	"github.com/bkyoung/prreview/internal/usecase/conversation"
	"github.com/bkyoung/prreview/internal/usecase/orchestrate"
)

// completer is satisfied by both HTTPClient and StaticClient. It is the
// single shape the two outbound ports below adapt to their respective
// packages' interfaces — provider choice is an operational concern the
// orchestrator and conversation tracker never see.
type completer interface {
	Complete(ctx context.Context, systemPrompt, prompt string, maxTokens int) (string, int64, error)
}

// OrchestratorClient adapts a completer to orchestrate.ModelClient.
type OrchestratorClient struct {
	c completer
}

// NewOrchestratorClient wraps c for use as one of the orchestrator's
// cheap/capable model collaborators.
func NewOrchestratorClient(c completer) OrchestratorClient {
	return OrchestratorClient{c: c}
}

// Complete implements orchestrate.ModelClient.
func (o OrchestratorClient) Complete(ctx context.Context, req orchestrate.ModelRequest) (orchestrate.ModelResponse, error) {
	text, costMicros, err := o.c.Complete(ctx, req.SystemPrompt, req.Prompt, req.MaxTokens)
	if err != nil {
		return orchestrate.ModelResponse{}, err
	}
	return orchestrate.ModelResponse{Text: text, CostUSDMicros: costMicros}, nil
}

// ConversationClient adapts a completer to conversation.ModelClient.
type ConversationClient struct {
	c completer
}

// NewConversationClient wraps c for use as the conversation tracker's
// model collaborator.
func NewConversationClient(c completer) ConversationClient {
	return ConversationClient{c: c}
}

// Complete implements conversation.ModelClient.
func (cc ConversationClient) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	const defaultMaxTokens = 600
	text, _, err := cc.c.Complete(ctx, systemPrompt, prompt, defaultMaxTokens)
	return text, err
}

var (
	_ orchestrate.ModelClient  = OrchestratorClient{}
	_ conversation.ModelClient = ConversationClient{}
)
