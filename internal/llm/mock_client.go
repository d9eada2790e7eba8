package llm

import "context"

// MockClient is a mock implementation of Client for testing
type MockClient struct {
	CompleteFunc func(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)

	// Calls counts invocations regardless of CompleteFunc.
	Calls int
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	m.Calls++
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemPrompt, userPrompt, maxTokens)
	}

	// Default mock behavior: a minimal valid categorization object.
	return `{"ID": "", "category": "Other", "analysis": "mock", "senderGoal": ""}`, nil
}
