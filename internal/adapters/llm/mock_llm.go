package llm

import (
	"context"
	"fmt"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

// MockLLM answers locally without a model. Useful for dev and demos.
type MockLLM struct{}

var _ domain.Responder = (*MockLLM)(nil)

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) Generate(ctx context.Context, utterance string, turns []domain.Turn) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("I hear you. You said %q. Tell me a bit more about how that makes you feel.", utterance), nil
}
