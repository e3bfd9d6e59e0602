package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

const defaultModelName = "gemini-2.5-flash-lite"

type VertexConfig struct {
	ProjectID string
	Location  string
	ModelName string
}

type VertexClient struct {
	client    *genai.Client
	modelName string
}

var _ domain.Responder = (*VertexClient)(nil)

// NewVertexClient creates a Responder based on Vertex AI (Gemini).
// Without a project or location it returns an error wrapping domain.ErrNotConfigured.
func NewVertexClient(ctx context.Context, cfg VertexConfig) (*VertexClient, error) {
	if cfg.ProjectID == "" || cfg.Location == "" {
		return nil, fmt.Errorf("vertex: project and location must be set: %w", domain.ErrNotConfigured)
	}

	modelName := cfg.ModelName
	if modelName == "" {
		modelName = defaultModelName
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// Generate implements domain.Responder. The deadline comes from ctx.
func (v *VertexClient) Generate(ctx context.Context, utterance string, turns []domain.Turn) (string, error) {
	contents := BuildContents(utterance, turns)

	temp := float32(0.7)
	topP := float32(0.9)

	cfg := &genai.GenerateContentConfig{
		// According to official examples, the role here is usually RoleUser, not "system"
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   int32(1024),
	}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w", err)
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", fmt.Errorf("vertex: %w", domain.ErrEmptyReply)
	}

	return text, nil
}
