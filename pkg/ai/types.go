package ai

import "context"

// GenerationRequest describes one call to the text-generation provider.
type GenerationRequest struct {
	Prompt      string
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// GenerationResponse is the raw provider output. Text is the single leaf
// blob; structure extraction happens downstream.
type GenerationResponse struct {
	Text  string
	Usage map[string]interface{}
}

// Generator describes an AI model capable of producing free-text roadmaps.
type Generator interface {
	GenerateText(ctx context.Context, req GenerationRequest) (GenerationResponse, error)
}
