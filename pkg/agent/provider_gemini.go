package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/harun/assigny/pkg/session"
)

// GeminiProvider implements Provider for Google Gemini.
type GeminiProvider struct {
	apiKey string
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{apiKey: apiKey}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Complete makes an API call to Google Gemini.
func (p *GeminiProvider) Complete(ctx context.Context, request CompletionRequest) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.apiKey})
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}

	contents := []*genai.Content{}
	for _, turn := range request.History {
		var role genai.Role = genai.RoleUser
		if turn.Role == session.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(request.Message, genai.RoleUser))

	config := &genai.GenerateContentConfig{}
	if request.System != "" {
		config.SystemInstruction = genai.NewContentFromText(request.System, genai.RoleUser)
	}
	if request.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(request.Temperature))
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}

	response, err := client.Models.GenerateContent(ctx, request.Model, contents, config)
	if err != nil {
		return "", err
	}
	return response.Text(), nil
}
