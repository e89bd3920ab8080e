package generation

import (
	"context"
	"fmt"
)

// ProviderSettings selects and configures a concrete provider.
type ProviderSettings struct {
	Provider string // "gemini" or "openai"
	APIKey   string
	Model    string
	BaseURL  string
}

// NewClient builds the configured provider client.
func NewClient(ctx context.Context, s ProviderSettings) (Client, error) {
	switch s.Provider {
	case "gemini", "":
		return NewGeminiClient(ctx, s.APIKey, s.Model)
	case "openai":
		return NewOpenAIClient(s.APIKey, s.Model, s.BaseURL)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", s.Provider)
	}
}
