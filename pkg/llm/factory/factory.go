package factory

import (
	"fmt"

	"notechat-be/pkg/llm"
	"notechat-be/pkg/llm/gemini"
	"notechat-be/pkg/llm/ollama"
)

func NewLLMProvider(providerType, modelName, baseURL, geminiAPIKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "gemini":
		if geminiAPIKey == "" {
			return nil, fmt.Errorf("gemini provider requires GOOGLE_GEMINI_API_KEY")
		}
		return gemini.NewGeminiProvider(geminiAPIKey, modelName), nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
