package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"notechat-be/pkg/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1/models"

type GeminiProvider struct {
	APIKey    string
	ModelName string
	BaseURL   string
	Client    *http.Client
}

var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(apiKey, modelName string) *GeminiProvider {
	return &GeminiProvider{
		APIKey:    apiKey,
		ModelName: modelName,
		BaseURL:   defaultBaseURL,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type geminiChatParts struct {
	Text string `json:"text"`
}

type geminiChatContent struct {
	Parts []*geminiChatParts `json:"parts"`
	Role  string             `json:"role"`
}

type geminiChatRequest struct {
	Contents []*geminiChatContent `json:"contents"`
}

type geminiChatCandidate struct {
	Content *geminiChatContent `json:"content"`
}

type geminiChatResponse struct {
	Candidates []*geminiChatCandidate `json:"candidates"`
}

// --- Interface Implementation ---

func (g *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{}
	for _, opt := range opts {
		opt(options)
	}

	model := g.ModelName
	if options.Model != "" {
		model = options.Model
	}

	contents := make([]*geminiChatContent, 0, len(history))
	for _, msg := range history {
		role := msg.Role
		// Gemini knows "user" and "model" only
		if role == "assistant" || role == "system" {
			role = "model"
		}
		contents = append(contents, &geminiChatContent{
			Parts: []*geminiChatParts{{Text: msg.Content}},
			Role:  role,
		})
	}

	payload := geminiChatRequest{Contents: contents}
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s:generateContent", g.BaseURL, model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadJson))
	if err != nil {
		return "", err
	}

	req.Header.Set("x-goog-api-key", g.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := g.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf(
			"status error, got status %d. with response body %s",
			res.StatusCode,
			string(resBody),
		)
	}

	var geminiRes geminiChatResponse
	if err := json.Unmarshal(resBody, &geminiRes); err != nil {
		return "", err
	}

	if len(geminiRes.Candidates) == 0 || geminiRes.Candidates[0].Content == nil ||
		len(geminiRes.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	return geminiRes.Candidates[0].Content.Parts[0].Text, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return g.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}
