package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	googleoption "google.golang.org/api/option"
)

// googleProvider implements Provider using the Google Generative AI SDK.
// A new genai.Client is created per Complete call so that the caller's
// context governs the connection and the client is always closed after use.
type googleProvider struct {
	apiKey string
	model  string
}

func newGoogleProvider(model string) (Provider, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("llm: GOOGLE_API_KEY environment variable not set")
	}
	return &googleProvider{apiKey: apiKey, model: model}, nil
}

func (p *googleProvider) Complete(ctx context.Context, req Request) (string, error) {
	client, err := genai.NewClient(ctx, googleoption.WithAPIKey(p.apiKey))
	if err != nil {
		return "", fmt.Errorf("google: genai client: %w", err)
	}
	defer client.Close()

	m := client.GenerativeModel(p.model)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(req.System)},
	}
	maxOut := int32(req.MaxTokens)
	m.MaxOutputTokens = &maxOut
	temp32 := float32(req.Temperature)
	m.Temperature = &temp32
	if req.JSON {
		m.ResponseMIMEType = "application/json"
	}

	cs := m.StartChat()
	for _, t := range req.History {
		role := "user"
		if t.Role == "assistant" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Content)}})
	}
	parts := []genai.Part{genai.Text(req.User)}
	if len(req.Image) > 0 {
		parts = append(parts, genai.Blob{MIMEType: req.ImageMIME, Data: req.Image})
	}

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("google: generate content: %w", err)
	}

	var out []string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				out = append(out, string(t))
			}
		}
	}
	if len(out) == 0 {
		return "", fmt.Errorf("google: response contained no text content")
	}
	return strings.Join(out, ""), nil
}
