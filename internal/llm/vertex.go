package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// vertexProvider implements Provider on Vertex AI using application default
// credentials. Project and region come from the environment.
type vertexProvider struct {
	projectID string
	region    string
	model     string
}

func newVertexProvider(model string) (Provider, error) {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		return nil, fmt.Errorf("llm: GOOGLE_CLOUD_PROJECT environment variable not set")
	}
	region := os.Getenv("VERTEX_AI_REGION")
	if region == "" {
		region = "us-central1"
	}
	return &vertexProvider{projectID: projectID, region: region, model: model}, nil
}

func (p *vertexProvider) Complete(ctx context.Context, req Request) (string, error) {
	client, err := genai.NewClient(ctx, p.projectID, p.region)
	if err != nil {
		return "", fmt.Errorf("vertex: genai.NewClient: %w", err)
	}
	defer client.Close()

	m := client.GenerativeModel(p.model)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(req.System)},
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: genai.Ptr(int32(req.MaxTokens)),
	}
	if req.JSON {
		m.GenerationConfig.ResponseMIMEType = "application/json"
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
		return "", fmt.Errorf("vertex: send message: %w", err)
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
		return "", fmt.Errorf("vertex: response contained no text content")
	}
	return strings.Join(out, ""), nil
}
