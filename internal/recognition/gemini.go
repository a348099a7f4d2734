package recognition

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const platePrompt = "Read only the vehicle license plate number from this image. Output the plate number text exactly, no other words."

// GeminiRecognizer asks a Gemini model to read the plate.
type GeminiRecognizer struct {
	client *genai.Client
	model  string
}

func NewGeminiRecognizer(ctx context.Context, apiKey, model string) (*GeminiRecognizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiRecognizer{
		client: client,
		model:  model,
	}, nil
}

func (g *GeminiRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, "image/jpeg"),
			genai.NewPartFromText(platePrompt),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "text/plain",
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := normalizePlate(resp.Text())
	if text == "" {
		return "", ErrNoPlate
	}
	return text, nil
}
