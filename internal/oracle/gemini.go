package oracle

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini is the production Oracle backed by the Gemini API. System messages
// are folded into the model's system instruction; user messages become the
// conversation contents. Temperature is pinned to zero so extraction stays
// deterministic.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini oracle. Credentials come from the environment,
// the same way the genai SDK resolves them everywhere else.
func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("oracle: create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Complete sends the messages to the model and returns the text completion.
func (g *Gemini) Complete(ctx context.Context, messages []Message) (string, error) {
	var system []string
	var contents []*genai.Content
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n")}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("oracle: generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("oracle: empty response from model")
	}
	return text, nil
}
