// Package gemini adapts the Google Gen AI SDK to the chat assistant's
// Backend interface.
package gemini

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

// Client generates text through the Gemini API.
type Client struct {
	c *genai.Client
}

// New creates a client authenticated with apiKey.
func New(ctx context.Context, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Client{c: c}, nil
}

// Generate sends the persona and the user's text as two user turns, which
// every candidate model accepts, including ones without system instructions.
func (c *Client) Generate(ctx context.Context, model, system, user string) (string, error) {
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: system}}},
		{Role: "user", Parts: []*genai.Part{{Text: user}}},
	}
	resp, err := c.c.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", err
	}
	return textOf(resp), nil
}

// textOf joins the text parts of the first candidate.
func textOf(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if p != nil && p.Text != "" && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
