// Package synopsis retrieves or fabricates sales copy for a book.
package synopsis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Placeholder is returned whenever the synopsis service cannot be reached.
// It flows through the pipeline as a normal result, so one network hiccup
// never aborts a batch run.
const Placeholder = "Could not retrieve synopsis due to an error."

const defaultModel = "gemini-2.0-flash"

// Client calls the Gemini model with search grounding enabled.
type Client struct {
	model string
}

// New returns a synopsis client for the given model name. An empty name
// falls back to the SHELFSCAN_MODEL environment variable, then to the
// default flash model.
func New(model string) *Client {
	if model == "" {
		model = os.Getenv("SHELFSCAN_MODEL")
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{model: model}
}

// Synopsize returns sales prose for the book. Resolution is two-tier: the
// model is asked to retrieve real publisher or review text via search
// grounding and, failing that, to invent a plausible sales synopsis. It
// never reports absence and never fails: any transport or service error
// produces Placeholder instead.
func (c *Client) Synopsize(ctx context.Context, title, author string) string {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		slog.Error("Synopsis unavailable", "err", "GEMINI_API_KEY environment variable not set")
		return Placeholder
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		slog.Error("Failed to create gemini client for synopsis", "err", err)
		return Placeholder
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	model.Tools = []*genai.Tool{
		{GoogleSearchRetrieval: &genai.GoogleSearchRetrieval{}},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(synopsisPrompt(title, author)))
	if err != nil {
		slog.Error("Synopsis call failed", "title", title, "err", err)
		return Placeholder
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		slog.Warn("Synopsis response was empty", "title", title)
		return Placeholder
	}

	slog.Info("Synopsis retrieved", "title", title, "length", len(text))
	return text
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

func synopsisPrompt(title, author string) string {
	return fmt.Sprintf(`Write a sales synopsis for the secondhand book "%s" by %s.

1. First search for real publisher copy or review text describing this book and base the synopsis on what you find.
2. If you find nothing, write a plausible, sales-oriented synopsis for a book with this title and author anyway. Never say the book could not be found and never mention searching.

Keep it under 100 words. Respond with the synopsis prose only: no headings, no meta-commentary, no markdown.`, title, author)
}
