// Package vision wraps the Gemini call that identifies a book from a
// photograph of its cover.
package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/oldleaf/shelfscan/internal/imaging"
	"google.golang.org/api/option"
)

// Identification is the structured payload extracted from a cover image.
// Every field is optional: the model may omit any of them. Box carries
// whatever the model returned; callers must check for exactly 4 components
// before using it.
type Identification struct {
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Box        []float64 `json:"box_2d"`
	Categories []string  `json:"categories"`
}

// IdentificationError reports that the vision service returned no parseable
// structured payload. It is the one hard failure of the cataloging pipeline.
type IdentificationError struct {
	Reason string
	Err    error
}

func (e *IdentificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identification failed: %s: %v", e.Reason, e.Err)
	}
	return "identification failed: " + e.Reason
}

func (e *IdentificationError) Unwrap() error { return e.Err }

const defaultModel = "gemini-2.0-flash"

// Client calls the Gemini vision model.
type Client struct {
	model string
}

// New returns a vision client for the given model name. An empty name falls
// back to the SHELFSCAN_MODEL environment variable, then to the default
// flash model.
func New(model string) *Client {
	if model == "" {
		model = os.Getenv("SHELFSCAN_MODEL")
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{model: model}
}

// Identify sends the cover image to Gemini and parses the structured
// response. The prompt pins categories to the controlled vocabulary and
// asks for the cover's bounding box on a 0-1000 scale. An empty or
// malformed payload produces an *IdentificationError.
func (c *Client) Identify(ctx context.Context, image []byte) (*Identification, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	format := imaging.Format(image)
	if format == "" {
		return nil, &IdentificationError{Reason: "payload has no image signature"}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	model.SetTemperature(0.1)

	resp, err := model.GenerateContent(ctx, genai.ImageData(format, image), genai.Text(identifyPrompt()))
	if err != nil {
		return nil, fmt.Errorf("vision service call failed: %w", err)
	}

	text := responseText(resp)
	ident, err := parseIdentification(text)
	if err != nil {
		return nil, err
	}

	slog.Info("Identified book", "title", ident.Title, "author", ident.Author, "categories", len(ident.Categories))
	return ident, nil
}

// responseText concatenates the text parts of the first candidate.
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

// parseIdentification extracts the identification JSON from the model
// response, trimming any markdown code fences first.
func parseIdentification(response string) (*Identification, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	if response == "" {
		return nil, &IdentificationError{Reason: "empty response"}
	}

	var ident Identification
	if err := json.Unmarshal([]byte(response), &ident); err != nil {
		return nil, &IdentificationError{Reason: "malformed response", Err: err}
	}

	ident.Categories = filterVocabulary(ident.Categories)
	return &ident, nil
}

func identifyPrompt() string {
	return fmt.Sprintf(`You are cataloging a secondhand book from a photograph of its cover.

Identify the book and respond with ONLY a JSON object:

{
  "title": "...",
  "author": "...",
  "box_2d": [ymin, xmin, ymax, xmax],
  "categories": ["..."]
}

RULES:
1. "title" and "author" are the text printed on the cover. Omit a field you cannot read.
2. "box_2d" is the bounding box of the book cover within the photograph: four integers on a 0-1000 normalized scale, in the order ymin, xmin, ymax, xmax.
3. "categories" is zero or more labels describing the book, chosen ONLY from this list. Never invent a label that is not in the list:

%s

Respond with the JSON object and nothing else. No markdown, no commentary.`, strings.Join(Vocabulary(), "\n"))
}
