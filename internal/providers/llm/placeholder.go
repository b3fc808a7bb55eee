package llm

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PlaceholderClient stands in for models whose backend is not wired yet. It
// lets the router advertise a model before its integration is live without
// breaking callers: the output is clearly marked and the call never fails.
type PlaceholderClient struct{}

func NewPlaceholderClient() *PlaceholderClient {
	return &PlaceholderClient{}
}

func (p *PlaceholderClient) Generate(ctx context.Context, req Request) (*Response, error) {
	c := cases.Title(language.Und)
	model := req.Model
	if model == "" {
		model = "unknown"
	}
	summary := strings.TrimSpace(req.Prompt)
	if len(summary) > 120 {
		summary = summary[:120] + "..."
	}
	text := fmt.Sprintf("(Placeholder for %s) %s", c.String(model), summary)
	return &Response{Text: text}, nil
}

var _ Generator = (*PlaceholderClient)(nil)
