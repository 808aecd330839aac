// Package pplx drives the Perplexity web UI through a real browser: it
// types a prompt into the composer, waits out the typing animation and the
// answer generation, and extracts the result via the copy button and the
// clipboard. The whole pipeline is sequential; every wait is a bounded
// sleep-and-repoll loop against the page's DOM.
package pplx

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"pplxbridge/internal/session"
	"pplxbridge/pkg/models"
)

// Client runs the ask pipeline: open session, submit prompt, extract
// answer, close session.
type Client struct {
	sessions *session.Manager
	policies Policies
}

func NewClient(sessions *session.Manager) *Client {
	return &Client{
		sessions: sessions,
		policies: DefaultPolicies(),
	}
}

// Ask submits the prompt and returns the generated answer with trailing
// citations stripped. The browser session is released on every path.
func (c *Client) Ask(ctx context.Context, req models.AskRequest) (string, error) {
	inst, err := c.sessions.Open(ctx)
	if err != nil {
		return "", err
	}

	ok := false
	defer func() { c.sessions.Close(inst, ok) }()

	if err := c.submitPrompt(inst.Page, req.Prompt, req.UseResearchMode); err != nil {
		return "", fmt.Errorf("prompt submission failed: %w", err)
	}

	answer, err := c.extractAnswer(inst.Page)
	if err != nil {
		return "", fmt.Errorf("result extraction failed: %w", err)
	}

	log.Info("ask: completed", "chars", len(answer))
	ok = true
	return answer, nil
}
