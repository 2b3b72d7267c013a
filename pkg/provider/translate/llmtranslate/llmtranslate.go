// Package llmtranslate implements translate.Provider by prompting an
// llm.Provider.
package llmtranslate

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/MrWong99/parlance/pkg/provider/llm"
	"github.com/MrWong99/parlance/pkg/provider/translate"
	"github.com/MrWong99/parlance/pkg/types"
)

var _ translate.Provider = (*Provider)(nil)

const systemPrompt = "You are a translation engine. Translate the user's text faithfully. " +
	"Reply with the translation only, without quotes, notes or explanations."

// Provider translates by asking an LLM.
type Provider struct {
	llm llm.Provider
}

// New wraps p.
func New(p llm.Provider) *Provider {
	return &Provider{llm: p}
}

// Translate implements translate.Provider.
func (p *Provider) Translate(ctx context.Context, text, source, target string) (string, error) {
	prompt := fmt.Sprintf("Translate from %s to %s:\n\n%s", languageName(source), languageName(target), text)
	resp, err := p.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []types.Message{{Role: types.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("llmtranslate: translate: %w", err)
	}
	out := strings.TrimSpace(resp.Content)
	out = strings.Trim(out, "\"“”")
	if out == "" {
		return "", fmt.Errorf("llmtranslate: translate: %w", translate.ErrMalformedResponse)
	}
	return out, nil
}

// languageName renders a BCP-47 tag as an English language name, falling
// back to the tag itself.
func languageName(tag string) string {
	if strings.EqualFold(tag, "auto") {
		return "the detected language"
	}
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Tags().Name(t); name != "" {
		return name
	}
	return tag
}
