// Package lead is an extractive engine that returns the opening sentences of
// the article. It needs no inference server, which makes it the engine for
// offline development and end-to-end tests.
package lead

import (
	"context"
	"strings"
	"unicode"

	"github.com/JakeFAU/article-summarizer/internal/engine"
	"github.com/JakeFAU/article-summarizer/internal/format"
	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

const defaultSentences = 3

// Engine implements summarizer.Engine.
type Engine struct {
	sentences int
}

// New returns an engine that keeps up to sentences leading sentences.
func New(sentences int) *Engine {
	if sentences <= 0 {
		sentences = defaultSentences
	}
	return &Engine{sentences: sentences}
}

// Load only checks that the artifact directory is populated.
func (e *Engine) Load(_ context.Context, spec summarizer.LoadSpec) (summarizer.Generator, error) {
	if err := engine.RequireArtifacts(spec.Dir); err != nil {
		return nil, err
	}
	return e, nil
}

// Generate picks the leading sentences of the article part of prompt, capped
// at params.MaxLength words.
func (e *Engine) Generate(ctx context.Context, prompt string, params summarizer.DecodingParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text := prompt
	if i := strings.LastIndex(prompt, format.ArticleMarker); i >= 0 {
		text = prompt[i+len(format.ArticleMarker):]
	}
	sentences := splitSentences(text)
	if len(sentences) > e.sentences {
		sentences = sentences[:e.sentences]
	}
	words := strings.Fields(strings.Join(sentences, " "))
	if params.MaxLength > 0 && len(words) > params.MaxLength {
		words = words[:params.MaxLength]
	}
	return strings.Join(words, " "), nil
}

// splitSentences breaks text after runs of . ! or ? that are followed by
// whitespace or the end of the text.
func splitSentences(text string) []string {
	var out []string
	runes := []rune(strings.TrimSpace(text))
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		for i+1 < len(runes) && isTerminal(runes[i+1]) {
			i++
		}
		if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
