// Package format builds generation prompts and tidies raw model output.
package format

import (
	"regexp"
	"strings"
)

// ArticleMarker precedes the article text inside an instructed prompt.
const ArticleMarker = "Article: "

const lengthRequirements = "Length Requirements:\n" +
	"- 3 to 4 sentences\n" +
	"- Between 100 and 200 words\n" +
	"- Maintain original writing style\n" +
	"- Include detailed elaboration\n\n"

var sentenceGlue = regexp.MustCompile(`\.(\p{Lu})`)

// Prompt combines an optional instruction with the article text. With no
// instruction the text is returned untouched.
func Prompt(text, instruction string) string {
	if instruction == "" {
		return text
	}
	var b strings.Builder
	b.Grow(len(instruction) + len(lengthRequirements) + len(ArticleMarker) + len(text) + 2)
	b.WriteString(instruction)
	b.WriteString("\n\n")
	b.WriteString(lengthRequirements)
	b.WriteString(ArticleMarker)
	b.WriteString(text)
	return b.String()
}

// Summary converts decoded output into display text: "<n>" tokens become
// newlines, glued sentences get a space after the period, and the result is
// trimmed and terminated with a period unless it already ends in . ! or ?.
func Summary(raw string) string {
	out := strings.ReplaceAll(raw, "<n>", "\n")
	out = sentenceGlue.ReplaceAllString(out, ". $1")
	out = strings.TrimSpace(out)
	if out == "" {
		return ""
	}
	switch out[len(out)-1] {
	case '.', '!', '?':
		return out
	}
	return out + "."
}
