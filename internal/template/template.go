// Package template implements placeholder substitution for prompt content.
// Placeholders use the {{ name }} syntax with arbitrary whitespace inside
// the braces; names match [\w-]+. The package is pure and stateless.
package template

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sevigo/prompt-warden/internal/core"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([\w-]+)\s*\}\}`)

// Detect returns the distinct placeholder names appearing in the content,
// sorted alphabetically. For chat content every message body is scanned.
func Detect(content core.PromptContent) []string {
	seen := make(map[string]struct{})
	for _, text := range sources(content) {
		for _, match := range placeholderRe.FindAllStringSubmatch(text, -1) {
			seen[match[1]] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render substitutes every placeholder that has an entry in values,
// preserving the shape of the input. Placeholders without a value are left
// literal; validation of completeness is the caller's concern. Substitution
// is a single pass over the original text, so a value containing
// placeholder-shaped text is never re-expanded.
func Render(content core.PromptContent, values map[string]string) core.PromptContent {
	if content.IsChat() {
		rendered := make([]core.Message, len(content.Messages))
		for i, msg := range content.Messages {
			rendered[i] = core.Message{Role: msg.Role, Content: renderText(msg.Content, values)}
		}
		return core.ChatContent(rendered...)
	}
	return core.TextContent(renderText(content.Text, values))
}

// Missing returns the detected placeholder names that have no entry in
// values, sorted alphabetically.
func Missing(content core.PromptContent, values map[string]string) []string {
	var missing []string
	for _, name := range Detect(content) {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func renderText(text string, values map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimSpace(strings.Trim(match, "{}"))
		if value, ok := values[name]; ok {
			return value
		}
		return match
	})
}

func sources(content core.PromptContent) []string {
	if content.IsChat() {
		texts := make([]string, len(content.Messages))
		for i, msg := range content.Messages {
			texts[i] = msg.Content
		}
		return texts
	}
	return []string{content.Text}
}
