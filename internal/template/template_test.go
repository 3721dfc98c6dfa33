package template

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sevigo/prompt-warden/internal/core"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		content core.PromptContent
		want    []string
	}{
		{
			name:    "no placeholders",
			content: core.TextContent("plain text without variables"),
			want:    []string{},
		},
		{
			name:    "single placeholder",
			content: core.TextContent("Hello {{ name }}!"),
			want:    []string{"name"},
		},
		{
			name:    "whitespace variants",
			content: core.TextContent("{{a}} {{ b }} {{  c  }}"),
			want:    []string{"a", "b", "c"},
		},
		{
			name:    "duplicates collapse and sort",
			content: core.TextContent("{{ z }} {{ a }} {{ z }}"),
			want:    []string{"a", "z"},
		},
		{
			name:    "hyphen and underscore in names",
			content: core.TextContent("{{ user-name }} and {{ user_id }}"),
			want:    []string{"user-name", "user_id"},
		},
		{
			name:    "unclosed braces ignored",
			content: core.TextContent("{{ open and { single } and {{ real }}"),
			want:    []string{"real"},
		},
		{
			name: "chat content scans every message",
			content: core.ChatContent(
				core.Message{Role: "system", Content: "You are {{ persona }}."},
				core.Message{Role: "user", Content: "Tell me about {{ topic }}."},
			),
			want: []string{"persona", "topic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.content))
		})
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		content core.PromptContent
		values  map[string]string
		want    core.PromptContent
	}{
		{
			name:    "simple substitution",
			content: core.TextContent("Hello {{ name }}!"),
			values:  map[string]string{"name": "Ada"},
			want:    core.TextContent("Hello Ada!"),
		},
		{
			name:    "missing value stays literal",
			content: core.TextContent("Hello {{ name }}, weather is {{ weather }}"),
			values:  map[string]string{"name": "Ada"},
			want:    core.TextContent("Hello Ada, weather is {{ weather }}"),
		},
		{
			name:    "value containing placeholder syntax is not re-expanded",
			content: core.TextContent("say {{ a }} then {{ b }}"),
			values:  map[string]string{"a": "{{ b }}", "b": "boom"},
			want:    core.TextContent("say {{ b }} then boom"),
		},
		{
			name:    "empty value erases the placeholder",
			content: core.TextContent("x{{ gap }}y"),
			values:  map[string]string{"gap": ""},
			want:    core.TextContent("xy"),
		},
		{
			name: "chat shape preserved",
			content: core.ChatContent(
				core.Message{Role: "system", Content: "Act as {{ persona }}."},
				core.Message{Role: "user", Content: "{{ question }}"},
			),
			values: map[string]string{"persona": "a pirate", "question": "Why?"},
			want: core.ChatContent(
				core.Message{Role: "system", Content: "Act as a pirate."},
				core.Message{Role: "user", Content: "Why?"},
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.content, tt.values))
		})
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	content := core.TextContent("{{ a }} and {{ b }}")
	values := map[string]string{"a": "first", "b": "second"}

	once := Render(content, values)
	twice := Render(once, values)
	assert.Equal(t, once, twice)
}

func TestMissing(t *testing.T) {
	content := core.TextContent("{{ a }} {{ b }} {{ c }}")

	assert.Equal(t, []string{"a", "b", "c"}, Missing(content, nil))
	assert.Equal(t, []string{"b"}, Missing(content, map[string]string{"a": "1", "c": "3"}))
	assert.Empty(t, Missing(content, map[string]string{"a": "1", "b": "2", "c": "3"}))
}
