package ai

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

const conversationMarkdownTemplate = `# Conversation

_Exported {{ .ExportedAt.Format "2006-01-02 15:04:05 MST" }}, {{ len .Messages }} messages_
{{ range .Messages }}
## {{ .Role.Title }} ({{ .Timestamp.Format "2006-01-02 15:04:05" }})

{{ .Content }}
{{ end }}`

var markdownTemplate = template.Must(template.New("conversation").Parse(conversationMarkdownTemplate))

// ToMarkdown renders the conversation as a human-readable markdown document
func (c *Conversation) ToMarkdown() (string, error) {
	data := struct {
		ExportedAt time.Time
		Messages   []Message
	}{
		ExportedAt: c.now(),
		Messages:   c.messages,
	}

	var buf bytes.Buffer
	if err := markdownTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render conversation markdown: %w", err)
	}
	return buf.String(), nil
}
