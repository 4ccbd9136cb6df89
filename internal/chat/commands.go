package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cchalm/parley/internal/logger"
)

const helpText = `
🤖 Chat Agent Help

Commands:
  /help           - Show this help message
  /save [path]    - Save conversation to a JSON file (a .md path saves markdown)
  /clear          - Clear conversation history
  /history        - Show conversation history
  /security       - Show API key safety tips
  /share          - Share the conversation as a secret GitHub gist
  /quit, /exit    - Exit the chat agent

Just type your message to chat with the AI!`

const securityText = `
🔒 Keeping your API key safe

  - Keep keys in environment variables or in a .env file, never in source code.
  - Add .env and parley.yaml to .gitignore so they are never committed.
  - Do not paste keys into the chat; messages are sent to the model and saved in transcripts.
  - Use separate keys per project and set usage limits in your provider's dashboard.
  - If a key may have leaked, revoke it immediately and create a new one.`

const historyPreviewLen = 100

// commandFunc runs a slash command. args is the remainder of the line after the command token, trimmed.
type commandFunc func(ctx context.Context, args string)

func (l *Loop) commandTable() map[string]commandFunc {
	return map[string]commandFunc{
		"help":     l.help,
		"save":     l.save,
		"clear":    l.clear,
		"history":  l.history,
		"security": l.security,
		"share":    l.share,
		"quit":     l.quit,
		"exit":     l.quit,
	}
}

// parseCommand splits a command line into its lowercased name and its arguments. ok is false if line is not a
// command.
func parseCommand(line string) (name string, args string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, commandPrefix) {
		return "", "", false
	}
	rest := line[len(commandPrefix):]
	name = rest
	if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
		name, args = rest[:i], rest[i:]
	}
	return strings.ToLower(name), strings.TrimSpace(args), true
}

func (l *Loop) help(_ context.Context, _ string) {
	l.println(helpText)
}

func (l *Loop) security(_ context.Context, _ string) {
	l.println(securityText)
}

func (l *Loop) save(_ context.Context, path string) {
	resolved, err := l.conversation.Save(path)
	if err != nil {
		l.printf("❌ Error saving conversation: %v\n", err)
		return
	}
	l.printf("💾 Conversation saved to %s\n", resolved)
}

func (l *Loop) clear(_ context.Context, _ string) {
	l.conversation.Clear()
	l.println("🗑️  Conversation history cleared!")
}

func (l *Loop) history(_ context.Context, _ string) {
	messages := l.conversation.History()
	if len(messages) == 0 {
		l.println("📝 No conversation history yet.")
		return
	}

	l.println("\n📝 Conversation History:")
	l.println(strings.Repeat("-", 50))
	for i, msg := range messages {
		l.printf("%d. %s: %s\n", i+1, msg.Role.Title(), logger.Truncate(msg.Content, historyPreviewLen))
	}
	l.println(strings.Repeat("-", 50))
}

func (l *Loop) share(ctx context.Context, _ string) {
	if l.publisher == nil {
		l.println("❌ Sharing is not configured.")
		l.println("💡 Set GITHUB_TOKEN to share transcripts as secret gists.")
		return
	}

	content, err := l.conversation.Marshal()
	if err != nil {
		l.printf("❌ Error sharing conversation: %v\n", err)
		return
	}
	gistURL, err := l.publisher.Publish(ctx, l.conversation.DefaultName(), content)
	if err != nil {
		l.printf("❌ Error sharing conversation: %v\n", err)
		return
	}
	l.printf("🔗 Conversation shared at %s\n", gistURL)
}

func (l *Loop) quit(_ context.Context, _ string) {
	l.println("👋 Goodbye! Thanks for chatting!")
	l.state = StateStopped
}

func (l *Loop) printf(format string, args ...any) {
	fmt.Fprintf(l.out, format, args...)
}

func (l *Loop) println(s string) {
	fmt.Fprintln(l.out, s)
}
