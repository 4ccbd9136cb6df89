// Package chat implements the interactive command loop: it reads lines, runs slash commands against the
// conversation, and sends everything else to the completion service.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/codes"

	"github.com/cchalm/parley/internal/ai"
	"github.com/cchalm/parley/internal/llm"
	"github.com/cchalm/parley/internal/telemetry"
)

const (
	commandPrefix = "/"
	userPrompt    = "\n👤 You: "
	replyPrefix   = "🤖 AI: "

	maxLineSize = 1024 * 1024
)

// State is the position of the loop in its lifecycle
type State int

const (
	StateIdle State = iota
	StateDispatching
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Publisher shares a transcript outside the process and returns where it can be found
type Publisher interface {
	Publish(ctx context.Context, filename string, content []byte) (string, error)
}

// Options controls how chat messages are turned into completion requests
type Options struct {
	SystemPrompt  string  // Sent ahead of the history with every request; never stored in the conversation
	HistoryWindow int     // Most recent messages sent per request, including the new user message. 0 sends all.
	MaxTokens     int     // Maximum reply length
	Temperature   float64 // Sampling temperature
	SessionID     string  // Attached to telemetry
}

// Loop reads user input and dispatches it. A Loop is used by a single goroutine.
type Loop struct {
	conversation *ai.Conversation
	completer    llm.Completer
	publisher    Publisher // May be nil, in which case sharing is unavailable
	opts         Options

	out      io.Writer
	state    State
	turns    int
	commands map[string]commandFunc
}

// New creates a loop that writes its output to out
func New(conversation *ai.Conversation, completer llm.Completer, publisher Publisher, opts Options, out io.Writer) *Loop {
	l := &Loop{
		conversation: conversation,
		completer:    completer,
		publisher:    publisher,
		opts:         opts,
		out:          out,
		state:        StateIdle,
	}
	l.commands = l.commandTable()
	return l
}

// State returns the current state of the loop
func (l *Loop) State() State {
	return l.state
}

// Run reads lines from in until a quit command, end of input, or cancellation of ctx. Reaching the end of input is a
// graceful stop and returns nil.
func (l *Loop) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for l.state != StateStopped {
		if ctx.Err() != nil {
			l.println("\n👋 Goodbye! Thanks for chatting!")
			l.state = StateStopped
			break
		}

		fmt.Fprint(l.out, userPrompt)
		if !scanner.Scan() {
			l.println("\n👋 Goodbye! Thanks for chatting!")
			l.state = StateStopped
			break
		}
		l.HandleLine(ctx, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

// HandleLine processes a single line of input and returns the loop to idle, unless the line stopped it
func (l *Loop) HandleLine(ctx context.Context, line string) {
	if l.state == StateStopped {
		return
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	l.state = StateDispatching
	defer func() {
		if l.state == StateDispatching {
			l.state = StateIdle
		}
	}()

	if name, args, ok := parseCommand(line); ok {
		cmd, found := l.commands[name]
		if !found {
			l.printf("❓ Unknown command: %s\n", line)
			l.println("💡 Type /help for available commands")
			return
		}
		cmd(ctx, args)
		return
	}

	l.chat(ctx, line)
}

// chat sends text with the windowed history to the completion service. The user message and the reply are recorded
// only if the request succeeds.
func (l *Loop) chat(ctx context.Context, text string) {
	messages := l.requestMessages(text)
	l.turns++

	ctx, span := telemetry.StartTurn(ctx, telemetry.TurnTelemetry{
		SessionID:   l.opts.SessionID,
		TurnIndex:   l.turns,
		Model:       l.completer.Model(),
		HistorySize: len(messages),
	})
	defer span.End()

	reply, err := l.completer.Complete(ctx, llm.Request{
		Messages:    messages,
		MaxTokens:   l.opts.MaxTokens,
		Temperature: llm.Float(l.opts.Temperature),
	})
	if err != nil {
		kind := llm.KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
		slog.WarnContext(ctx, "completion failed", "kind", kind.String(), "error", err)
		l.reportFailure(err)
		return
	}
	telemetry.RecordTokenUsage(ctx, telemetry.TokenUsage{
		PromptTokens:     reply.PromptTokens,
		CompletionTokens: reply.CompletionTokens,
	})

	l.conversation.Append(ai.RoleUser, text)
	l.conversation.Append(ai.RoleAssistant, reply.Content)
	l.println(replyPrefix + reply.Content)
}

// requestMessages builds the message list for a completion request: the system prompt, then the most recent stored
// messages, then text as a new user message
func (l *Loop) requestMessages(text string) []llm.Message {
	var prior []ai.Message
	switch n := l.opts.HistoryWindow; {
	case n <= 0:
		prior = l.conversation.History()
	case n > 1:
		prior = l.conversation.Window(n - 1)
	}

	messages := make([]llm.Message, 0, len(prior)+2)
	if l.opts.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: string(ai.RoleSystem), Content: l.opts.SystemPrompt})
	}
	for _, msg := range prior {
		messages = append(messages, llm.Message{Role: string(msg.Role), Content: msg.Content})
	}
	return append(messages, llm.Message{Role: string(ai.RoleUser), Content: text})
}

func (l *Loop) reportFailure(err error) {
	switch llm.KindOf(err) {
	case llm.KindAuth:
		l.println("❌ Error: Invalid API key. The completion service rejected your credentials.")
	case llm.KindRateLimit:
		l.println("❌ Error: Rate limit exceeded.")
	case llm.KindTransient:
		l.println("❌ Error: Could not reach the completion service.")
	default:
		l.printf("❌ Error: Unexpected error: %v\n", err)
	}
	for _, hint := range errors.GetAllHints(err) {
		l.println("💡 " + hint)
	}
}
