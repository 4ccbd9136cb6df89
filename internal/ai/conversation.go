package ai

import (
	"time"
)

// Conversation is an ordered, in-memory transcript. Insertion order is chronological order.
//
// A Conversation is owned by a single goroutine and does no locking.
type Conversation struct {
	messages []Message

	dir string           // Directory for transcripts saved without an explicit path
	now func() time.Time // Clock used for message and file name timestamps
}

// NewConversation creates an empty conversation whose default transcripts are written to dir
func NewConversation(dir string) *Conversation {
	return &Conversation{
		dir: dir,
		now: time.Now,
	}
}

// NewConversationFrom creates a conversation seeded with previously recorded messages, e.g. from a transcript file
func NewConversationFrom(dir string, messages []Message) *Conversation {
	c := NewConversation(dir)
	c.messages = append(c.messages, messages...)
	return c
}

// SetClock replaces the clock used for message timestamps and default transcript names
func (c *Conversation) SetClock(now func() time.Time) {
	c.now = now
}

// Append adds a message stamped with the current time to the end of the conversation
func (c *Conversation) Append(role Role, content string) Message {
	msg := Message{
		Role:      role,
		Content:   content,
		Timestamp: c.now(),
	}
	c.messages = append(c.messages, msg)
	return msg
}

// Clear removes all messages
func (c *Conversation) Clear() {
	c.messages = nil
}

// Len returns the number of messages in the conversation
func (c *Conversation) Len() int {
	return len(c.messages)
}

// History returns a copy of every message in insertion order
func (c *Conversation) History() []Message {
	return c.Window(0)
}

// Window returns a copy of the n most recent messages. If n is not positive, or there are fewer than n messages, all
// messages are returned. The conversation itself is never truncated.
func (c *Conversation) Window(n int) []Message {
	start := 0
	if n > 0 && len(c.messages) > n {
		start = len(c.messages) - n
	}
	view := make([]Message, len(c.messages)-start)
	copy(view, c.messages[start:])
	return view
}
