package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrTranscriptIO marks failures to read or write a transcript file
var ErrTranscriptIO = errors.New("transcript I/O error")

const transcriptTimeLayout = "20060102_150405"

// DefaultTranscriptName returns the file name used when a transcript is saved without an explicit path
func DefaultTranscriptName(t time.Time) string {
	return fmt.Sprintf("conversation_%s.json", t.Format(transcriptTimeLayout))
}

// DefaultName returns the transcript file name for the current time on the conversation's clock
func (c *Conversation) DefaultName() string {
	return DefaultTranscriptName(c.now())
}

// Marshal serializes the full conversation as an indented JSON array
func (c *Conversation) Marshal() ([]byte, error) {
	messages := c.messages
	if messages == nil {
		// Persist an empty transcript as [] rather than null
		messages = []Message{}
	}
	b, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation: %w", err)
	}
	return b, nil
}

// Save writes the full conversation to path and returns the absolute path written. Paths ending in .md are written as
// markdown, everything else as JSON. An empty path selects a timestamped JSON file name in the conversation's
// transcript directory. The conversation is not modified, whether or not the write succeeds.
func (c *Conversation) Save(path string) (string, error) {
	if path == "" {
		path = filepath.Join(c.dir, c.DefaultName())
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	var b []byte
	if strings.EqualFold(filepath.Ext(path), ".md") {
		md, err := c.ToMarkdown()
		if err != nil {
			return "", err
		}
		b = []byte(md)
	} else {
		var err error
		b, err = c.Marshal()
		if err != nil {
			return "", err
		}
	}

	if err := writeFile(path, b); err != nil {
		return "", errors.Mark(err, ErrTranscriptIO)
	}
	return path, nil
}

func writeFile(path string, b []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create transcript file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close transcript file: %w", closeErr)
		}
	}()

	if _, err := f.Write(b); err != nil {
		return fmt.Errorf("failed to write transcript file: %w", err)
	}
	return nil
}

// ReadTranscript reads a transcript previously written by Save
func ReadTranscript(path string) ([]Message, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Mark(fmt.Errorf("failed to read file: %w", err), ErrTranscriptIO)
	}
	var messages []Message
	err = json.Unmarshal(b, &messages)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	for i, msg := range messages {
		if !msg.Role.Valid() {
			return nil, fmt.Errorf("message %d has unknown role %q", i, msg.Role)
		}
	}
	return messages, nil
}
