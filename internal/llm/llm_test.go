package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openaiReplyJSON = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-3.5-turbo",
	"choices": [{
		"index": 0,
		"finish_reason": "stop",
		"logprobs": null,
		"message": {"role": "assistant", "content": "Hi there", "refusal": null}
	}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
}`

const anthropicReplyJSON = `{
	"id": "msg_1",
	"type": "message",
	"role": "assistant",
	"model": "claude-sonnet-4-0",
	"content": [{"type": "text", "text": "Hi there"}],
	"stop_reason": "end_turn",
	"stop_sequence": null,
	"usage": {"input_tokens": 12, "output_tokens": 3}
}`

type capturedRequest struct {
	Path string
	Body map[string]any
}

// newServer starts a test server that answers every request with status and body, recording the requests it receives
func newServer(t *testing.T, status int, body string) (*httptest.Server, *[]capturedRequest) {
	var requests []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured := capturedRequest{Path: r.URL.Path}
		_ = json.Unmarshal(b, &captured.Body)
		requests = append(requests, captured)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newTestCompleter(t *testing.T, provider string, srv *httptest.Server) Completer {
	c, err := New(Config{
		Provider:   provider,
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		MaxRetries: 0,
	})
	require.NoError(t, err)
	return c
}

func testRequest() Request {
	return Request{
		Messages: []Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "Hello"},
		},
		MaxTokens:   500,
		Temperature: Float(0.7),
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{Provider: ProviderOpenAI})
	require.Error(t, err)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "parrot", APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parrot")
}

func TestNew_DefaultModels(t *testing.T) {
	c, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, defaultOpenAIModel, c.Model())

	c, err = New(Config{Provider: ProviderAnthropic, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, defaultAnthropicModel, c.Model())
}

func TestOpenAI_Complete(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK, openaiReplyJSON)
	c := newTestCompleter(t, ProviderOpenAI, srv)

	reply, err := c.Complete(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "Hi there", reply.Content)
	assert.Equal(t, "stop", reply.FinishReason)
	assert.Equal(t, 12, reply.PromptTokens)

	require.Len(t, *requests, 1)
	body := (*requests)[0].Body
	assert.Equal(t, defaultOpenAIModel, body["model"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestAnthropic_Complete(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK, anthropicReplyJSON)
	c := newTestCompleter(t, ProviderAnthropic, srv)

	reply, err := c.Complete(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "Hi there", reply.Content)
	assert.Equal(t, "end_turn", reply.FinishReason)

	require.Len(t, *requests, 1)
	body := (*requests)[0].Body
	// The system message travels outside the message list
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 1)
	assert.NotNil(t, body["system"])
}

func TestComplete_ClassifiesStatusCodes(t *testing.T) {
	testCases := []struct {
		status   int
		expected Kind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusTooManyRequests, KindRateLimit},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusServiceUnavailable, KindTransient},
		{http.StatusBadRequest, KindUnknown},
	}

	for _, provider := range []string{ProviderOpenAI, ProviderAnthropic} {
		for _, tc := range testCases {
			t.Run(fmt.Sprintf("%s/%d", provider, tc.status), func(t *testing.T) {
				srv, _ := newServer(t, tc.status, `{"error": {"type": "error", "message": "nope"}}`)
				c := newTestCompleter(t, provider, srv)

				_, err := c.Complete(context.Background(), testRequest())

				require.Error(t, err)
				assert.Equal(t, tc.expected, KindOf(err))
			})
		}
	}
}

func TestComplete_UnreachableServerIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{APIKey: "k", BaseURL: url})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
}

func TestClassify_Hints(t *testing.T) {
	authErr := Classify(fmt.Errorf("boom"), http.StatusUnauthorized)
	rateErr := Classify(fmt.Errorf("boom"), http.StatusTooManyRequests)

	assert.True(t, errors.Is(authErr, ErrAuth))
	assert.False(t, errors.Is(authErr, ErrRateLimit))
	assert.NotEmpty(t, errors.GetAllHints(authErr))
	assert.Contains(t, errors.FlattenHints(rateErr), "wait")
	assert.NotEqual(t, errors.FlattenHints(authErr), errors.FlattenHints(rateErr))
}

func TestClassify_WithoutStatus(t *testing.T) {
	assert.Equal(t, KindTransient, KindOf(Classify(context.DeadlineExceeded, 0)))
	assert.Equal(t, KindTransient, KindOf(Classify(fmt.Errorf("read: %w", io.ErrUnexpectedEOF), 0)))
	assert.Equal(t, KindUnknown, KindOf(Classify(fmt.Errorf("mystery"), 0)))
	assert.Nil(t, Classify(nil, 0))
}

func TestAnthropic_DropsLeadingAssistantMessages(t *testing.T) {
	c := newAnthropicCompleter(Config{APIKey: "k"})

	system, messages := c.convertMessages([]Message{
		{Role: "system", Content: "be brief"},
		{Role: "assistant", Content: "orphaned reply"},
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi there"},
		{Role: "user", Content: "How are you?"},
	})

	assert.Len(t, system, 1)
	require.Len(t, messages, 3)
	assert.Equal(t, "user", string(messages[0].Role))
}
