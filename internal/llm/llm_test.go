package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSafeMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("context deadline exceeded: timeout"), "The bout timed out. Try a shorter length or fewer turns."},
		{errors.New("DEADLINE_EXCEEDED"), "The bout timed out. Try a shorter length or fewer turns."},
		{errors.New("anthropic: status 429: too many requests"), "API rate limited. Please wait a moment and try again."},
		{errors.New("rate_limit_error"), "API rate limited. Please wait a moment and try again."},
		{errors.New("anthropic: status 529: overloaded_error"), "The model is overloaded. Please try again shortly."},
		{errors.New("overloaded"), "The model is overloaded. Please try again shortly."},
		{errors.New("connection reset by peer"), "The arena short-circuited."},
	}
	for _, c := range cases {
		if got := SafeMessage(c.err); got != c.want {
			t.Fatalf("SafeMessage(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

const sampleStream = `event: message_start
data: {"type":"message_start","message":{"usage":{"input_tokens":42,"output_tokens":1}}}

event: content_block_delta
data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello"}}

event: content_block_delta
data: {"type":"content_block_delta","delta":{"type":"text_delta","text":", world"}}

event: message_delta
data: {"type":"message_delta","usage":{"output_tokens":17}}

data: [DONE]
`

func TestAnthropicStreamDecodesSSE(t *testing.T) {
	var gotAuth, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("X-Api-Key")
		gotVersion = r.Header.Get("Anthropic-Version")
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(sampleStream))
	}))
	defer srv.Close()

	client := NewAnthropic("platform-key", srv.URL)
	var text strings.Builder
	usage, err := client.Stream(context.Background(), Request{
		Model:     "claude-haiku-4-5-20251001",
		User:      "say hello",
		MaxTokens: 100,
	}, func(s string) { text.WriteString(s) })
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if text.String() != "Hello, world" {
		t.Fatalf("text = %q", text.String())
	}
	if usage.InputTokens != 42 || usage.OutputTokens != 17 {
		t.Fatalf("usage = %+v, want {42 17}", usage)
	}
	if gotAuth != "platform-key" {
		t.Fatalf("X-Api-Key = %q", gotAuth)
	}
	if gotVersion != "2023-06-01" {
		t.Fatalf("Anthropic-Version = %q", gotVersion)
	}
}

func TestAnthropicStreamByokKeyOverrides(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("X-Api-Key")
		_, _ = w.Write([]byte("data: [DONE]\n"))
	}))
	defer srv.Close()

	client := NewAnthropic("platform-key", srv.URL)
	_, err := client.Stream(context.Background(), Request{Model: "m", User: "u", APIKey: "caller-key"}, func(string) {})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if gotAuth != "caller-key" {
		t.Fatalf("X-Api-Key = %q, want caller-key", gotAuth)
	}
}

func TestAnthropicStreamErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`data: {"type":"error","error":{"type":"overloaded_error","message":"try later"}}` + "\n"))
	}))
	defer srv.Close()

	client := NewAnthropic("k", srv.URL)
	_, err := client.Stream(context.Background(), Request{Model: "m", User: "u"}, func(string) {})
	if err == nil {
		t.Fatal("expected error from error event")
	}
	if !strings.Contains(err.Error(), "overloaded_error") {
		t.Fatalf("error = %v", err)
	}
}

func TestAnthropicStreamNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	client := NewAnthropic("k", srv.URL)
	_, err := client.Stream(context.Background(), Request{Model: "m", User: "u"}, func(string) {})
	if err == nil {
		t.Fatal("expected error for 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error = %v, want status in message", err)
	}
	if SafeMessage(err) != "API rate limited. Please wait a moment and try again." {
		t.Fatalf("SafeMessage(%v) misclassified", err)
	}
}
