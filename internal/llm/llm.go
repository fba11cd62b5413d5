// Package llm streams text generation from the upstream provider.
package llm

import (
	"context"
	"strings"
)

// Request describes one generation call. APIKey overrides the platform
// key for bring-your-own-key runs.
type Request struct {
	Model     string
	System    string
	User      string
	MaxTokens int
	APIKey    string
}

// Usage is the provider-reported token accounting for one call. Zero
// values mean the provider returned none and the caller should estimate.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Client streams a completion, invoking onDelta for each text fragment
// as it arrives.
type Client interface {
	Stream(ctx context.Context, req Request, onDelta func(text string)) (Usage, error)
}

// SafeMessage classifies a provider error into one of four caller-safe
// messages. The underlying error text is never surfaced verbatim.
func SafeMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "DEADLINE"):
		return "The bout timed out. Try a shorter length or fewer turns."
	case strings.Contains(msg, "rate") || strings.Contains(msg, "429"):
		return "API rate limited. Please wait a moment and try again."
	case strings.Contains(msg, "overloaded") || strings.Contains(msg, "529"):
		return "The model is overloaded. Please try again shortly."
	default:
		return "The arena short-circuited."
	}
}
