package bout

import (
	"time"

	"thepit/internal/experiment"
	"thepit/internal/gate"
	"thepit/internal/preset"
	"thepit/internal/store"
)

// Request is the inbound contract for starting a bout. Identity and the
// BYOK credential are resolved by upstream collaborators and arrive as
// plain fields.
type Request struct {
	BoutID   string `json:"boutId"`
	PresetID string `json:"presetId"`
	Topic    string `json:"topic"`
	Model    string `json:"model"`
	Length   string `json:"length"`
	Format   string `json:"format"`

	Experiment *experiment.Config `json:"experimentConfig,omitempty"`

	// Filled by the handler, never from the body.
	UserID      string `json:"-"`
	ByokKey     string `json:"-"`
	ByokModel   string `json:"-"`
	ResearchKey string `json:"-"`
	ClientID    string `json:"-"`
	RequestID   string `json:"-"`
}

// RateInfo gives a rejected caller enough to render a retry prompt.
type RateInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
	Tier      string    `json:"tier"`
}

// Rejection maps a validation failure to one HTTP status and a
// caller-safe message.
type Rejection struct {
	Status    int       `json:"-"`
	Message   string    `json:"error"`
	RateLimit *RateInfo `json:"rateLimit,omitempty"`
}

func reject(status int, message string) *Rejection {
	return &Rejection{Status: status, Message: message}
}

// ExecContext is the immutable execution context produced by Validate.
// It is owned by a single Execute call and never shared across requests.
type ExecContext struct {
	BoutID   string
	PresetID string
	Preset   *preset.Preset
	Topic    string
	Length   preset.ResponseLength
	Format   preset.ResponseFormat

	ModelID   string
	ByokKey   string
	ByokModel string

	UserID string
	Tier   gate.Tier

	// Exactly one funding source is nonzero for a metered run; both are
	// zero for BYOK and research runs.
	PreauthMicro     int64
	PoolClaimedMicro int64

	ResearchBypass bool
	PromptHook     experiment.PromptHook
	ScriptedTurns  map[int]experiment.ScriptedTurn

	RequestID string
}

// Result is what Execute returns after every turn has run.
type Result struct {
	Transcript   []store.TranscriptEntry
	ShareLine    *string
	InputTokens  int
	OutputTokens int
}
