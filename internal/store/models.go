package store

import "time"

type User struct {
	ID               string
	SubscriptionTier string
	FreeBoutsUsed    int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type CreditAccount struct {
	UserID       string
	BalanceMicro int64
	UpdatedAt    time.Time
}

type CreditTransaction struct {
	ID          string
	UserID      string
	DeltaMicro  int64
	Source      string
	ReferenceID string
	Metadata    map[string]any
	CreatedAt   time.Time
}

type TranscriptEntry struct {
	Turn      int    `json:"turn"`
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	Text      string `json:"text"`
}

// LineupAgent is one slot of an arena-mode custom lineup, persisted as
// JSONB on the bout row so the arena preset can be reconstructed on retry.
type LineupAgent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"systemPrompt"`
	Color        string `json:"color,omitempty"`
}

type Bout struct {
	ID             string
	Status         string
	PresetID       string
	AgentLineup    []LineupAgent
	Topic          string
	ResponseLength string
	ResponseFormat string
	MaxTurns       *int
	Transcript     []TranscriptEntry
	ShareLine      *string
	OwnerID        *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const (
	BoutStatusRunning   = "running"
	BoutStatusCompleted = "completed"
	BoutStatusError     = "error"
)

type IntroPool struct {
	InitialMicro    int64
	ClaimedMicro    int64
	HalfLifeMinutes float64
	StartedAt       time.Time
	UpdatedAt       time.Time
}
