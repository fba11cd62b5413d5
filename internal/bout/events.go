package bout

// Event is one occurrence on a bout's outbound stream. Emission is a
// plain callback so the transport (SSE, tests, direct calls) stays a
// caller concern.
type Event interface {
	Name() string
}

// TurnEvent marks a turn boundary before the agent's text starts.
type TurnEvent struct {
	Turn      int    `json:"turn"`
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	Color     string `json:"color"`
}

func (TurnEvent) Name() string { return "turn" }

// DeltaEvent carries one incremental text fragment.
type DeltaEvent struct {
	Turn int    `json:"turn"`
	Text string `json:"text"`
}

func (DeltaEvent) Name() string { return "delta" }

// ShareLineEvent announces the generated share line.
type ShareLineEvent struct {
	Text string `json:"text"`
}

func (ShareLineEvent) Name() string { return "share_line" }

// DoneEvent closes a successful run.
type DoneEvent struct {
	Status string `json:"status"`
}

func (DoneEvent) Name() string { return "done" }

// ErrorEvent carries the caller-safe failure message, never the raw
// provider error.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) Name() string { return "error" }
