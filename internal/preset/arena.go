package preset

import "thepit/internal/store"

// DefaultArenaTurns bounds custom-lineup bouts that never declared a
// turn count.
const DefaultArenaTurns = 6

// BuildArenaFromLineup reconstructs an arena preset from the lineup
// persisted on a bout row. Returns nil for an empty lineup.
func BuildArenaFromLineup(lineup []store.LineupAgent, maxTurns *int) *Preset {
	if len(lineup) == 0 {
		return nil
	}
	turns := DefaultArenaTurns
	if maxTurns != nil && *maxTurns > 0 {
		turns = *maxTurns
	}
	agents := make([]Agent, 0, len(lineup))
	for _, a := range lineup {
		color := a.Color
		if color == "" {
			color = DefaultAgentColor
		}
		agents = append(agents, Agent{
			ID:           a.ID,
			Name:         a.Name,
			SystemPrompt: a.SystemPrompt,
			Color:        color,
		})
	}
	return &Preset{
		ID:       ArenaPresetID,
		Name:     "Arena",
		Agents:   agents,
		MaxTurns: turns,
		Premium:  true,
	}
}
