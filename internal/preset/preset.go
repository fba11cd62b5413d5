// Package preset holds the curated debate scenarios plus the knobs
// (response length, response format) that shape each turn's prompt.
package preset

// ArenaPresetID is the sentinel preset id for custom agent lineups.
// Arena bouts persist their lineup on the bout row instead of
// referencing a curated definition.
const ArenaPresetID = "arena"

// DefaultAgentColor is used when an agent does not declare one.
const DefaultAgentColor = "#f8fafc"

type Agent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"-"`
	Color        string `json:"color"`
}

type Preset struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Agents      []Agent `json:"agents"`
	MaxTurns    int     `json:"maxTurns"`
	Premium     bool    `json:"premium"`
	// Research presets resolve by id but never appear in listings.
	Research bool `json:"-"`
}

// Registry is the immutable preset catalogue. Constructed once and
// injected so tests can substitute fixtures.
type Registry struct {
	byID  map[string]*Preset
	order []string
}

func NewRegistry() *Registry {
	return newRegistry(builtinPresets())
}

func NewRegistryWith(presets []Preset) *Registry {
	return newRegistry(presets)
}

func newRegistry(presets []Preset) *Registry {
	r := &Registry{byID: make(map[string]*Preset, len(presets))}
	for i := range presets {
		p := presets[i]
		r.byID[p.ID] = &p
		r.order = append(r.order, p.ID)
	}
	return r
}

// ByID resolves any preset, research ones included.
func (r *Registry) ByID(id string) (*Preset, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// List returns the user-facing catalogue in declaration order,
// excluding research presets.
func (r *Registry) List() []*Preset {
	out := make([]*Preset, 0, len(r.order))
	for _, id := range r.order {
		p := r.byID[id]
		if p.Research {
			continue
		}
		out = append(out, p)
	}
	return out
}
