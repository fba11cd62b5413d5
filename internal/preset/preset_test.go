package preset

import (
	"testing"

	"thepit/internal/store"
)

func TestRegistryListExcludesResearch(t *testing.T) {
	r := NewRegistry()
	for _, p := range r.List() {
		if p.Research {
			t.Fatalf("research preset %q leaked into the listing", p.ID)
		}
	}
	if len(r.List()) == 0 {
		t.Fatal("listing should not be empty")
	}
}

func TestRegistryByIDResolvesResearch(t *testing.T) {
	r := NewRegistry()
	p, ok := r.ByID("rea-baseline")
	if !ok {
		t.Fatal("research preset should resolve by id")
	}
	if !p.Research {
		t.Fatal("rea-baseline should be flagged research")
	}
}

func TestRegistryBuiltinsAreRunnable(t *testing.T) {
	r := NewRegistry()
	for _, p := range r.List() {
		if len(p.Agents) < 2 {
			t.Fatalf("preset %q has %d agents, want at least 2", p.ID, len(p.Agents))
		}
		if p.MaxTurns < len(p.Agents) {
			t.Fatalf("preset %q has %d turns for %d agents", p.ID, p.MaxTurns, len(p.Agents))
		}
		for _, a := range p.Agents {
			if a.SystemPrompt == "" {
				t.Fatalf("agent %q in %q has no system prompt", a.ID, p.ID)
			}
		}
	}
}

func TestRegistryUnknownID(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.ByID("not-a-preset"); ok {
		t.Fatal("unknown id should not resolve")
	}
}

func TestBuildArenaFromLineup(t *testing.T) {
	turns := 10
	p := BuildArenaFromLineup([]store.LineupAgent{
		{ID: "a1", Name: "Alpha", SystemPrompt: "be alpha", Color: "#112233"},
		{ID: "a2", Name: "Beta", SystemPrompt: "be beta"},
	}, &turns)
	if p == nil {
		t.Fatal("lineup should build a preset")
	}
	if p.ID != ArenaPresetID || !p.Premium {
		t.Fatalf("preset = %+v, want premium arena", p)
	}
	if p.MaxTurns != 10 {
		t.Fatalf("MaxTurns = %d, want 10", p.MaxTurns)
	}
	if p.Agents[0].Color != "#112233" {
		t.Fatalf("explicit color lost: %q", p.Agents[0].Color)
	}
	if p.Agents[1].Color != DefaultAgentColor {
		t.Fatalf("missing color should default, got %q", p.Agents[1].Color)
	}
}

func TestBuildArenaFromLineupDefaults(t *testing.T) {
	if p := BuildArenaFromLineup(nil, nil); p != nil {
		t.Fatalf("empty lineup should build nil, got %+v", p)
	}

	p := BuildArenaFromLineup([]store.LineupAgent{{ID: "a1", Name: "Solo", SystemPrompt: "x"}}, nil)
	if p.MaxTurns != DefaultArenaTurns {
		t.Fatalf("MaxTurns = %d, want %d", p.MaxTurns, DefaultArenaTurns)
	}

	zero := 0
	p = BuildArenaFromLineup([]store.LineupAgent{{ID: "a1", Name: "Solo", SystemPrompt: "x"}}, &zero)
	if p.MaxTurns != DefaultArenaTurns {
		t.Fatalf("MaxTurns with zero override = %d, want %d", p.MaxTurns, DefaultArenaTurns)
	}
}

func TestResolveResponseLength(t *testing.T) {
	if got := ResolveResponseLength("brief"); got.MaxOutputTokens != 160 {
		t.Fatalf("brief MaxOutputTokens = %d, want 160", got.MaxOutputTokens)
	}
	if got := ResolveResponseLength(""); got.ID != "standard" {
		t.Fatalf("empty key resolved to %q, want standard", got.ID)
	}
	if got := ResolveResponseLength("enormous"); got.ID != "standard" {
		t.Fatalf("unknown key resolved to %q, want standard", got.ID)
	}
}

func TestResolveResponseFormat(t *testing.T) {
	if got := ResolveResponseFormat("banter"); got.ID != "banter" {
		t.Fatalf("banter resolved to %q", got.ID)
	}
	if got := ResolveResponseFormat("sonnet-form"); got.ID != "debate" {
		t.Fatalf("unknown key resolved to %q, want debate", got.ID)
	}
	if ResolveResponseFormat("formal").Instruction == "" {
		t.Fatal("formats must carry a system instruction")
	}
}
