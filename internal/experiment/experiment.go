// Package experiment supports controlled context-injection studies.
// A declarative config compiles into a per-turn prompt hook and a
// scripted-turn lookup; both are optional and change nothing when
// absent. Only requests carrying the research bypass may supply one.
package experiment

import (
	"fmt"
	"strings"
)

// PromptInjection appends content to one agent's system prompt on every
// turn after the threshold. Injections never retract once activated.
type PromptInjection struct {
	AfterTurn        int    `json:"afterTurn"`
	TargetAgentIndex int    `json:"targetAgentIndex"`
	Content          string `json:"content"`
}

// ScriptedTurn substitutes fixed content for the generation call at one
// exact turn index.
type ScriptedTurn struct {
	Turn       int    `json:"turn"`
	AgentIndex int    `json:"agentIndex"`
	Content    string `json:"content"`
}

type Config struct {
	PromptInjections []PromptInjection `json:"promptInjections,omitempty"`
	ScriptedTurns    []ScriptedTurn    `json:"scriptedTurns,omitempty"`
}

func (c *Config) Empty() bool {
	return c == nil || (len(c.PromptInjections) == 0 && len(c.ScriptedTurns) == 0)
}

// Validate checks a config against the bout's shape. Turn numbers must
// fall inside [0, maxTurns), agent indices inside [0, agentCount), and
// no two scripted turns may claim the same turn index.
func (c *Config) Validate(maxTurns, agentCount int) error {
	if c == nil {
		return nil
	}
	for i, inj := range c.PromptInjections {
		if inj.AfterTurn < 0 {
			return fmt.Errorf("promptInjections[%d].afterTurn must be a non-negative integer", i)
		}
		if inj.AfterTurn >= maxTurns {
			return fmt.Errorf("promptInjections[%d].afterTurn (%d) exceeds maxTurns (%d)", i, inj.AfterTurn, maxTurns)
		}
		if inj.TargetAgentIndex < 0 {
			return fmt.Errorf("promptInjections[%d].targetAgentIndex must be a non-negative integer", i)
		}
		if inj.TargetAgentIndex >= agentCount {
			return fmt.Errorf("promptInjections[%d].targetAgentIndex (%d) exceeds agent count (%d)", i, inj.TargetAgentIndex, agentCount)
		}
		if strings.TrimSpace(inj.Content) == "" {
			return fmt.Errorf("promptInjections[%d].content must be a non-empty string", i)
		}
	}
	seen := make(map[int]bool)
	for i, st := range c.ScriptedTurns {
		if st.Turn < 0 {
			return fmt.Errorf("scriptedTurns[%d].turn must be a non-negative integer", i)
		}
		if st.Turn >= maxTurns {
			return fmt.Errorf("scriptedTurns[%d].turn (%d) exceeds maxTurns (%d)", i, st.Turn, maxTurns)
		}
		if seen[st.Turn] {
			return fmt.Errorf("scriptedTurns has duplicate turn number %d", st.Turn)
		}
		seen[st.Turn] = true
		if st.AgentIndex < 0 {
			return fmt.Errorf("scriptedTurns[%d].agentIndex must be a non-negative integer", i)
		}
		if st.AgentIndex >= agentCount {
			return fmt.Errorf("scriptedTurns[%d].agentIndex (%d) exceeds agent count (%d)", i, st.AgentIndex, agentCount)
		}
		if strings.TrimSpace(st.Content) == "" {
			return fmt.Errorf("scriptedTurns[%d].content must be a non-empty string", i)
		}
	}
	return nil
}

// HookContext describes the turn a prompt hook is being asked about.
type HookContext struct {
	Turn       int
	AgentIndex int
	AgentID    string
}

// PromptHook returns content to inject into the current agent's system
// prompt, or "" for no injection this turn.
type PromptHook func(ctx HookContext) string

// CompilePromptHook builds the injection closure. An injection fires
// once the turn index passes its threshold and the round-robin agent
// index matches; multiple firing injections concatenate in declaration
// order. Returns nil when no injections are configured.
func (c *Config) CompilePromptHook() PromptHook {
	if c == nil || len(c.PromptInjections) == 0 {
		return nil
	}
	injections := c.PromptInjections
	return func(ctx HookContext) string {
		var parts []string
		for _, inj := range injections {
			if ctx.Turn > inj.AfterTurn && ctx.AgentIndex == inj.TargetAgentIndex {
				parts = append(parts, inj.Content)
			}
		}
		return strings.Join(parts, "\n")
	}
}

// CompileScriptedTurns builds the turn-indexed lookup. Returns nil when
// no scripted turns are configured.
func (c *Config) CompileScriptedTurns() map[int]ScriptedTurn {
	if c == nil || len(c.ScriptedTurns) == 0 {
		return nil
	}
	m := make(map[int]ScriptedTurn, len(c.ScriptedTurns))
	for _, st := range c.ScriptedTurns {
		m[st.Turn] = st
	}
	return m
}
