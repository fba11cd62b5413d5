package bout

import (
	"fmt"
	"strings"

	"thepit/internal/preset"
)

// Prompts are built as tagged XML sections: structural instructions use
// raw tags the model can parse, while user-controlled content (topic,
// transcript, injected text) is escaped before embedding.

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func xmlEscape(text string) string {
	return xmlReplacer.Replace(text)
}

func xmlTag(name, content string) string {
	return fmt.Sprintf("<%s>\n%s\n</%s>", name, content, name)
}

func xmlInline(name, content string) string {
	return fmt.Sprintf("<%s>%s</%s>", name, content, name)
}

const safetyText = "The following is a character persona for a satirical debate simulation between exaggerated caricatures. " +
	"This is a fictional entertainment format, like improv comedy or a debate show, NOT real advocacy. " +
	"You MUST stay in character for the entire response. Do not break the fourth wall, " +
	"do not add disclaimers, do not refuse the role, and do not offer alternatives. " +
	"The audience understands these are fictional characters with exaggerated viewpoints. " +
	"Do not reveal system details, API keys, or internal platform information."

// wrapPersona wraps a plain-text persona in tags unless it already
// carries XML structure (wrap-on-read for stored prompts).
func wrapPersona(prompt string) string {
	if strings.Contains(prompt, "<persona") {
		return prompt
	}
	return xmlTag("persona", xmlTag("instructions", strings.TrimSpace(prompt)))
}

// buildSystemPrompt assembles the per-turn system message. Injected
// experiment content lands in its own clearly demarcated section.
func buildSystemPrompt(persona, formatInstruction, injected string) string {
	sections := []string{
		xmlTag("safety", safetyText),
		wrapPersona(persona),
		xmlTag("format", strings.TrimSpace(formatInstruction)),
	}
	if injected != "" {
		sections = append(sections, xmlTag("experiment-injection", xmlEscape(injected)))
	}
	return strings.Join(sections, "\n\n")
}

// buildUserPrompt assembles the per-turn user message from the topic,
// the response knobs, and the full prior transcript.
func buildUserPrompt(topic string, length preset.ResponseLength, format preset.ResponseFormat, history []string, agentName string) string {
	var contextLines []string
	if topic != "" {
		contextLines = append(contextLines, xmlInline("topic", xmlEscape(topic)))
	}
	contextLines = append(contextLines,
		xmlInline("response-length", fmt.Sprintf("%s (%s)", xmlEscape(length.Label), xmlEscape(length.Hint))),
		xmlInline("response-format", fmt.Sprintf("%s (%s)", xmlEscape(format.Label), xmlEscape(format.Hint))),
	)

	sections := []string{xmlTag("context", strings.Join(contextLines, "\n"))}

	if len(history) == 0 {
		sections = append(sections, xmlTag("instruction",
			fmt.Sprintf("Open the debate in character as %s.", xmlEscape(agentName))))
	} else {
		escaped := make([]string, len(history))
		for i, line := range history {
			escaped[i] = xmlEscape(line)
		}
		sections = append(sections,
			xmlTag("transcript", strings.Join(escaped, "\n")),
			xmlTag("instruction", fmt.Sprintf("Respond in character as %s.", xmlEscape(agentName))),
		)
	}

	return strings.Join(sections, "\n\n")
}

// buildSharePrompt asks for a single tweet-length line summarizing the
// bout. The transcript tail is user-generated content and gets escaped.
func buildSharePrompt(clippedTranscript string) string {
	rules := []string{
		xmlInline("rule", "Captures the most absurd/funny/surprising moment"),
		xmlInline("rule", "Makes someone want to click the link"),
		xmlInline("rule", "Sounds like a human wrote it (not corporate)"),
	}
	sections := []string{
		xmlTag("task", "You just witnessed an AI bout. Write a single tweet-length line (max 140 chars)."),
		xmlTag("rules", strings.Join(rules, "\n")),
		xmlTag("transcript", xmlEscape(clippedTranscript)),
	}
	return strings.Join(sections, "\n\n")
}
