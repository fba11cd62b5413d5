package preset

// ResponseLength controls how much each agent says per turn. The token
// cap is enforced at the provider call; the label and hint go into the
// prompt so the agent aims for the right size instead of getting cut
// off mid-sentence.
type ResponseLength struct {
	ID                  string `json:"id"`
	Label               string `json:"label"`
	Hint                string `json:"hint"`
	MaxOutputTokens     int    `json:"-"`
	OutputTokensPerTurn int    `json:"-"`
}

var responseLengths = map[string]ResponseLength{
	"brief": {
		ID:                  "brief",
		Label:               "Brief",
		Hint:                "one or two sentences, land the point and stop",
		MaxOutputTokens:     160,
		OutputTokensPerTurn: 60,
	},
	"standard": {
		ID:                  "standard",
		Label:               "Standard",
		Hint:                "a short paragraph, three to five sentences",
		MaxOutputTokens:     400,
		OutputTokensPerTurn: 120,
	},
	"extended": {
		ID:                  "extended",
		Label:               "Extended",
		Hint:                "two paragraphs with room to build an argument",
		MaxOutputTokens:     800,
		OutputTokensPerTurn: 250,
	},
}

// ResolveResponseLength falls back to standard for unknown keys.
func ResolveResponseLength(key string) ResponseLength {
	if cfg, ok := responseLengths[key]; ok {
		return cfg
	}
	return responseLengths["standard"]
}

// ResponseFormat controls the register of the exchange. The instruction
// goes into the system message, the label and hint into the user
// message context block.
type ResponseFormat struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Hint        string `json:"hint"`
	Instruction string `json:"-"`
}

var responseFormats = map[string]ResponseFormat{
	"debate": {
		ID:          "debate",
		Label:       "Debate",
		Hint:        "rebut the previous speaker before making your own point",
		Instruction: "Respond in plain text only. No markdown, no stage directions, no speaker labels.",
	},
	"banter": {
		ID:          "banter",
		Label:       "Banter",
		Hint:        "quick conversational jabs, keep it light",
		Instruction: "Respond in plain text only. Keep it conversational and fast. No markdown, no speaker labels.",
	},
	"formal": {
		ID:          "formal",
		Label:       "Formal",
		Hint:        "structured argument, measured tone",
		Instruction: "Respond in plain text only. Use a measured, formal register. No markdown, no speaker labels.",
	},
}

// ResolveResponseFormat falls back to debate for unknown keys.
func ResolveResponseFormat(key string) ResponseFormat {
	if cfg, ok := responseFormats[key]; ok {
		return cfg
	}
	return responseFormats["debate"]
}
