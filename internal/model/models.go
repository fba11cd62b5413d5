// Package model is the canonical model id registry. Every model
// reference goes through these constants; a magic-string model id
// anywhere else is a bug.
package model

// Canonical model ids.
const (
	Haiku  = "claude-haiku-4-5-20251001"
	Sonnet = "claude-sonnet-4-5-20250929"
	Opus   = "claude-opus-4-5-20251101"
)

// Byok is the sentinel model id for bring-your-own-key runs. The actual
// upstream model is whatever the caller's key selects; billing uses a
// flat platform fee.
const Byok = "byok"

// Family groups model ids for tier access checks.
type Family string

const (
	FamilyHaiku  Family = "haiku"
	FamilySonnet Family = "sonnet"
	FamilyOpus   Family = "opus"
)

var families = map[string]Family{
	Haiku:  FamilyHaiku,
	Sonnet: FamilySonnet,
	Opus:   FamilyOpus,
}

// FamilyOf reports the family of a model id. Unknown ids report
// ok=false and are denied everywhere (fail-closed).
func FamilyOf(id string) (Family, bool) {
	f, ok := families[id]
	return f, ok
}

// All returns every registered model id.
func All() []string {
	return []string{Haiku, Sonnet, Opus}
}

// DefaultFree is the model used when no explicit choice applies.
const DefaultFree = Haiku

// Premium lists the models a caller may request explicitly, strongest
// last.
var Premium = []string{Sonnet, Opus}

// FirstBoutPromotion is granted to a brand-new free account's first run
// as an onboarding incentive.
const FirstBoutPromotion = Opus
