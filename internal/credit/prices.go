// Package credit implements the micro-denominated credit economy.
//
// Unit chain: provider tokens -> GBP cost -> micro-credits. One credit is
// 100 micro-credits; micro-credits are the base unit for all storage and
// atomic balance operations so no financial math touches floats at rest.
package credit

import (
	"encoding/json"
	"math"

	"thepit/internal/config"
	"thepit/internal/model"
)

const MicroPerCredit = 100

// ModelPrice is GBP per million tokens, split by token class.
type ModelPrice struct {
	In  float64 `json:"in"`
	Out float64 `json:"out"`
}

// PriceTable holds per-model pricing plus the estimation knobs used for
// preauthorization. Constructed once from config and injected; never a
// package global, so tests can substitute fixtures.
type PriceTable struct {
	Prices              map[string]ModelPrice
	PlatformMargin      float64
	ByokFeeGBPPer1K     float64
	ByokMinGBP          float64
	MicroValueGBP       float64
	OutputTokensPerTurn int
	InputFactor         float64
	TokenCharsPer       int
}

var defaultPrices = map[string]ModelPrice{
	model.Haiku:  {In: 0.732, Out: 3.66},
	model.Sonnet: {In: 2.196, Out: 10.98},
	model.Opus:   {In: 3.66, Out: 18.3},
}

func NewPriceTable(cfg config.CreditsConfig) *PriceTable {
	prices := make(map[string]ModelPrice, len(defaultPrices))
	for id, p := range defaultPrices {
		prices[id] = p
	}
	if cfg.ModelPricesJSON != "" {
		var override map[string]ModelPrice
		if err := json.Unmarshal([]byte(cfg.ModelPricesJSON), &override); err == nil {
			for id, p := range override {
				prices[id] = p
			}
		}
	}
	return &PriceTable{
		Prices:              prices,
		PlatformMargin:      cfg.PlatformMargin,
		ByokFeeGBPPer1K:     cfg.ByokFeeGBPPer1K,
		ByokMinGBP:          cfg.ByokMinGBP,
		MicroValueGBP:       cfg.CreditValueGBP / MicroPerCredit,
		OutputTokensPerTurn: cfg.OutputTokensPerTurn,
		InputFactor:         cfg.InputFactor,
		TokenCharsPer:       cfg.TokenCharsPer,
	}
}

// ToMicro converts a GBP amount to micro-credits, rounding up so the
// platform never undercharges by a fraction of a micro.
func (t *PriceTable) ToMicro(gbp float64) int64 {
	if gbp <= 0 {
		return 0
	}
	return int64(math.Ceil(gbp / t.MicroValueGBP))
}

// EstimateTokensFromText approximates token count from character length,
// used when the provider returns no usage.
func (t *PriceTable) EstimateTokensFromText(text string, min int) int {
	chars := t.TokenCharsPer
	if chars <= 0 {
		chars = 4
	}
	n := (len(text) + chars - 1) / chars
	if n < min {
		return min
	}
	return n
}

// EstimateBoutTokens projects input/output token usage for a bout of the
// given turn count.
func (t *PriceTable) EstimateBoutTokens(turns, outputTokensPerTurn int) (inputTokens, outputTokens int) {
	if outputTokensPerTurn <= 0 {
		outputTokensPerTurn = t.OutputTokensPerTurn
	}
	outputTokens = turns * outputTokensPerTurn
	if outputTokens < 1 {
		outputTokens = 1
	}
	inputTokens = int(math.Ceil(float64(outputTokens) * t.InputFactor))
	if inputTokens < 1 {
		inputTokens = 1
	}
	return inputTokens, outputTokens
}

// EstimateCostGBP projects the cost of a bout before it runs. BYOK uses
// the flat platform fee with a floor; unknown models price at zero.
func (t *PriceTable) EstimateCostGBP(turns int, modelID string, outputTokensPerTurn int) float64 {
	inputTokens, outputTokens := t.EstimateBoutTokens(turns, outputTokensPerTurn)
	return t.ComputeCostGBP(inputTokens, outputTokens, modelID)
}

// ComputeCostGBP prices actual token usage.
func (t *PriceTable) ComputeCostGBP(inputTokens, outputTokens int, modelID string) float64 {
	if modelID == model.Byok {
		total := float64(inputTokens + outputTokens)
		cost := total / 1000 * t.ByokFeeGBPPer1K
		return math.Max(cost, t.ByokMinGBP)
	}
	price, ok := t.Prices[modelID]
	if !ok {
		return 0
	}
	raw := (float64(inputTokens)*price.In + float64(outputTokens)*price.Out) / 1e6
	return raw * (1 + t.PlatformMargin)
}
