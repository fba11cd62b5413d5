package bout

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"thepit/internal/credit"
	"thepit/internal/gate"
	"thepit/internal/model"
	"thepit/internal/preset"
	"thepit/internal/ratelimit"
	"thepit/internal/store"
)

const (
	msgUnavailable         = "Service temporarily unavailable."
	msgInsufficientCredits = "Insufficient credits."
	msgModelNotIncluded    = "Your plan does not include access to this model. Upgrade or use BYOK."
)

// Per-tier bout creation limits per hour. Lab is absent and therefore
// unlimited.
var boutRateLimits = map[gate.Tier]int{
	gate.TierAnonymous: 2,
	gate.TierFree:      5,
	gate.TierPass:      15,
}

// Validate runs the synchronous admission pipeline, short-circuiting on
// the first failure. Success hands back an immutable ExecContext with
// the funding decision already taken; every rejection maps to one HTTP
// status and a caller-safe message with no partial charge left behind.
func (s *Service) Validate(ctx context.Context, req Request) (*ExecContext, *Rejection) {
	if req.BoutID == "" {
		return nil, reject(http.StatusBadRequest, "Missing boutId.")
	}
	topic := strings.TrimSpace(req.Topic)
	if len(topic) > 500 {
		return nil, reject(http.StatusBadRequest, "Topic must be 500 characters or fewer.")
	}
	lengthKey := strings.TrimSpace(req.Length)
	lengthCfg := preset.ResolveResponseLength(lengthKey)
	formatKey := strings.TrimSpace(req.Format)
	formatCfg := preset.ResolveResponseFormat(formatKey)

	// Idempotency and lifecycle gate against any persisted row.
	existing, err := s.store.GetBout(ctx, req.BoutID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, reject(http.StatusServiceUnavailable, msgUnavailable)
	}
	if existing != nil {
		if existing.Status == store.BoutStatusCompleted {
			return nil, reject(http.StatusConflict, "Bout has already completed.")
		}
		if existing.Status == store.BoutStatusRunning && len(existing.Transcript) > 0 {
			return nil, reject(http.StatusConflict, "Bout is already running.")
		}
		if existing.OwnerID != nil && *existing.OwnerID != req.UserID {
			return nil, reject(http.StatusForbidden, "Forbidden.")
		}
	}

	presetID := req.PresetID
	if presetID == "" && existing != nil {
		presetID = existing.PresetID
	}
	if presetID == "" {
		return nil, reject(http.StatusBadRequest, "Missing presetId.")
	}

	// Preset resolution: curated registry first, then arena lineup
	// reconstruction from the persisted row.
	p, ok := s.presets.ByID(presetID)
	if !ok && presetID == preset.ArenaPresetID && existing != nil {
		p = preset.BuildArenaFromLineup(existing.AgentLineup, existing.MaxTurns)
		if p != nil {
			if topic == "" {
				topic = existing.Topic
			}
			if lengthKey == "" && existing.ResponseLength != "" {
				lengthCfg = preset.ResolveResponseLength(existing.ResponseLength)
			}
			if formatKey == "" && existing.ResponseFormat != "" {
				formatCfg = preset.ResolveResponseFormat(existing.ResponseFormat)
			}
		}
	}
	if p == nil {
		return nil, reject(http.StatusNotFound, "Unknown preset.")
	}

	// Shared-secret research bypass: skips rate limits, tier checks, and
	// the economic gate entirely. Compared in constant time.
	researchBypass := false
	if req.ResearchKey != "" && s.cfg.ResearchAPIKey != "" {
		researchBypass = subtle.ConstantTimeCompare([]byte(req.ResearchKey), []byte(s.cfg.ResearchAPIKey)) == 1
	}
	if researchBypass {
		log.Info().Str("bout_id", req.BoutID).Str("preset_id", presetID).Msg("research bypass active")
	}

	// Experiment hooks are research-only instrumentation.
	if !req.Experiment.Empty() {
		if !researchBypass {
			return nil, reject(http.StatusForbidden, "Experiment config requires research access.")
		}
		if err := req.Experiment.Validate(p.MaxTurns, len(p.Agents)); err != nil {
			return nil, reject(http.StatusBadRequest, err.Error())
		}
	}

	// Resolve tier before rate limiting so the 429 advertises the right
	// limit for the caller's actual tier.
	tier := gate.TierAnonymous
	if researchBypass {
		tier = gate.TierLab
	} else if req.UserID != "" {
		tier, err = s.gate.ResolveTier(ctx, req.UserID)
		if err != nil {
			return nil, reject(http.StatusServiceUnavailable, msgUnavailable)
		}
	}

	if limit, limited := boutRateLimits[tier]; limited && !researchBypass {
		identifier := req.UserID
		if identifier == "" {
			identifier = req.ClientID
		}
		res := s.limiter.Check(ratelimit.Config{
			Name:        "bout-creation",
			MaxRequests: limit,
			Window:      time.Hour,
		}, identifier)
		if !res.OK {
			return nil, &Rejection{
				Status:  http.StatusTooManyRequests,
				Message: fmt.Sprintf("Rate limit exceeded. Max %d bouts per hour.", limit),
				RateLimit: &RateInfo{
					Limit:     limit,
					Remaining: res.Remaining,
					ResetAt:   res.ResetAt,
					Tier:      string(tier),
				},
			}
		}
	}

	// Tier-based access control and model selection.
	isByok := req.Model == model.Byok && s.cfg.ByokEnabled && req.UserID != ""
	modelID := model.DefaultFree

	if s.cfg.SubscriptionsEnabled && req.UserID != "" {
		decision, err := s.gate.CanRunBout(ctx, req.UserID, tier, isByok)
		if err != nil {
			return nil, reject(http.StatusServiceUnavailable, msgUnavailable)
		}
		if !decision.Allowed {
			return nil, reject(http.StatusPaymentRequired, decision.Reason)
		}

		switch {
		case isByok:
			if req.ByokKey == "" {
				return nil, reject(http.StatusBadRequest, "BYOK key required.")
			}
			modelID = model.Byok
		case req.Model != "" && isPremiumModel(req.Model):
			if !gate.CanAccessModel(tier, req.Model) {
				return nil, reject(http.StatusPaymentRequired, msgModelNotIncluded)
			}
			modelID = req.Model
		case p.Premium || p.ID == preset.ArenaPresetID:
			for _, id := range model.Premium {
				if gate.CanAccessModel(tier, id) {
					modelID = id
					break
				}
			}
		}

		// First-bout promotion: a brand-new free account's first run gets
		// the promotion model so their first impression is the strong one.
		if !isByok && tier == gate.TierFree && modelID == model.DefaultFree && req.Model == "" {
			used, err := s.store.GetFreeBoutsUsed(ctx, req.UserID)
			if err != nil {
				return nil, reject(http.StatusServiceUnavailable, msgUnavailable)
			}
			if used == 0 {
				modelID = model.FirstBoutPromotion
				log.Info().Str("user_id", req.UserID).Str("model", modelID).Msg("first-bout promotion applied")
			}
		}

		if !isByok && tier == gate.TierFree {
			if err := s.store.EnsureUser(ctx, req.UserID); err != nil {
				return nil, reject(http.StatusServiceUnavailable, msgUnavailable)
			}
			if err := s.store.IncrementFreeBoutsUsed(ctx, req.UserID); err != nil {
				return nil, reject(http.StatusServiceUnavailable, msgUnavailable)
			}
		}
	}

	// Economic gate: authenticated runs preauthorize the estimate, the
	// anonymous path claims from the intro pool, BYOK pays only the flat
	// fee at settlement and reserves nothing up front.
	var preauthMicro, poolClaimedMicro int64
	if s.cfg.CreditsEnabled && !researchBypass && !isByok {
		estimatedGBP := s.prices.EstimateCostGBP(p.MaxTurns, modelID, lengthCfg.OutputTokensPerTurn)
		amount := s.prices.ToMicro(estimatedGBP)

		if req.UserID == "" {
			status, err := s.pool.Status(ctx)
			if err != nil {
				return nil, reject(http.StatusServiceUnavailable, msgUnavailable)
			}
			if status.Exhausted || status.RemainingMicro < amount {
				return nil, reject(http.StatusUnauthorized, "Sign in required. The trial pool is exhausted.")
			}
			granted, _, err := s.pool.Claim(ctx, amount)
			if err != nil {
				return nil, reject(http.StatusServiceUnavailable, msgUnavailable)
			}
			if granted < amount {
				// A racing claim drained the rest between the pre-check
				// and the atomic claim. Put back the partial grant.
				if granted > 0 {
					_ = s.pool.Refund(ctx, granted)
				}
				return nil, reject(http.StatusPaymentRequired, "Trial pool exhausted. Sign in to continue.")
			}
			poolClaimedMicro = granted
			log.Info().Str("bout_id", req.BoutID).Int64("pool_claimed_micro", granted).Msg("trial pool bout created")
		} else {
			res, err := s.ledger.Preauthorize(ctx, req.UserID, amount, credit.SourcePreauth, map[string]any{
				"presetId":         presetID,
				"boutId":           req.BoutID,
				"modelId":          modelID,
				"estimatedCostGbp": estimatedGBP,
				"referenceId":      req.BoutID,
			})
			if err != nil {
				return nil, reject(http.StatusServiceUnavailable, msgUnavailable)
			}
			if !res.OK {
				return nil, reject(http.StatusPaymentRequired, msgInsufficientCredits)
			}
			preauthMicro = amount
		}
	}

	// Ensure the bout row exists in running status. A failure here undoes
	// the reservation so the rejection leaves no economic trace.
	if existing != nil {
		err = s.store.MarkBoutRunning(ctx, req.BoutID, topic, lengthCfg.ID, formatCfg.ID)
	} else {
		var ownerID *string
		if req.UserID != "" {
			ownerID = &req.UserID
		}
		err = s.store.InsertBoutRunning(ctx, store.InsertBoutParams{
			ID:             req.BoutID,
			PresetID:       presetID,
			Topic:          topic,
			ResponseLength: lengthCfg.ID,
			ResponseFormat: formatCfg.ID,
			OwnerID:        ownerID,
		})
	}
	if err != nil {
		log.Error().Err(err).Str("bout_id", req.BoutID).Msg("failed to ensure bout exists")
		s.undoReservation(ctx, req.UserID, req.BoutID, preauthMicro, poolClaimedMicro)
		return nil, reject(http.StatusServiceUnavailable, msgUnavailable)
	}

	return &ExecContext{
		BoutID:           req.BoutID,
		PresetID:         presetID,
		Preset:           p,
		Topic:            topic,
		Length:           lengthCfg,
		Format:           formatCfg,
		ModelID:          modelID,
		ByokKey:          req.ByokKey,
		ByokModel:        req.ByokModel,
		UserID:           req.UserID,
		Tier:             tier,
		PreauthMicro:     preauthMicro,
		PoolClaimedMicro: poolClaimedMicro,
		ResearchBypass:   researchBypass,
		PromptHook:       req.Experiment.CompilePromptHook(),
		ScriptedTurns:    req.Experiment.CompileScriptedTurns(),
		RequestID:        req.RequestID,
	}, nil
}

func (s *Service) undoReservation(ctx context.Context, userID, boutID string, preauthMicro, poolClaimedMicro int64) {
	if preauthMicro > 0 {
		err := s.ledger.ApplyDelta(ctx, userID, preauthMicro, credit.SourceSettlementError, map[string]any{
			"boutId":      boutID,
			"reason":      "bout row creation failed",
			"referenceId": boutID,
		})
		if err != nil {
			log.Error().Err(err).Str("bout_id", boutID).Msg("preauth undo failed")
		}
	}
	if poolClaimedMicro > 0 {
		if err := s.pool.Refund(ctx, poolClaimedMicro); err != nil {
			log.Error().Err(err).Str("bout_id", boutID).Msg("pool refund failed")
		}
	}
}

func isPremiumModel(id string) bool {
	for _, m := range model.Premium {
		if m == id {
			return true
		}
	}
	return false
}
