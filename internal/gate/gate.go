// Package gate centralizes tier-dependent access control: bout caps,
// model access, and agent slots. Every "can this account do X" check
// lives here.
//
// Tier resolution order: admin override, subscriptions-disabled global
// switch, stored subscription tier, defaulting to free.
package gate

import (
	"context"
	"fmt"
	"time"

	"thepit/internal/config"
	"thepit/internal/model"
	"thepit/internal/store"
)

type Tier string

const (
	TierAnonymous Tier = "anonymous"
	TierFree      Tier = "free"
	TierPass      Tier = "pass"
	TierLab       Tier = "lab"
)

// TierConfig declares one tier's entitlements. Zero means unlimited for
// LifetimeBoutCap and MaxAgents.
type TierConfig struct {
	Label           string
	BoutsPerDay     int
	LifetimeBoutCap int
	Families        []model.Family
	MaxAgents       int
	APIAccess       bool
}

var tierConfigs = map[Tier]TierConfig{
	TierFree: {
		Label:           "Free",
		BoutsPerDay:     5,
		LifetimeBoutCap: 50,
		Families:        []model.Family{model.FamilyHaiku, model.FamilySonnet},
		MaxAgents:       1,
	},
	TierPass: {
		Label:       "Pit Pass",
		BoutsPerDay: 15,
		Families:    []model.Family{model.FamilyHaiku, model.FamilySonnet},
		MaxAgents:   5,
	},
	TierLab: {
		Label:       "Pit Lab",
		BoutsPerDay: 100,
		Families:    []model.Family{model.FamilyHaiku, model.FamilySonnet, model.FamilyOpus},
		APIAccess:   true,
	},
}

// ConfigFor returns the entitlement table entry for a tier. Anonymous
// callers share the free tier's model families but none of its quotas;
// their spending is bounded by the intro pool instead.
func ConfigFor(tier Tier) TierConfig {
	if cfg, ok := tierConfigs[tier]; ok {
		return cfg
	}
	return tierConfigs[TierFree]
}

type Decision struct {
	Allowed bool
	Reason  string
}

var allowed = Decision{Allowed: true}

type Gate struct {
	store                *store.Store
	adminIDs             map[string]struct{}
	subscriptionsEnabled bool
}

func New(st *store.Store, cfg config.ServerConfig) *Gate {
	admins := make(map[string]struct{}, len(cfg.AdminUserIDs))
	for _, id := range cfg.AdminUserIDs {
		if id != "" {
			admins[id] = struct{}{}
		}
	}
	return &Gate{
		store:                st,
		adminIDs:             admins,
		subscriptionsEnabled: cfg.SubscriptionsEnabled,
	}
}

func (g *Gate) IsAdmin(userID string) bool {
	_, ok := g.adminIDs[userID]
	return ok
}

// ResolveTier resolves a caller's effective tier. Admins always get
// lab, as does everyone while subscriptions are switched off.
func (g *Gate) ResolveTier(ctx context.Context, userID string) (Tier, error) {
	if userID == "" {
		return TierAnonymous, nil
	}
	if g.IsAdmin(userID) {
		return TierLab, nil
	}
	if !g.subscriptionsEnabled {
		return TierLab, nil
	}
	stored, err := g.store.GetSubscriptionTier(ctx, userID)
	if err != nil {
		return "", err
	}
	switch Tier(stored) {
	case TierFree, TierPass, TierLab:
		return Tier(stored), nil
	}
	return TierFree, nil
}

// CanRunBout checks whether a user may start a platform-funded bout.
// BYOK bouts bypass every cap since they cost the platform nothing.
// The lifetime cap is checked before the daily count: it is the cheaper
// query and fails fast for capped-out accounts.
func (g *Gate) CanRunBout(ctx context.Context, userID string, tier Tier, isByok bool) (Decision, error) {
	if isByok {
		return allowed, nil
	}
	cfg := ConfigFor(tier)

	if cfg.LifetimeBoutCap > 0 {
		used, err := g.store.GetFreeBoutsUsed(ctx, userID)
		if err != nil {
			return Decision{}, err
		}
		if used >= cfg.LifetimeBoutCap {
			return Decision{
				Reason: fmt.Sprintf("Free tier limit reached (%d lifetime bouts). Upgrade or use your own API key (BYOK).", cfg.LifetimeBoutCap),
			}, nil
		}
	}

	todayStart := time.Now().UTC().Truncate(24 * time.Hour)
	daily, err := g.store.CountBoutsSince(ctx, userID, todayStart)
	if err != nil {
		return Decision{}, err
	}
	if daily >= cfg.BoutsPerDay {
		hint := "Wait until tomorrow"
		if tier == TierFree {
			hint = "Upgrade"
		}
		return Decision{
			Reason: fmt.Sprintf("Daily limit reached (%d bouts/day for %s tier). %s or use your own API key (BYOK).", cfg.BoutsPerDay, cfg.Label, hint),
		}, nil
	}
	return allowed, nil
}

// CanAccessModel reports whether a tier may use a model. BYOK always
// passes; unknown model ids are denied for every tier.
func CanAccessModel(tier Tier, modelID string) bool {
	if modelID == model.Byok {
		return true
	}
	family, ok := model.FamilyOf(modelID)
	if !ok {
		return false
	}
	for _, f := range ConfigFor(tier).Families {
		if f == family {
			return true
		}
	}
	return false
}

// CanCreateAgent checks the per-tier custom agent slot limit.
func CanCreateAgent(tier Tier, currentAgentCount int) Decision {
	cfg := ConfigFor(tier)
	if cfg.MaxAgents > 0 && currentAgentCount >= cfg.MaxAgents {
		plural := "s"
		if cfg.MaxAgents == 1 {
			plural = ""
		}
		return Decision{
			Reason: fmt.Sprintf("%s tier allows %d custom agent%s. Upgrade to create more.", cfg.Label, cfg.MaxAgents, plural),
		}
	}
	return allowed
}

// AvailableModels lists the model ids a tier can use, in registry order.
func AvailableModels(tier Tier) []string {
	out := []string{}
	for _, id := range model.All() {
		if CanAccessModel(tier, id) {
			out = append(out, id)
		}
	}
	return out
}
