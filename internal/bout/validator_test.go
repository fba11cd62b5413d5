package bout

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"thepit/internal/experiment"
	"thepit/internal/gate"
	"thepit/internal/model"
	"thepit/internal/store"
)

func TestValidateMissingBoutID(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())

	_, rej := e.svc.Validate(context.Background(), Request{PresetID: "roast-battle"})
	if rej == nil || rej.Status != http.StatusBadRequest {
		t.Fatalf("rejection = %+v, want 400", rej)
	}
}

func TestValidateTopicTooLong(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())

	_, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   store.NewID(),
		PresetID: "roast-battle",
		Topic:    strings.Repeat("x", 501),
		ClientID: "198.51.100.1",
	})
	if rej == nil || rej.Status != http.StatusBadRequest {
		t.Fatalf("rejection = %+v, want 400", rej)
	}
}

func TestValidateUnknownPreset(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())

	_, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   store.NewID(),
		PresetID: "cage-match",
		ClientID: "198.51.100.1",
	})
	if rej == nil || rej.Status != http.StatusNotFound {
		t.Fatalf("rejection = %+v, want 404", rej)
	}
}

func TestValidateCompletedBoutConflicts(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())
	boutID := store.NewID()
	insertRunningBout(t, e.store, boutID, nil)
	if err := e.store.UpdateBoutCompleted(context.Background(), boutID, nil, nil); err != nil {
		t.Fatalf("UpdateBoutCompleted: %v", err)
	}

	_, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   boutID,
		PresetID: "roast-battle",
		ClientID: "198.51.100.1",
	})
	if rej == nil || rej.Status != http.StatusConflict {
		t.Fatalf("rejection = %+v, want 409", rej)
	}
}

func TestValidateRunningBoutWithTranscriptConflicts(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())
	boutID := store.NewID()
	insertRunningBout(t, e.store, boutID, nil)
	if _, err := e.store.Pool.Exec(context.Background(), `
		UPDATE bouts SET transcript = '[{"turn":0,"agentId":"a","agentName":"A","text":"hi"}]'::jsonb
		WHERE id = $1
	`, boutID); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}

	_, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   boutID,
		PresetID: "roast-battle",
		ClientID: "198.51.100.1",
	})
	if rej == nil || rej.Status != http.StatusConflict {
		t.Fatalf("rejection = %+v, want 409", rej)
	}
}

func TestValidateErroredBoutRetries(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())
	userID := store.NewID()
	boutID := store.NewID()
	insertRunningBout(t, e.store, boutID, &userID)
	if err := e.store.UpdateBoutError(context.Background(), boutID, []store.TranscriptEntry{
		{Turn: 0, AgentID: "roaster-red", AgentName: "Ember", Text: "partial"},
	}); err != nil {
		t.Fatalf("UpdateBoutError: %v", err)
	}

	// Retry without a presetId: the persisted row supplies it.
	ec, rej := e.svc.Validate(context.Background(), Request{
		BoutID: boutID,
		UserID: userID,
	})
	if rej != nil {
		t.Fatalf("rejection = %+v, want retry accepted", rej)
	}
	if ec.PresetID != "roast-battle" {
		t.Fatalf("PresetID = %q, want roast-battle", ec.PresetID)
	}

	b, err := e.store.GetBout(context.Background(), boutID)
	if err != nil {
		t.Fatalf("GetBout: %v", err)
	}
	if b.Status != store.BoutStatusRunning {
		t.Fatalf("status = %q, want running", b.Status)
	}
}

func TestValidateOwnershipMismatch(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())
	ownerID := store.NewID()
	boutID := store.NewID()
	insertRunningBout(t, e.store, boutID, &ownerID)

	_, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   boutID,
		PresetID: "roast-battle",
		UserID:   store.NewID(),
	})
	if rej == nil || rej.Status != http.StatusForbidden {
		t.Fatalf("rejection = %+v, want 403", rej)
	}

	// Anonymous callers cannot touch an owned bout either.
	_, rej = e.svc.Validate(context.Background(), Request{
		BoutID:   boutID,
		PresetID: "roast-battle",
		ClientID: "198.51.100.1",
	})
	if rej == nil || rej.Status != http.StatusForbidden {
		t.Fatalf("anonymous rejection = %+v, want 403", rej)
	}
}

func TestValidateAuthenticatedPreauthorizes(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())
	userID := store.NewID()

	ec, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   store.NewID(),
		PresetID: "roast-battle",
		UserID:   userID,
	})
	if rej != nil {
		t.Fatalf("rejection = %+v", rej)
	}
	if ec.Tier != gate.TierFree {
		t.Fatalf("tier = %q, want free", ec.Tier)
	}
	// Brand-new free account gets the first-bout promotion model.
	if ec.ModelID != model.FirstBoutPromotion {
		t.Fatalf("model = %q, want %q", ec.ModelID, model.FirstBoutPromotion)
	}

	wantPreauth := e.prices.ToMicro(e.prices.EstimateCostGBP(ec.Preset.MaxTurns, ec.ModelID, ec.Length.OutputTokensPerTurn))
	if ec.PreauthMicro != wantPreauth {
		t.Fatalf("PreauthMicro = %d, want %d", ec.PreauthMicro, wantPreauth)
	}
	if ec.PoolClaimedMicro != 0 {
		t.Fatalf("PoolClaimedMicro = %d, want 0", ec.PoolClaimedMicro)
	}

	balance, err := e.ledger.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 50000-wantPreauth {
		t.Fatalf("balance = %d, want %d", balance, 50000-wantPreauth)
	}
}

func TestValidateFirstBoutPromotionOnlyOnce(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())
	userID := store.NewID()

	ec, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   store.NewID(),
		PresetID: "roast-battle",
		UserID:   userID,
	})
	if rej != nil {
		t.Fatalf("first rejection = %+v", rej)
	}
	if ec.ModelID != model.FirstBoutPromotion {
		t.Fatalf("first model = %q, want promotion", ec.ModelID)
	}

	ec, rej = e.svc.Validate(context.Background(), Request{
		BoutID:   store.NewID(),
		PresetID: "roast-battle",
		UserID:   userID,
	})
	if rej != nil {
		t.Fatalf("second rejection = %+v", rej)
	}
	if ec.ModelID != model.DefaultFree {
		t.Fatalf("second model = %q, want %q", ec.ModelID, model.DefaultFree)
	}
}

func TestValidateExplicitPremiumModel(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())

	// Free tier covers the sonnet family.
	ec, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   store.NewID(),
		PresetID: "roast-battle",
		Model:    model.Sonnet,
		UserID:   store.NewID(),
	})
	if rej != nil {
		t.Fatalf("rejection = %+v", rej)
	}
	if ec.ModelID != model.Sonnet {
		t.Fatalf("model = %q, want sonnet", ec.ModelID)
	}

	// Opus is out of reach for free.
	_, rej = e.svc.Validate(context.Background(), Request{
		BoutID:   store.NewID(),
		PresetID: "roast-battle",
		Model:    model.Opus,
		UserID:   store.NewID(),
	})
	if rej == nil || rej.Status != http.StatusPaymentRequired {
		t.Fatalf("rejection = %+v, want 402", rej)
	}
}

func TestValidateInsufficientCredits(t *testing.T) {
	e := newEnv(t, 10, 100000, baseServerConfig())

	_, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   store.NewID(),
		PresetID: "roast-battle",
		UserID:   store.NewID(),
	})
	if rej == nil || rej.Status != http.StatusPaymentRequired {
		t.Fatalf("rejection = %+v, want 402", rej)
	}
	if rej.Message != "Insufficient credits." {
		t.Fatalf("message = %q", rej.Message)
	}
}

func TestValidateAnonymousClaimsPool(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())

	ec, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   store.NewID(),
		PresetID: "roast-battle",
		ClientID: "198.51.100.1",
	})
	if rej != nil {
		t.Fatalf("rejection = %+v", rej)
	}
	if ec.Tier != gate.TierAnonymous {
		t.Fatalf("tier = %q, want anonymous", ec.Tier)
	}
	if ec.ModelID != model.DefaultFree {
		t.Fatalf("model = %q, want default", ec.ModelID)
	}
	if ec.PreauthMicro != 0 || ec.PoolClaimedMicro <= 0 {
		t.Fatalf("funding = preauth %d / pool %d, want pool-only", ec.PreauthMicro, ec.PoolClaimedMicro)
	}

	status, err := e.pool.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.ClaimedMicro != ec.PoolClaimedMicro {
		t.Fatalf("pool claimed = %d, want %d", status.ClaimedMicro, ec.PoolClaimedMicro)
	}
}

func TestValidateAnonymousPoolExhausted(t *testing.T) {
	e := newEnv(t, 50000, 10, baseServerConfig())

	_, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   store.NewID(),
		PresetID: "roast-battle",
		ClientID: "198.51.100.1",
	})
	if rej == nil || rej.Status != http.StatusUnauthorized {
		t.Fatalf("rejection = %+v, want 401", rej)
	}
}

func TestValidateAnonymousRateLimit(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())

	for i := 0; i < 2; i++ {
		_, rej := e.svc.Validate(context.Background(), Request{
			BoutID:   store.NewID(),
			PresetID: "roast-battle",
			ClientID: "198.51.100.77",
		})
		if rej != nil {
			t.Fatalf("request %d rejection = %+v", i+1, rej)
		}
	}

	_, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   store.NewID(),
		PresetID: "roast-battle",
		ClientID: "198.51.100.77",
	})
	if rej == nil || rej.Status != http.StatusTooManyRequests {
		t.Fatalf("rejection = %+v, want 429", rej)
	}
	if rej.RateLimit == nil {
		t.Fatal("429 should carry rate limit metadata")
	}
	if rej.RateLimit.Limit != 2 || rej.RateLimit.Tier != "anonymous" {
		t.Fatalf("rate info = %+v", rej.RateLimit)
	}
	if rej.RateLimit.ResetAt.IsZero() {
		t.Fatal("ResetAt should be set")
	}
}

func TestValidateByok(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())

	_, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   store.NewID(),
		PresetID: "roast-battle",
		Model:    model.Byok,
		UserID:   store.NewID(),
	})
	if rej == nil || rej.Status != http.StatusBadRequest {
		t.Fatalf("missing key rejection = %+v, want 400", rej)
	}

	ec, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   store.NewID(),
		PresetID: "roast-battle",
		Model:    model.Byok,
		UserID:   store.NewID(),
		ByokKey:  "sk-test-key",
	})
	if rej != nil {
		t.Fatalf("rejection = %+v", rej)
	}
	if ec.ModelID != model.Byok {
		t.Fatalf("model = %q, want byok", ec.ModelID)
	}
	// BYOK reserves nothing up front.
	if ec.PreauthMicro != 0 || ec.PoolClaimedMicro != 0 {
		t.Fatalf("funding = preauth %d / pool %d, want none", ec.PreauthMicro, ec.PoolClaimedMicro)
	}
}

func TestValidateExperimentRequiresResearchAccess(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())
	exp := &experiment.Config{ScriptedTurns: []experiment.ScriptedTurn{
		{Turn: 0, AgentIndex: 0, Content: "scripted"},
	}}

	_, rej := e.svc.Validate(context.Background(), Request{
		BoutID:     store.NewID(),
		PresetID:   "rea-baseline",
		Experiment: exp,
		UserID:     store.NewID(),
	})
	if rej == nil || rej.Status != http.StatusForbidden {
		t.Fatalf("rejection = %+v, want 403", rej)
	}
}

func TestValidateResearchBypass(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())

	ec, rej := e.svc.Validate(context.Background(), Request{
		BoutID:      store.NewID(),
		PresetID:    "rea-baseline",
		ResearchKey: "research-secret",
		Experiment: &experiment.Config{
			PromptInjections: []experiment.PromptInjection{
				{AfterTurn: 1, TargetAgentIndex: 0, Content: "hedge everything"},
			},
			ScriptedTurns: []experiment.ScriptedTurn{
				{Turn: 2, AgentIndex: 0, Content: "scripted"},
			},
		},
	})
	if rej != nil {
		t.Fatalf("rejection = %+v", rej)
	}
	if !ec.ResearchBypass {
		t.Fatal("ResearchBypass should be set")
	}
	if ec.Tier != gate.TierLab {
		t.Fatalf("tier = %q, want lab", ec.Tier)
	}
	// Research runs are never metered.
	if ec.PreauthMicro != 0 || ec.PoolClaimedMicro != 0 {
		t.Fatalf("funding = preauth %d / pool %d, want none", ec.PreauthMicro, ec.PoolClaimedMicro)
	}
	if ec.PromptHook == nil {
		t.Fatal("prompt hook should compile")
	}
	if _, ok := ec.ScriptedTurns[2]; !ok {
		t.Fatal("scripted turn should compile")
	}
}

func TestValidateResearchBypassRejectsBadExperiment(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())

	_, rej := e.svc.Validate(context.Background(), Request{
		BoutID:      store.NewID(),
		PresetID:    "rea-baseline",
		ResearchKey: "research-secret",
		Experiment: &experiment.Config{
			ScriptedTurns: []experiment.ScriptedTurn{
				{Turn: 99, AgentIndex: 0, Content: "scripted"},
			},
		},
	})
	if rej == nil || rej.Status != http.StatusBadRequest {
		t.Fatalf("rejection = %+v, want 400", rej)
	}
}

func TestValidateWrongResearchKeyIsNotBypass(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())

	_, rej := e.svc.Validate(context.Background(), Request{
		BoutID:      store.NewID(),
		PresetID:    "rea-baseline",
		ResearchKey: "wrong-secret",
		Experiment: &experiment.Config{
			ScriptedTurns: []experiment.ScriptedTurn{{Turn: 0, AgentIndex: 0, Content: "x"}},
		},
		ClientID: "198.51.100.1",
	})
	if rej == nil || rej.Status != http.StatusForbidden {
		t.Fatalf("rejection = %+v, want 403", rej)
	}
}

func TestValidateCreatesRunningBoutRow(t *testing.T) {
	e := newEnv(t, 50000, 100000, baseServerConfig())
	userID := store.NewID()
	boutID := store.NewID()

	_, rej := e.svc.Validate(context.Background(), Request{
		BoutID:   boutID,
		PresetID: "roast-battle",
		Topic:    "office coffee",
		UserID:   userID,
	})
	if rej != nil {
		t.Fatalf("rejection = %+v", rej)
	}

	b, err := e.store.GetBout(context.Background(), boutID)
	if err != nil {
		t.Fatalf("GetBout: %v", err)
	}
	if b.Status != store.BoutStatusRunning {
		t.Fatalf("status = %q, want running", b.Status)
	}
	if b.Topic != "office coffee" {
		t.Fatalf("topic = %q", b.Topic)
	}
	if b.OwnerID == nil || *b.OwnerID != userID {
		t.Fatalf("owner = %v, want %s", b.OwnerID, userID)
	}
}
