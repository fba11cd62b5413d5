package bout

import (
	"context"
	"sync"
	"testing"

	"thepit/internal/config"
	"thepit/internal/credit"
	"thepit/internal/gate"
	"thepit/internal/intropool"
	"thepit/internal/llm"
	"thepit/internal/model"
	"thepit/internal/preset"
	"thepit/internal/ratelimit"
	"thepit/internal/store"
	"thepit/internal/testutil"
)

// fakeClient is a scriptable llm.Client. respond gets the 1-based call
// number so tests can fail a specific turn.
type fakeClient struct {
	mu      sync.Mutex
	calls   []llm.Request
	respond func(call int, req llm.Request, onDelta func(string)) (llm.Usage, error)
}

func (f *fakeClient) Stream(ctx context.Context, req llm.Request, onDelta func(text string)) (llm.Usage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	call := len(f.calls)
	f.mu.Unlock()
	return f.respond(call, req, onDelta)
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) call(i int) llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

// defaultRespond emits two deltas per turn with fixed usage, and a
// quoted share line for the share call.
func defaultRespond(call int, req llm.Request, onDelta func(string)) (llm.Usage, error) {
	if req.MaxTokens == shareLineMaxTokens {
		onDelta(`"one for the group chat"`)
		return llm.Usage{}, nil
	}
	onDelta("Hello ")
	onDelta("world")
	return llm.Usage{InputTokens: 10, OutputTokens: 5}, nil
}

func baseServerConfig() config.ServerConfig {
	return config.ServerConfig{
		SubscriptionsEnabled: true,
		CreditsEnabled:       true,
		ByokEnabled:          true,
		ResearchAPIKey:       "research-secret",
	}
}

type env struct {
	svc    *Service
	store  *store.Store
	ledger *credit.Ledger
	pool   *intropool.Pool
	prices *credit.PriceTable
	client *fakeClient
}

func newEnv(t *testing.T, startingMicro, poolMicro int64, cfg config.ServerConfig) *env {
	t.Helper()
	st, cleanup := testutil.OpenTestStore(t)
	t.Cleanup(cleanup)

	prices := credit.NewPriceTable(config.CreditsConfig{
		CreditValueGBP:      0.01,
		PlatformMargin:      0.10,
		OutputTokensPerTurn: 120,
		InputFactor:         5.5,
		TokenCharsPer:       4,
		ByokFeeGBPPer1K:     0.0002,
		ByokMinGBP:          0.001,
	})
	ledger := credit.NewLedger(st, startingMicro)
	pool := intropool.New(st)
	if err := pool.Seed(context.Background(), poolMicro, 4320); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	client := &fakeClient{respond: defaultRespond}
	svc := NewService(st, ledger, pool, gate.New(st, cfg), ratelimit.New(), preset.NewRegistry(), client, prices, cfg)
	return &env{svc: svc, store: st, ledger: ledger, pool: pool, prices: prices, client: client}
}

// insertRunningBout seeds the row Execute expects to update.
func insertRunningBout(t *testing.T, st *store.Store, id string, ownerID *string) {
	t.Helper()
	if err := st.InsertBoutRunning(context.Background(), store.InsertBoutParams{
		ID:             id,
		PresetID:       "roast-battle",
		ResponseLength: "standard",
		ResponseFormat: "debate",
		OwnerID:        ownerID,
	}); err != nil {
		t.Fatalf("InsertBoutRunning: %v", err)
	}
}

func roastBattleContext(t *testing.T, boutID string) *ExecContext {
	t.Helper()
	p, ok := preset.NewRegistry().ByID("roast-battle")
	if !ok {
		t.Fatal("roast-battle preset missing")
	}
	return &ExecContext{
		BoutID:   boutID,
		PresetID: p.ID,
		Preset:   p,
		Topic:    "office coffee",
		Length:   preset.ResolveResponseLength("standard"),
		Format:   preset.ResolveResponseFormat("debate"),
		ModelID:  model.DefaultFree,
	}
}
