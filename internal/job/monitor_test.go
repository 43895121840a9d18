package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"vibeguard/internal/domain"
	"vibeguard/internal/service"

	"go.opentelemetry.io/otel/trace"
)

type storeStub struct {
	subs    []domain.Subscription
	listErr error
	txs     []domain.TxRecord
	txErr   error
}

func (s *storeStub) ListEnabledSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	return s.subs, s.listErr
}

func (s *storeStub) AppendTx(ctx context.Context, rec domain.TxRecord) error {
	if s.txErr != nil {
		return s.txErr
	}
	s.txs = append(s.txs, rec)
	return nil
}

type checkerStub struct {
	results map[string]*service.CheckResult
	errs    map[string]error
}

func (c checkerStub) Check(ctx context.Context, token, coinID string) (*service.CheckResult, error) {
	if err := c.errs[token]; err != nil {
		return nil, err
	}
	return c.results[token], nil
}

type swapperStub struct {
	result domain.SwapResult
	err    error
	calls  int
}

func (s *swapperStub) EmergencySwap(ctx context.Context, userAddress, tokenAddress, amount string) (domain.SwapResult, error) {
	s.calls++
	return s.result, s.err
}

type notifierStub struct {
	alerts []domain.Subscription
}

func (n *notifierStub) NotifyExit(sub domain.Subscription, analysis domain.RiskAnalysis) {
	n.alerts = append(n.alerts, sub)
}

func sub(user, symbol string, threshold int) domain.Subscription {
	return domain.Subscription{
		UserAddress:   user,
		TokenSymbol:   symbol,
		TokenID:       domain.CoinIDFor(symbol),
		TokenAddress:  "0x" + symbol,
		Amount:        "100",
		Enabled:       true,
		RiskThreshold: threshold,
	}
}

func checkResult(score int, shouldExit bool) *service.CheckResult {
	return &service.CheckResult{
		Analysis: domain.RiskAnalysis{RiskScore: score, ShouldExit: shouldExit, Reason: "r", AIModel: "m"},
	}
}

func newTestMonitor(store SubscriptionStore, guard PositionChecker, swapper service.SwapExecutor, notifier ExitNotifier) *Monitor {
	return NewMonitor(trace.NewNoopTracerProvider().Tracer("test"), store, guard, swapper, notifier, time.Minute)
}

func TestRunOnceAdvisesExits(t *testing.T) {
	t.Parallel()

	store := &storeStub{subs: []domain.Subscription{
		sub("0xa", "BTC", 80),
		sub("0xb", "ETH", 80),
		sub("0xc", "SOL", 95),
	}}
	checker := checkerStub{results: map[string]*service.CheckResult{
		"BTC": checkResult(85, true),  // above threshold, exit
		"ETH": checkResult(85, false), // model says hold
		"SOL": checkResult(85, true),  // below this subscriber's threshold
	}}
	notifier := &notifierStub{}

	result := newTestMonitor(store, checker, nil, notifier).RunOnce(context.Background())
	if result.Checked != 3 {
		t.Fatalf("expected 3 checked, got %d", result.Checked)
	}
	if result.ExitsAdvised != 1 {
		t.Fatalf("expected 1 exit advised, got %d", result.ExitsAdvised)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(notifier.alerts) != 1 || notifier.alerts[0].TokenSymbol != "BTC" {
		t.Fatalf("unexpected alerts: %+v", notifier.alerts)
	}
	if len(store.txs) != 0 {
		t.Fatal("no swap executor, no tx records")
	}
}

func TestRunOnceCollectsPerSubscriptionErrors(t *testing.T) {
	t.Parallel()

	store := &storeStub{subs: []domain.Subscription{
		sub("0xa", "BTC", 80),
		sub("0xb", "ETH", 80),
	}}
	checker := checkerStub{
		results: map[string]*service.CheckResult{"ETH": checkResult(10, false)},
		errs:    map[string]error{"BTC": errors.New("price feed down")},
	}

	result := newTestMonitor(store, checker, nil, nil).RunOnce(context.Background())
	if result.Checked != 2 {
		t.Fatalf("expected 2 checked, got %d", result.Checked)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", result.Errors)
	}
}

func TestRunOnceListFailure(t *testing.T) {
	t.Parallel()

	store := &storeStub{listErr: errors.New("db down")}
	result := newTestMonitor(store, checkerStub{}, nil, nil).RunOnce(context.Background())
	if result.Checked != 0 || len(result.Errors) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRunOnceExecutesSwapAndRecordsTx(t *testing.T) {
	t.Parallel()

	store := &storeStub{subs: []domain.Subscription{sub("0xa", "BTC", 50)}}
	checker := checkerStub{results: map[string]*service.CheckResult{"BTC": checkResult(90, true)}}
	swapper := &swapperStub{result: domain.SwapResult{Success: true, TxHash: "0xdeadbeef"}}

	result := newTestMonitor(store, checker, swapper, nil).RunOnce(context.Background())
	if result.ExitsAdvised != 1 {
		t.Fatalf("expected 1 exit, got %d", result.ExitsAdvised)
	}
	if swapper.calls != 1 {
		t.Fatalf("expected 1 swap, got %d", swapper.calls)
	}
	if len(store.txs) != 1 || store.txs[0].TxHash != "0xdeadbeef" || store.txs[0].Source != "monitor" {
		t.Fatalf("unexpected tx records: %+v", store.txs)
	}
}

func TestRunOnceSwapFailureIsRecordedAsError(t *testing.T) {
	t.Parallel()

	store := &storeStub{subs: []domain.Subscription{sub("0xa", "BTC", 50)}}
	checker := checkerStub{results: map[string]*service.CheckResult{"BTC": checkResult(90, true)}}
	swapper := &swapperStub{result: domain.SwapResult{Success: false, Error: "slippage"}}

	result := newTestMonitor(store, checker, swapper, nil).RunOnce(context.Background())
	if result.ExitsAdvised != 1 {
		t.Fatalf("exit is still advised, got %d", result.ExitsAdvised)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected swap error collected, got %v", result.Errors)
	}
	if len(store.txs) != 0 {
		t.Fatal("failed swap must not record a tx")
	}
}
