package job

import (
	"context"
	"fmt"
	"log"
	"time"

	"vibeguard/internal/domain"
	"vibeguard/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type PositionChecker interface {
	Check(ctx context.Context, token, coinID string) (*service.CheckResult, error)
}

type SubscriptionStore interface {
	ListEnabledSubscriptions(ctx context.Context) ([]domain.Subscription, error)
	AppendTx(ctx context.Context, rec domain.TxRecord) error
}

// ExitNotifier pushes an alert when the monitor advises an exit.
type ExitNotifier interface {
	NotifyExit(sub domain.Subscription, analysis domain.RiskAnalysis)
}

// Monitor periodically re-checks every enabled subscription and advises
// (or, with a swap executor configured, performs) emergency exits.
type Monitor struct {
	tracer   trace.Tracer
	repo     SubscriptionStore
	guard    PositionChecker
	swapper  service.SwapExecutor
	notifier ExitNotifier
	interval time.Duration
}

func NewMonitor(tracer trace.Tracer, repo SubscriptionStore, guard PositionChecker, swapper service.SwapExecutor, notifier ExitNotifier, interval time.Duration) *Monitor {
	return &Monitor{
		tracer:   tracer,
		repo:     repo,
		guard:    guard,
		swapper:  swapper,
		notifier: notifier,
		interval: interval,
	}
}

// Start runs the monitor loop. Blocks until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	log.Printf("Guard monitor starting (every %s)...", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Guard monitor stopped")
			return
		case <-ticker.C:
			result := m.RunOnce(ctx)
			log.Printf("monitor pass: checked=%d exits=%d errors=%d",
				result.Checked, result.ExitsAdvised, len(result.Errors))
		}
	}
}

// RunOnce walks the enabled subscriptions sequentially. Per-subscription
// failures are collected, never fatal to the pass.
func (m *Monitor) RunOnce(ctx context.Context) domain.MonitorRunResult {
	ctx, span := m.tracer.Start(ctx, "monitor.run-once")
	defer span.End()

	var result domain.MonitorRunResult

	subs, err := m.repo.ListEnabledSubscriptions(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list subscriptions: %v", err))
		return result
	}

	for _, sub := range subs {
		result.Checked++
		check, err := m.guard.Check(ctx, sub.TokenSymbol, sub.TokenID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s/%s: %v", sub.UserAddress, sub.TokenSymbol, err))
			continue
		}

		analysis := check.Analysis
		if !analysis.ShouldExit || analysis.RiskScore < sub.RiskThreshold {
			continue
		}

		result.ExitsAdvised++
		log.Printf("exit advised for %s %s: risk=%d reason=%q",
			sub.UserAddress, sub.TokenSymbol, analysis.RiskScore, analysis.Reason)
		if m.notifier != nil {
			m.notifier.NotifyExit(sub, analysis)
		}
		if err := m.executeExit(ctx, sub); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s/%s exit: %v", sub.UserAddress, sub.TokenSymbol, err))
		}
	}

	span.SetAttributes(
		attribute.Int("monitor.checked", result.Checked),
		attribute.Int("monitor.exits_advised", result.ExitsAdvised),
	)
	return result
}

func (m *Monitor) executeExit(ctx context.Context, sub domain.Subscription) error {
	if m.swapper == nil {
		return nil
	}

	swap, err := m.swapper.EmergencySwap(ctx, sub.UserAddress, sub.TokenAddress, sub.Amount)
	if err != nil {
		return err
	}
	if !swap.Success {
		return fmt.Errorf("swap rejected: %s", swap.Error)
	}
	return m.repo.AppendTx(ctx, domain.TxRecord{
		UserAddress:  sub.UserAddress,
		TokenAddress: sub.TokenAddress,
		TxHash:       swap.TxHash,
		Source:       "monitor",
	})
}
