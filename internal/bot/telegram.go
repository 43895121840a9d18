package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"vibeguard/internal/domain"
	"vibeguard/internal/service"

	tele "gopkg.in/telebot.v3"
)

// Bot is the Telegram front end: ad-hoc vibe/price queries plus push
// alerts when the monitor advises an exit.
type Bot struct {
	bot         *tele.Bot
	alertChatID int64
	guard       *service.GuardService
	prices      *service.PriceService
}

func NewBot(token string, alertChatID int64, guard *service.GuardService, prices *service.PriceService) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	tb := &Bot{bot: b, alertChatID: alertChatID, guard: guard, prices: prices}
	tb.registerHandlers()
	return tb, nil
}

func (t *Bot) registerHandlers() {
	t.bot.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	t.bot.Handle("/vibe", func(c tele.Context) error {
		symbol, err := parseSymbol(c.Args(), "/vibe BTC")
		if err != nil {
			return c.Send(err.Error())
		}
		insights, err := t.guard.Insights(context.Background(), symbol, domain.WindowDaily)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching vibe for %s: %v", symbol, err))
		}
		msg := fmt.Sprintf(
			"%s vibe: %d/100 (%s)\nPrice: $%.2f\n24h Change: %.2f%%",
			symbol, insights.VibeScore, insights.Source,
			insights.Price.Price, insights.Price.PriceChange24h,
		)
		return c.Send(msg)
	})

	t.bot.Handle("/price", func(c tele.Context) error {
		symbol, err := parseSymbol(c.Args(), "/price BTC")
		if err != nil {
			return c.Send(err.Error())
		}
		price, err := t.prices.GetPrice(context.Background(), domain.CoinIDFor(symbol))
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching price for %s: %v", symbol, err))
		}
		msg := fmt.Sprintf(
			"%s\nPrice: $%.2f\n24h Change: %.2f%%\n24h Volume: $%.0f",
			symbol, price.Price, price.PriceChange24h, price.Volume24h,
		)
		return c.Send(msg)
	})
}

func parseSymbol(args []string, usage string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("Usage: %s\nSupported: %s", usage, strings.Join(domain.SupportedSymbols, ", "))
	}
	symbol := strings.ToUpper(args[0])
	if _, ok := domain.CoinGeckoID[symbol]; !ok {
		return "", fmt.Errorf("Unknown symbol: %s\nSupported: %s", symbol, strings.Join(domain.SupportedSymbols, ", "))
	}
	return symbol, nil
}

// NotifyExit pushes a monitor exit alert to the configured chat.
func (t *Bot) NotifyExit(sub domain.Subscription, analysis domain.RiskAnalysis) {
	if t.alertChatID == 0 {
		return
	}
	msg := fmt.Sprintf(
		"EXIT ADVISED\nToken: %s\nWallet: %s\nRisk: %d/100\nReason: %s\nModel: %s",
		sub.TokenSymbol, sub.UserAddress, analysis.RiskScore, analysis.Reason, analysis.AIModel,
	)
	if _, err := t.bot.Send(tele.ChatID(t.alertChatID), msg); err != nil {
		log.Printf("telegram exit alert failed: %v", err)
	}
}

func (t *Bot) Start() {
	log.Println("Telegram bot started")
	go t.bot.Start()
}

func (t *Bot) Stop() {
	t.bot.Stop()
}
