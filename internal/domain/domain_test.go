package domain

import (
	"testing"
	"time"
)

func TestParseWindow(t *testing.T) {
	t.Parallel()

	cases := map[string]Window{
		"":      WindowDaily,
		"daily": WindowDaily,
		"1d":    WindowDaily,
		"4H":    Window4H,
		" 1h ":  Window1H,
		"15m":   Window15M,
	}
	for input, want := range cases {
		got, ok := ParseWindow(input)
		if !ok || got != want {
			t.Fatalf("ParseWindow(%q) = %q ok=%v, want %q", input, got, ok, want)
		}
	}

	if _, ok := ParseWindow("2W"); ok {
		t.Fatal("unknown window must not parse")
	}
}

func TestWindowDurationAndTimeType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		window   Window
		duration time.Duration
		timeType string
	}{
		{WindowDaily, 24 * time.Hour, "1D"},
		{Window4H, 4 * time.Hour, "4H"},
		{Window1H, time.Hour, "1H"},
		{Window15M, 15 * time.Minute, "15M"},
	}
	for _, tc := range cases {
		if tc.window.Duration() != tc.duration {
			t.Fatalf("%s: expected duration %v, got %v", tc.window, tc.duration, tc.window.Duration())
		}
		if tc.window.TimeType() != tc.timeType {
			t.Fatalf("%s: expected time type %s, got %s", tc.window, tc.timeType, tc.window.TimeType())
		}
	}
}

func TestCoinIDFor(t *testing.T) {
	t.Parallel()

	if CoinIDFor("btc") != "bitcoin" {
		t.Fatal("known symbol must map to its coin id")
	}
	if CoinIDFor(" SOL ") != "solana" {
		t.Fatal("symbol lookup must trim and uppercase")
	}
	if CoinIDFor("pepe-coin") != "pepe-coin" {
		t.Fatal("unknown symbols pass through as coin ids")
	}
}

func TestEnhancedSentimentIsZero(t *testing.T) {
	t.Parallel()

	var snap EnhancedSentiment
	snap.Token = "BTC"
	snap.Timestamp = time.Now()
	if !snap.IsZero() {
		t.Fatal("identity fields must not affect IsZero")
	}

	snap.Signals.PriceDislocation = 0.0001
	if snap.IsZero() {
		t.Fatal("any non-zero numeric field makes the snapshot non-zero")
	}
}
