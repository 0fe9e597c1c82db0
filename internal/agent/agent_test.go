package agent

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry_Resolve(t *testing.T) {
	r := NewDefaultRegistry()

	for _, agentType := range []string{"market", "sentiment", "trading", "risk", "portfolio"} {
		h, err := r.Resolve(agentType)
		if err != nil {
			t.Errorf("Resolve(%q): unexpected error: %v", agentType, err)
		}
		if h == nil {
			t.Errorf("Resolve(%q): nil handler", agentType)
		}
	}
}

func TestRegistry_Resolve_Unknown(t *testing.T) {
	r := NewDefaultRegistry()

	_, err := r.Resolve("quantum")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistry_Register_Custom(t *testing.T) {
	r := NewRegistry()

	r.Register(Info{Type: "echo"}, HandlerFunc(
		func(ctx context.Context, config map[string]any, inputs map[string]map[string]any) (map[string]any, error) {
			return map[string]any{"echo": config["value"]}, nil
		},
	))

	h, err := r.Resolve("echo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := h.Invoke(context.Background(), map[string]any{"value": "hi"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["echo"] != "hi" {
		t.Errorf("expected echo=hi, got %v", out["echo"])
	}
}

func TestRegistry_Infos_Sorted(t *testing.T) {
	r := NewDefaultRegistry()

	infos := r.Infos()
	if len(infos) != 5 {
		t.Fatalf("expected 5 builtin agents, got %d", len(infos))
	}
	for i := 1; i < len(infos); i++ {
		if infos[i-1].Type >= infos[i].Type {
			t.Errorf("infos not sorted: %s >= %s", infos[i-1].Type, infos[i].Type)
		}
	}
}

func TestTradingAgent_RequiresSymbol(t *testing.T) {
	r := NewDefaultRegistry()
	h, _ := r.Resolve("trading")

	_, err := h.Invoke(context.Background(), map[string]any{}, nil)
	if err == nil {
		t.Fatal("expected error for missing symbol")
	}

	var agentErr *Error
	if !errors.As(err, &agentErr) {
		t.Fatalf("expected *agent.Error, got %T", err)
	}
	if !errors.Is(err, ErrMissingConfig) {
		t.Errorf("expected ErrMissingConfig, got %v", err)
	}
}

func TestTradingAgent_Signal(t *testing.T) {
	r := NewDefaultRegistry()
	h, _ := r.Resolve("trading")

	out, err := h.Invoke(context.Background(), map[string]any{"symbol": "BTC/USD"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["signal"] != "BUY" {
		t.Errorf("expected BUY signal, got %v", out["signal"])
	}

	// Медвежий upstream анализ переворачивает сигнал.
	inputs := map[string]map[string]any{
		"market-1": {"market_sentiment": "bearish"},
	}
	out, err = h.Invoke(context.Background(), map[string]any{"symbol": "BTC/USD"}, inputs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["signal"] != "SELL" {
		t.Errorf("expected SELL signal with bearish upstream, got %v", out["signal"])
	}
}

func TestRiskAgent_Defaults(t *testing.T) {
	r := NewDefaultRegistry()
	h, _ := r.Resolve("risk")

	out, err := h.Invoke(context.Background(), map[string]any{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["risk_reward_ratio"] != 2.5 {
		t.Errorf("expected risk_reward_ratio 2.5, got %v", out["risk_reward_ratio"])
	}
}

func TestLogSink(t *testing.T) {
	var got []string
	ctx := WithLogSink(context.Background(), func(level, message string) {
		got = append(got, level+": "+message)
	})

	Logf(ctx, "info", "hello %s", "world")
	Logf(context.Background(), "info", "dropped")

	if len(got) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(got))
	}
	if got[0] != "info: hello world" {
		t.Errorf("unexpected log line: %s", got[0])
	}
}
