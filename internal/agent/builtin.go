package agent

import (
	"context"
	"fmt"
)

// Встроенные агенты.
//
// Это референсные реализации торговых агентов: детерминированные,
// без внешних зависимостей. В продакшене вместо них регистрируются
// handlers, вызывающие реальные стратегии.

// registerBuiltins регистрирует встроенные агенты.
func registerBuiltins(r *Registry) {
	r.Register(Info{
		Type:        "market",
		Description: "Analyzes market conditions for a set of symbols",
		ConfigSchema: map[string]any{
			"symbols":        "list of symbols to analyze",
			"analysis_depth": "quick | standard | deep (default: standard)",
		},
	}, HandlerFunc(runMarketAnalysis))

	r.Register(Info{
		Type:        "sentiment",
		Description: "Aggregates market sentiment from news and social sources",
		ConfigSchema: map[string]any{
			"sources":  "list of sources to scan",
			"keywords": "list of keywords to track",
		},
	}, HandlerFunc(runSentimentAnalysis))

	r.Register(Info{
		Type:        "trading",
		Description: "Executes a trading strategy and produces a signal",
		ConfigSchema: map[string]any{
			"symbol":    "trading pair symbol, e.g. BTC/USD (required)",
			"strategy":  "momentum | mean_reversion | breakout (default: momentum)",
			"timeframe": "chart timeframe, e.g. 1h, 4h, 1d (default: 1h)",
		},
	}, HandlerFunc(runTradingStrategy))

	r.Register(Info{
		Type:        "risk",
		Description: "Calculates position sizing and risk limits",
		ConfigSchema: map[string]any{
			"max_position_size": "max position in USD (default: 10000)",
			"stop_loss_pct":     "stop loss percent (default: 2.0)",
			"take_profit_pct":   "take profit percent (default: 5.0)",
		},
	}, HandlerFunc(runRiskManagement))

	r.Register(Info{
		Type:        "portfolio",
		Description: "Optimizes portfolio allocation across assets",
		ConfigSchema: map[string]any{
			"total_capital":       "total capital in USD (required)",
			"optimization_method": "risk_parity | equal_weight (default: risk_parity)",
		},
	}, HandlerFunc(runPortfolioOptimizer))
}

// runMarketAnalysis — анализ рыночных условий.
func runMarketAnalysis(ctx context.Context, config map[string]any, inputs map[string]map[string]any) (map[string]any, error) {
	symbols := stringListValue(config, "symbols", []string{"BTC/USD", "ETH/USD"})
	depth := stringValue(config, "analysis_depth", "standard")

	Logf(ctx, "info", "analyzing %d symbols, depth=%s", len(symbols), depth)

	return map[string]any{
		"status":           "success",
		"symbols":          symbols,
		"depth":            depth,
		"market_sentiment": "bullish",
		"volatility":       "moderate",
		"trend":            "upward",
	}, nil
}

// runSentimentAnalysis — агрегация настроений рынка.
func runSentimentAnalysis(ctx context.Context, config map[string]any, inputs map[string]map[string]any) (map[string]any, error) {
	sources := stringListValue(config, "sources", []string{"news", "twitter"})
	keywords := stringListValue(config, "keywords", []string{"bitcoin", "crypto"})

	Logf(ctx, "info", "scanning %d sources for %d keywords", len(sources), len(keywords))

	return map[string]any{
		"status":            "success",
		"sources":           sources,
		"keywords":          keywords,
		"overall_sentiment": "positive",
		"sentiment_score":   0.72,
		"trending_topics":   []string{"halving", "ETF", "adoption"},
	}, nil
}

// runTradingStrategy — торговая стратегия.
//
// Единственный обязательный параметр — symbol: без него
// агент возвращает предметную ошибку.
func runTradingStrategy(ctx context.Context, config map[string]any, inputs map[string]map[string]any) (map[string]any, error) {
	symbol := stringValue(config, "symbol", "")
	if symbol == "" {
		return nil, NewError("trading", "config field symbol is required", ErrMissingConfig)
	}

	strategy := stringValue(config, "strategy", "momentum")
	timeframe := stringValue(config, "timeframe", "1h")

	Logf(ctx, "info", "running %s strategy on %s (%s)", strategy, symbol, timeframe)

	// Сигнал может опираться на upstream анализ рынка, если он подключён.
	signal := "BUY"
	confidence := 0.85
	for _, out := range inputs {
		if s, ok := out["market_sentiment"].(string); ok && s == "bearish" {
			signal = "SELL"
			confidence = 0.60
			Logf(ctx, "warn", "bearish upstream sentiment, flipping signal to SELL")
		}
	}

	return map[string]any{
		"status":     "success",
		"symbol":     symbol,
		"strategy":   strategy,
		"timeframe":  timeframe,
		"signal":     signal,
		"confidence": confidence,
		"price":      42000.0,
	}, nil
}

// runRiskManagement — расчёт параметров риска.
func runRiskManagement(ctx context.Context, config map[string]any, inputs map[string]map[string]any) (map[string]any, error) {
	maxPosition := floatValue(config, "max_position_size", 10000)
	stopLoss := floatValue(config, "stop_loss_pct", 2.0)
	takeProfit := floatValue(config, "take_profit_pct", 5.0)

	if stopLoss <= 0 {
		return nil, NewError("risk", fmt.Sprintf("stop_loss_pct must be positive, got %v", stopLoss), nil)
	}

	Logf(ctx, "info", "max_position=%.0f stop_loss=%.1f%% take_profit=%.1f%%", maxPosition, stopLoss, takeProfit)

	return map[string]any{
		"status":            "success",
		"max_position":      maxPosition,
		"stop_loss":         stopLoss,
		"take_profit":       takeProfit,
		"risk_reward_ratio": takeProfit / stopLoss,
	}, nil
}

// runPortfolioOptimizer — оптимизация распределения портфеля.
func runPortfolioOptimizer(ctx context.Context, config map[string]any, inputs map[string]map[string]any) (map[string]any, error) {
	capital := floatValue(config, "total_capital", 0)
	if capital <= 0 {
		return nil, NewError("portfolio", "config field total_capital is required", ErrMissingConfig)
	}

	method := stringValue(config, "optimization_method", "risk_parity")

	Logf(ctx, "info", "optimizing %.0f USD with method=%s", capital, method)

	return map[string]any{
		"status":        "success",
		"total_capital": capital,
		"method":        method,
		"allocations": map[string]any{
			"BTC":  0.40,
			"ETH":  0.30,
			"SOL":  0.20,
			"CASH": 0.10,
		},
	}, nil
}

// --- Хелперы чтения конфигурации ---

// stringValue читает строковое поле конфигурации.
func stringValue(config map[string]any, key, def string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return def
}

// floatValue читает числовое поле конфигурации.
// JSON числа декодируются в float64, но int тоже принимается.
func floatValue(config map[string]any, key string, def float64) float64 {
	switch v := config[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// stringListValue читает список строк из конфигурации.
func stringListValue(config map[string]any, key string, def []string) []string {
	raw, ok := config[key].([]any)
	if !ok {
		return def
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
