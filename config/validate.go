package config

import (
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"

	"strategy-sandbox/strategy"
)

// Validate ensures required fields are present and every strategy's typed
// params pass their own validation.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); cfg.Log.Level != "" && err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if cfg.Venue.InitialBalance <= 0 {
		return errors.New("venue.initialBalance must be > 0")
	}
	if cfg.Replay.Bars < 0 || cfg.Replay.IntervalSecs < 0 || cfg.Replay.Volatility < 0 {
		return errors.New("replay bars/intervalSecs/volatility must be >= 0")
	}
	if cfg.Replay.Bars > 0 && cfg.Replay.StartPrice <= 0 {
		return errors.New("replay.startPrice must be > 0")
	}

	names := make(map[string]bool, len(cfg.Strategies))
	for i, sc := range cfg.Strategies {
		if sc.Name == "" {
			return fmt.Errorf("strategies[%d].name is required", i)
		}
		if names[sc.Name] {
			return fmt.Errorf("duplicate strategy name %q", sc.Name)
		}
		names[sc.Name] = true
		if len(sc.Symbols) == 0 {
			return fmt.Errorf("strategy %s: symbols is required", sc.Name)
		}
		seen := make(map[string]bool, len(sc.Symbols))
		for _, sym := range sc.Symbols {
			if sym == "" || seen[sym] {
				return fmt.Errorf("strategy %s: empty or duplicate symbol %q", sc.Name, sym)
			}
			seen[sym] = true
		}
		l := sc.Limits
		if l.SingleMax < 0 || l.DailyMax < 0 || l.NetMax < 0 || l.MinIntervalMs < 0 ||
			l.MaxLoss < 0 || l.ShockPct1m < 0 || l.ShockPct5m < 0 {
			return fmt.Errorf("strategy %s: limits must be >= 0", sc.Name)
		}
		params, err := sc.TypedParams()
		if err != nil {
			return err
		}
		if v, ok := params.(interface{ Validate() error }); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("strategy %s: %w", sc.Name, err)
			}
		}
	}
	return nil
}

// Kinds 列出支持的策略类型。
func Kinds() []strategy.Kind {
	return []strategy.Kind{
		strategy.KindMomentumBreakout,
		strategy.KindMeanReversion,
		strategy.KindStraddle,
		strategy.KindRegimeAdaptive,
	}
}
