package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"strategy-sandbox/infrastructure/logger"
	"strategy-sandbox/metrics"
	"strategy-sandbox/strategy"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env        string           `yaml:"env"`
	Log        logger.Config    `yaml:"log"`
	Metrics    metrics.Config   `yaml:"metrics"`
	Venue      VenueConfig      `yaml:"venue"`
	Replay     ReplayConfig     `yaml:"replay"`
	Strategies []StrategyConfig `yaml:"strategies"`
}

// VenueConfig 沙盒交易场所参数。
type VenueConfig struct {
	InitialBalance   float64 `yaml:"initialBalance"`
	FillMarketOrders bool    `yaml:"fillMarketOrders"`
	MatchLimitOrders bool    `yaml:"matchLimitOrders"`
	AsyncFills       bool    `yaml:"asyncFills"`
}

// ReplayConfig 控制命令行回放时生成的合成行情。
type ReplayConfig struct {
	Bars         int     `yaml:"bars"`
	StartPrice   float64 `yaml:"startPrice"`
	Volatility   float64 `yaml:"volatility"` // 每根 bar 收益率标准差
	IntervalSecs int64   `yaml:"intervalSecs"`
	Seed         int64   `yaml:"seed"`
	LotSize      int64   `yaml:"lotSize"`
}

// StrategyConfig 一个策略实例：同一参数作用于多个标的，每个标的一个 Context。
type StrategyConfig struct {
	Name    string       `yaml:"name"`
	Type    string       `yaml:"type"`
	Symbols []string     `yaml:"symbols"`
	Limits  LimitsConfig `yaml:"limits"`
	Params  yaml.Node    `yaml:"params"`
}

// LimitsConfig 下单前风控；0 表示不限制。
type LimitsConfig struct {
	SingleMax     int64 `yaml:"singleMax"`
	DailyMax      int64 `yaml:"dailyMax"`
	NetMax        int64 `yaml:"netMax"`
	MinIntervalMs int   `yaml:"minIntervalMs"`

	MaxLoss    float64 `yaml:"maxLoss"`    // 已实现净亏损上限
	ShockPct1m float64 `yaml:"shockPct1m"` // 1 分钟涨跌幅熔断
	ShockPct5m float64 `yaml:"shockPct5m"`
}

// Default 返回可直接运行的默认配置（不含策略）。
func Default() AppConfig {
	return AppConfig{
		Env:     "dev",
		Log:     logger.DefaultConfig(),
		Metrics: metrics.DefaultConfig(),
		Venue: VenueConfig{
			InitialBalance:   1_000_000,
			FillMarketOrders: true,
			MatchLimitOrders: true,
		},
		Replay: ReplayConfig{
			Bars:         500,
			StartPrice:   100,
			Volatility:   0.002,
			IntervalSecs: 60,
			Seed:         1,
			LotSize:      50,
		},
	}
}

// TypedParams decodes the params block over the defaults of the strategy
// type. Unknown keys are rejected.
func (sc StrategyConfig) TypedParams() (interface{}, error) {
	params, err := strategy.DefaultParams(strategy.Kind(sc.Type))
	if err != nil {
		return nil, err
	}
	if sc.Params.Kind == 0 {
		return params, nil
	}
	raw, err := yaml.Marshal(&sc.Params)
	if err != nil {
		return nil, fmt.Errorf("strategy %s params: %w", sc.Name, err)
	}
	if err := decodeStrict(raw, params); err != nil {
		return nil, fmt.Errorf("strategy %s params: %w", sc.Name, err)
	}
	return params, nil
}

// Load reads YAML config from path and applies validation.
func Load(path string) (AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse 解析 YAML，未知字段报错，缺省字段使用 Default()。
func Parse(raw []byte) (AppConfig, error) {
	cfg := Default()
	if err := decodeStrict(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then applies SANDBOX_* env overrides.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("SANDBOX_INITIAL_BALANCE"); v != "" {
		balance, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("SANDBOX_INITIAL_BALANCE: %w", err)
		}
		cfg.Venue.InitialBalance = balance
	}
	if v := os.Getenv("SANDBOX_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return cfg, Validate(cfg)
}

func decodeStrict(raw []byte, out interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
