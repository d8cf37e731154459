package strategy

import (
	"fmt"
	"time"

	"strategy-sandbox/execution"
	"strategy-sandbox/order"
)

// ExecutionParams 是各策略共用的合约/执行参数。
type ExecutionParams struct {
	TickSize      float64 `yaml:"tickSize"`
	SlippageTicks float64 `yaml:"slippageTicks"`
	Commission    float64 `yaml:"commission"`
	MinQty        int64   `yaml:"minQty"`
	MaxQty        int64   `yaml:"maxQty"` // 0 表示不限
	Precision     int     `yaml:"precision"`
}

func (p ExecutionParams) validate() error {
	if p.TickSize <= 0 {
		return fmt.Errorf("%w: tickSize must be > 0", ErrInvalidConfig)
	}
	if p.SlippageTicks < 0 {
		return fmt.Errorf("%w: slippageTicks must be >= 0", ErrInvalidConfig)
	}
	if p.Commission < 0 {
		return fmt.Errorf("%w: commission must be >= 0", ErrInvalidConfig)
	}
	if p.MinQty < 1 {
		return fmt.Errorf("%w: minQty must be >= 1", ErrInvalidConfig)
	}
	if p.MaxQty != 0 && p.MaxQty < p.MinQty {
		return fmt.Errorf("%w: maxQty %d < minQty %d", ErrInvalidConfig, p.MaxQty, p.MinQty)
	}
	if p.Precision < 0 || p.Precision > 8 {
		return fmt.Errorf("%w: precision must be within [0,8]", ErrInvalidConfig)
	}
	return nil
}

// Simulator returns the execution model for these params.
func (p ExecutionParams) Simulator() execution.Simulator {
	return execution.Simulator{
		TickSize:      p.TickSize,
		SlippageTicks: p.SlippageTicks,
		Precision:     p.Precision,
		Commission:    p.Commission,
	}
}

// Constraints 转换成订单簿的数量约束。
func (p ExecutionParams) Constraints() order.SymbolConstraints {
	return order.SymbolConstraints{MinQty: p.MinQty, MaxQty: p.MaxQty}
}

// MomentumConfig 动量突破参数
type MomentumConfig struct {
	ATRPeriod             int     `yaml:"atrPeriod"`
	ATRMultiplierStop     float64 `yaml:"atrMultiplierStop"`
	VolumeSurgeMultiplier float64 `yaml:"volumeSurgeMultiplier"`
	VolumeWindow          int     `yaml:"volumeWindow"`
	BreakoutLookback      int     `yaml:"breakoutLookback"`
	RiskPerTradePct       float64 `yaml:"riskPerTradePct"`
	FallbackStopDistance  float64 `yaml:"fallbackStopDistance"`
	ExecutionParams       `yaml:",inline"`
}

func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		ATRPeriod:             14,
		ATRMultiplierStop:     1.5,
		VolumeSurgeMultiplier: 1.0,
		VolumeWindow:          20,
		BreakoutLookback:      5,
		RiskPerTradePct:       0.01,
		FallbackStopDistance:  10,
		ExecutionParams: ExecutionParams{
			TickSize: 0.05, SlippageTicks: 1, Commission: 40, MinQty: 1, Precision: execution.DefaultPrecision,
		},
	}
}

func (c MomentumConfig) Validate() error {
	switch {
	case c.ATRPeriod < 1:
		return fmt.Errorf("%w: atrPeriod must be >= 1", ErrInvalidConfig)
	case c.ATRMultiplierStop <= 0:
		return fmt.Errorf("%w: atrMultiplierStop must be > 0", ErrInvalidConfig)
	case c.VolumeSurgeMultiplier < 0:
		return fmt.Errorf("%w: volumeSurgeMultiplier must be >= 0", ErrInvalidConfig)
	case c.VolumeWindow < 1:
		return fmt.Errorf("%w: volumeWindow must be >= 1", ErrInvalidConfig)
	case c.BreakoutLookback < 1:
		return fmt.Errorf("%w: breakoutLookback must be >= 1", ErrInvalidConfig)
	case c.RiskPerTradePct <= 0 || c.RiskPerTradePct > 1:
		return fmt.Errorf("%w: riskPerTradePct must be within (0,1]", ErrInvalidConfig)
	case c.FallbackStopDistance <= 0:
		return fmt.Errorf("%w: fallbackStopDistance must be > 0", ErrInvalidConfig)
	}
	return c.ExecutionParams.validate()
}

// MeanReversionConfig VWAP/RSI 均值回归参数
type MeanReversionConfig struct {
	RSIPeriod        int     `yaml:"rsiPeriod"`
	RSIOversold      float64 `yaml:"rsiOversold"`
	RSIOverbought    float64 `yaml:"rsiOverbought"`
	VWAPLookback     int     `yaml:"vwapLookback"`
	DeviationPct     float64 `yaml:"deviationPct"`
	LimitOffsetTicks float64 `yaml:"limitOffsetTicks"`
	TimeoutSecs      float64 `yaml:"timeoutSecs"`
	// RiskPerTradePct > 0 时按 ATR 止损计算数量，否则固定 MinQty。
	RiskPerTradePct   float64 `yaml:"riskPerTradePct"`
	ATRPeriod         int     `yaml:"atrPeriod"`
	ATRMultiplierStop float64 `yaml:"atrMultiplierStop"`
	// ATR 为 0 时的止损距离
	FallbackStopDistance float64 `yaml:"fallbackStopDistance"`
	ExecutionParams      `yaml:",inline"`
}

func DefaultMeanReversionConfig() MeanReversionConfig {
	return MeanReversionConfig{
		RSIPeriod:            14,
		RSIOversold:          30,
		RSIOverbought:        70,
		VWAPLookback:         60,
		DeviationPct:         0.002,
		LimitOffsetTicks:     2,
		TimeoutSecs:          10,
		ATRPeriod:            14,
		ATRMultiplierStop:    1.5,
		FallbackStopDistance: 10,
		ExecutionParams: ExecutionParams{
			TickSize: 0.05, Commission: 30, MinQty: 1, Precision: execution.DefaultPrecision,
		},
	}
}

// Timeout 限价单等待时长。
func (c MeanReversionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs * float64(time.Second))
}

func (c MeanReversionConfig) Validate() error {
	switch {
	case c.RSIPeriod < 1:
		return fmt.Errorf("%w: rsiPeriod must be >= 1", ErrInvalidConfig)
	case c.RSIOversold < 0 || c.RSIOverbought > 100 || c.RSIOversold >= c.RSIOverbought:
		return fmt.Errorf("%w: need 0 <= rsiOversold < rsiOverbought <= 100", ErrInvalidConfig)
	case c.VWAPLookback < 1:
		return fmt.Errorf("%w: vwapLookback must be >= 1", ErrInvalidConfig)
	case c.DeviationPct <= 0:
		return fmt.Errorf("%w: deviationPct must be > 0", ErrInvalidConfig)
	case c.LimitOffsetTicks < 0:
		return fmt.Errorf("%w: limitOffsetTicks must be >= 0", ErrInvalidConfig)
	case c.TimeoutSecs <= 0:
		return fmt.Errorf("%w: timeoutSecs must be > 0", ErrInvalidConfig)
	case c.RiskPerTradePct < 0 || c.RiskPerTradePct > 1:
		return fmt.Errorf("%w: riskPerTradePct must be within [0,1]", ErrInvalidConfig)
	case c.RiskPerTradePct > 0 && (c.ATRPeriod < 1 || c.ATRMultiplierStop <= 0):
		return fmt.Errorf("%w: risk sizing needs atrPeriod >= 1 and atrMultiplierStop > 0", ErrInvalidConfig)
	case c.RiskPerTradePct > 0 && c.FallbackStopDistance <= 0:
		return fmt.Errorf("%w: fallbackStopDistance must be > 0", ErrInvalidConfig)
	}
	return c.ExecutionParams.validate()
}

// StraddleConfig 波动率跨式参数
type StraddleConfig struct {
	IVRankThreshold     float64 `yaml:"ivRankThreshold"`
	LookbackIVDays      int     `yaml:"lookbackIVDays"`
	DaysToExpiryTarget  float64 `yaml:"daysToExpiryTarget"`
	ExpiryToleranceDays float64 `yaml:"expiryToleranceDays"`
	MaxRiskPct          float64 `yaml:"maxRiskPct"`
	ExecutionParams     `yaml:",inline"`
}

func DefaultStraddleConfig() StraddleConfig {
	return StraddleConfig{
		IVRankThreshold:     50,
		LookbackIVDays:      90,
		DaysToExpiryTarget:  10,
		ExpiryToleranceDays: 2,
		MaxRiskPct:          0.02,
		ExecutionParams: ExecutionParams{
			TickSize: 0.05, SlippageTicks: 2, Commission: 60, MinQty: 1, Precision: execution.DefaultPrecision,
		},
	}
}

func (c StraddleConfig) Validate() error {
	switch {
	case c.IVRankThreshold < 0 || c.IVRankThreshold > 100:
		return fmt.Errorf("%w: ivRankThreshold must be within [0,100]", ErrInvalidConfig)
	case c.LookbackIVDays < 0:
		return fmt.Errorf("%w: lookbackIVDays must be >= 0", ErrInvalidConfig)
	case c.DaysToExpiryTarget <= 0:
		return fmt.Errorf("%w: daysToExpiryTarget must be > 0", ErrInvalidConfig)
	case c.ExpiryToleranceDays < 0:
		return fmt.Errorf("%w: expiryToleranceDays must be >= 0", ErrInvalidConfig)
	case c.MaxRiskPct <= 0 || c.MaxRiskPct > 1:
		return fmt.Errorf("%w: maxRiskPct must be within (0,1]", ErrInvalidConfig)
	}
	return c.ExecutionParams.validate()
}

// RegimeAdaptiveConfig 状态自适应参数
type RegimeAdaptiveConfig struct {
	VolHighThreshold         float64 `yaml:"volHighThreshold"`
	LiquiditySpreadThreshold float64 `yaml:"liquiditySpreadThreshold"`
	BaseSize                 int64   `yaml:"baseSize"`
	ReducedSizeFactor        float64 `yaml:"reducedSizeFactor"`
	SlippageTicksHighVol     float64 `yaml:"slippageTicksHighVol"`
	SlippageTicksLowVol      float64 `yaml:"slippageTicksLowVol"`
	ATRPeriod                int     `yaml:"atrPeriod"`
	LongATRWindow            int     `yaml:"longATRWindow"`
	MAWindow                 int     `yaml:"maWindow"`
	MeanRevertBandPct        float64 `yaml:"meanRevertBandPct"`
	BreakoutLookback         int     `yaml:"breakoutLookback"`
	ExecutionParams          `yaml:",inline"`
}

func DefaultRegimeAdaptiveConfig() RegimeAdaptiveConfig {
	return RegimeAdaptiveConfig{
		VolHighThreshold:         1.5,
		LiquiditySpreadThreshold: 0.5,
		BaseSize:                 1,
		ReducedSizeFactor:        0.4,
		SlippageTicksHighVol:     2.0,
		SlippageTicksLowVol:      0.8,
		ATRPeriod:                14,
		LongATRWindow:            50,
		MAWindow:                 20,
		MeanRevertBandPct:        0.004,
		BreakoutLookback:         5,
		ExecutionParams: ExecutionParams{
			TickSize: 0.05, Commission: 40, MinQty: 1, Precision: execution.DefaultPrecision,
		},
	}
}

func (c RegimeAdaptiveConfig) Validate() error {
	switch {
	case c.VolHighThreshold <= 0:
		return fmt.Errorf("%w: volHighThreshold must be > 0", ErrInvalidConfig)
	case c.LiquiditySpreadThreshold < 0:
		return fmt.Errorf("%w: liquiditySpreadThreshold must be >= 0", ErrInvalidConfig)
	case c.BaseSize < 1:
		return fmt.Errorf("%w: baseSize must be >= 1", ErrInvalidConfig)
	case c.ReducedSizeFactor <= 0 || c.ReducedSizeFactor > 1:
		return fmt.Errorf("%w: reducedSizeFactor must be within (0,1]", ErrInvalidConfig)
	case c.SlippageTicksHighVol < 0 || c.SlippageTicksLowVol < 0:
		return fmt.Errorf("%w: slippage ticks must be >= 0", ErrInvalidConfig)
	case c.ATRPeriod < 1 || c.LongATRWindow < 1:
		return fmt.Errorf("%w: atrPeriod and longATRWindow must be >= 1", ErrInvalidConfig)
	case c.MAWindow < 2:
		return fmt.Errorf("%w: maWindow must be >= 2", ErrInvalidConfig)
	case c.MeanRevertBandPct < 0:
		return fmt.Errorf("%w: meanRevertBandPct must be >= 0", ErrInvalidConfig)
	case c.BreakoutLookback < 1:
		return fmt.Errorf("%w: breakoutLookback must be >= 1", ErrInvalidConfig)
	}
	return c.ExecutionParams.validate()
}
