package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigsValidate(t *testing.T) {
	assert.NoError(t, DefaultMomentumConfig().Validate())
	assert.NoError(t, DefaultMeanReversionConfig().Validate())
	assert.NoError(t, DefaultStraddleConfig().Validate())
	assert.NoError(t, DefaultRegimeAdaptiveConfig().Validate())
}

func TestConfigValidationFailsConstruction(t *testing.T) {
	mom := DefaultMomentumConfig()
	mom.ATRMultiplierStop = 0
	_, err := NewMomentumBreakout("m", mom)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	mr := DefaultMeanReversionConfig()
	mr.RSIOversold, mr.RSIOverbought = 80, 20
	_, err = NewMeanReversion("mr", mr)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	st := DefaultStraddleConfig()
	st.MaxRiskPct = 2
	_, err = NewStraddle("s", st)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	ra := DefaultRegimeAdaptiveConfig()
	ra.ReducedSizeFactor = 0
	_, err = NewRegimeAdaptive("r", ra)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestExecutionParamsValidate(t *testing.T) {
	base := ExecutionParams{TickSize: 0.05, MinQty: 1, Precision: 2}
	require.NoError(t, base.validate())

	cases := map[string]func(p *ExecutionParams){
		"tick":      func(p *ExecutionParams) { p.TickSize = 0 },
		"slippage":  func(p *ExecutionParams) { p.SlippageTicks = -1 },
		"fee":       func(p *ExecutionParams) { p.Commission = -1 },
		"minQty":    func(p *ExecutionParams) { p.MinQty = 0 },
		"maxQty":    func(p *ExecutionParams) { p.MaxQty = 1; p.MinQty = 2 },
		"precision": func(p *ExecutionParams) { p.Precision = 9 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := base
			mutate(&p)
			assert.ErrorIs(t, p.validate(), ErrInvalidConfig)
		})
	}
}

func TestMeanReversionTimeout(t *testing.T) {
	cfg := DefaultMeanReversionConfig()
	cfg.TimeoutSecs = 1.5
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout())
}

func TestStrategyFactory(t *testing.T) {
	f := NewStrategyFactory()

	s, err := f.CreateStrategy("momentum_breakout", "momo", nil)
	require.NoError(t, err)
	assert.Equal(t, KindMomentumBreakout, s.Kind())
	assert.Equal(t, "momo", s.Name())

	cfg := DefaultMeanReversionConfig()
	cfg.TimeoutSecs = 3
	s, err = f.CreateStrategy("mean_reversion_vwap", "mr", &cfg)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, s.(*MeanReversion).Config().Timeout())

	s, err = f.CreateStrategy("options_straddle_vol", "", DefaultStraddleConfig())
	require.NoError(t, err)
	assert.Equal(t, "options_straddle_vol", s.Name())

	_, err = f.CreateStrategy("regime_adaptive", "r", DefaultMomentumConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = f.CreateStrategy("grid", "g", nil)
	assert.ErrorIs(t, err, ErrUnknownKind)

	bad := DefaultRegimeAdaptiveConfig()
	bad.MAWindow = 1
	_, err = f.CreateStrategy("regime_adaptive", "r", bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDefaultParamsPointers(t *testing.T) {
	for _, k := range []Kind{KindMomentumBreakout, KindMeanReversion, KindStraddle, KindRegimeAdaptive} {
		p, err := DefaultParams(k)
		require.NoError(t, err)
		v, ok := p.(interface{ Validate() error })
		require.True(t, ok, string(k))
		assert.NoError(t, v.Validate())
	}
	_, err := DefaultParams("nope")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
