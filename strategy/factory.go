package strategy

import "fmt"

// StrategyFactory creates strategy instances based on configuration.
type StrategyFactory struct{}

// NewStrategyFactory creates a new StrategyFactory.
func NewStrategyFactory() *StrategyFactory {
	return &StrategyFactory{}
}

// DefaultParams returns a pointer to the default typed config of kind, ready
// to be decoded over.
func DefaultParams(kind Kind) (interface{}, error) {
	switch kind {
	case KindMomentumBreakout:
		cfg := DefaultMomentumConfig()
		return &cfg, nil
	case KindMeanReversion:
		cfg := DefaultMeanReversionConfig()
		return &cfg, nil
	case KindStraddle:
		cfg := DefaultStraddleConfig()
		return &cfg, nil
	case KindRegimeAdaptive:
		cfg := DefaultRegimeAdaptiveConfig()
		return &cfg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// CreateStrategy creates a strategy from its type and typed config (value or
// pointer). A nil config selects the defaults. Invalid configs fail here,
// never mid-run.
func (f *StrategyFactory) CreateStrategy(strategyType, name string, config interface{}) (Strategy, error) {
	kind := Kind(strategyType)
	if config == nil {
		def, err := DefaultParams(kind)
		if err != nil {
			return nil, err
		}
		config = def
	}

	switch kind {
	case KindMomentumBreakout:
		switch cfg := config.(type) {
		case MomentumConfig:
			return NewMomentumBreakout(name, cfg)
		case *MomentumConfig:
			return NewMomentumBreakout(name, *cfg)
		}
	case KindMeanReversion:
		switch cfg := config.(type) {
		case MeanReversionConfig:
			return NewMeanReversion(name, cfg)
		case *MeanReversionConfig:
			return NewMeanReversion(name, *cfg)
		}
	case KindStraddle:
		switch cfg := config.(type) {
		case StraddleConfig:
			return NewStraddle(name, cfg)
		case *StraddleConfig:
			return NewStraddle(name, *cfg)
		}
	case KindRegimeAdaptive:
		switch cfg := config.(type) {
		case RegimeAdaptiveConfig:
			return NewRegimeAdaptive(name, cfg)
		case *RegimeAdaptiveConfig:
			return NewRegimeAdaptive(name, *cfg)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, strategyType)
	}
	return nil, fmt.Errorf("%w: %T is not a %s config", ErrInvalidConfig, config, strategyType)
}
