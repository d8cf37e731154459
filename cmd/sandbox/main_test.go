package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-sandbox/config"
	"strategy-sandbox/sim"
)

func TestSymbolsOf(t *testing.T) {
	cfg := config.Default()
	cfg.Strategies = []config.StrategyConfig{
		{Name: "a", Symbols: []string{"NIFTY", "BANKNIFTY"}},
		{Name: "b", Symbols: []string{"NIFTY"}},
	}
	assert.Equal(t, []string{"BANKNIFTY", "NIFTY"}, symbolsOf(cfg))
}

func TestPrintKinds(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printKinds(&buf))
	out := buf.String()
	for _, kind := range config.Kinds() {
		assert.Contains(t, out, "# "+string(kind))
	}
	assert.Contains(t, out, "tickSize: 0.05")
	assert.Contains(t, out, "ivRankThreshold: 50")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, sim.Report{Rejected: 2}, sim.Summary{Orders: 3, Fills: 1, Commission: 40, RealizedNet: -40}, nil)
	assert.Contains(t, buf.String(), "STRATEGY")
	assert.Contains(t, buf.String(), "total: orders=3 rejected=2 matched=0 fills=1 gross=0.00 commission=40.00 net=-40.00")
}
