package sim

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"strategy-sandbox/config"
	"strategy-sandbox/market"
)

// replayEpoch 合成行情的起始时间（09:15 IST）。
var replayEpoch = time.Date(2024, 3, 1, 3, 45, 0, 0, time.UTC)

const (
	replayATRPeriod  = 14
	replayIVHistory  = 120
	replayStrikeGrid = 5
	replayExpiryDays = 10

	replayTradesPerBar = 8
)

// SyntheticFeed generates a deterministic random walk for symbol. Trade
// ticks are drawn inside each interval and folded into bars by
// market.BarAggregator. The same seed and symbol always give the same feed.
// The middle tenth of the series runs at three times the base volatility so
// the regime switch has something to react to.
func SyntheticFeed(symbol string, cfg config.ReplayConfig) Feed {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(cfg.Seed ^ int64(h.Sum64())))

	n := cfg.Bars
	interval := time.Duration(cfg.IntervalSecs) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	burstFrom, burstTo := n/2, n/2+n/10
	inBurst := func(i int) bool { return i >= burstFrom && i < burstTo }

	agg := market.NewBarAggregator(interval)
	epoch := replayEpoch.Truncate(interval)
	bars := make([]market.Bar, 0, n)
	collect := func(b market.Bar, ok bool) {
		if ok {
			bars = append(bars, b)
		}
	}
	prev := cfg.StartPrice
	for i := 0; i < n; i++ {
		vol := cfg.Volatility
		if inBurst(i) {
			vol *= 3
		}
		step := vol / math.Sqrt(replayTradesPerBar-1)
		ts := epoch.Add(time.Duration(i) * interval)
		price := prev
		for j := 0; j < replayTradesPerBar; j++ {
			if j > 0 {
				price *= 1 + rng.NormFloat64()*step
			}
			collect(agg.OnTrade(market.Trade{
				Price: price,
				Qty:   math.Round(125 * (1 + math.Abs(rng.NormFloat64()))),
				Ts:    ts.Add(time.Duration(j) * interval / replayTradesPerBar),
			}))
		}
		prev = price
	}
	collect(agg.Flush())

	iv := make([]float64, 0, replayIVHistory+n)
	level := 15.0
	for i := 0; i < replayIVHistory; i++ {
		level = walkIV(rng, level)
		iv = append(iv, level)
	}
	snaps := make([]market.Snapshot, 0, len(bars))
	for i, bar := range bars {
		level = walkIV(rng, level)
		if inBurst(i) {
			level *= 1.02
		}
		iv = append(iv, level)

		window := bars[:i+1]
		if len(window) > replayATRPeriod+1 {
			window = window[len(window)-replayATRPeriod-1:]
		}
		ts := bar.Timestamp()
		snaps = append(snaps, market.Snapshot{
			Time:         ts,
			SpotPrice:    bar.Close,
			BidAskSpread: bar.Close * 0.0005 * (1 + math.Abs(rng.NormFloat64())),
			CurrentATR:   market.ATR(market.Highs(window), market.Lows(window), market.Closes(window), replayATRPeriod),
			OptionChain:  optionChain(bar.Close, level, ts, cfg.LotSize),
			IVHistory:    append([]float64(nil), iv[len(iv)-replayIVHistory:]...),
		})
	}
	return Feed{Symbol: symbol, Bars: bars, Snapshots: snaps}
}

func walkIV(rng *rand.Rand, level float64) float64 {
	// 均值回复到 15
	next := level + 0.1*(15-level) + rng.NormFloat64()*0.5
	return math.Max(next, 1)
}

// optionChain 以现价附近 ±2 档行权价、单一到期日生成报价；权利金用 ATM 近似
// 0.4·S·σ·√T 加上内在价值。
func optionChain(spot, ivPct float64, now time.Time, lot int64) []market.OptionQuote {
	step := math.Max(math.Round(spot/100), 1)
	atm := math.Round(spot/step) * step
	expiry := now.Add(replayExpiryDays * 24 * time.Hour)
	timeValue := 0.4 * spot * ivPct / 100 * math.Sqrt(float64(replayExpiryDays)/365)

	chain := make([]market.OptionQuote, 0, replayStrikeGrid)
	for k := -replayStrikeGrid / 2; k <= replayStrikeGrid/2; k++ {
		strike := atm + float64(k)*step
		chain = append(chain, market.OptionQuote{
			Strike:  strike,
			Expiry:  expiry.Unix(),
			CallMid: roundTick(timeValue + math.Max(spot-strike, 0)),
			PutMid:  roundTick(timeValue + math.Max(strike-spot, 0)),
			LotSize: lot,
		})
	}
	return chain
}

func roundTick(v float64) float64 {
	return math.Round(v/0.05) * 0.05
}
