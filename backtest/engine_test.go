package backtest

import (
	"bytes"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/daytrader/indicators"
	"github.com/rustyeddy/daytrader/market"
	"github.com/rustyeddy/daytrader/sim"
	"github.com/rustyeddy/daytrader/strategies"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2023, 11, 1, 14, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

// bar is a one-minute candle with an SMA of 1000 unless changed.
func bar(min int, o, h, l, c float64) market.Candle {
	return market.Candle{
		Time:     t0.Add(time.Duration(min) * time.Minute),
		Symbol:   "VN30F2311",
		Open:     o,
		High:     h,
		Low:      l,
		Close:    c,
		SMA:      1000,
		SMAReady: true,
	}
}

// longSetup is three bearish minutes followed by a close above the last
// high and the SMA: a long opens at 1004 on minute 3.
func longSetup() []market.Candle {
	return []market.Candle{
		bar(0, 1005, 1006, 1003, 1004),
		bar(1, 1004, 1004.5, 1002, 1003),
		bar(2, 1003, 1003.5, 1001, 1002),
		bar(3, 1002, 1005, 1002, 1004),
	}
}

func newEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(cfg, append([]Option{WithAudit()}, opts...)...)
	require.NoError(t, err)
	return e
}

func TestSignalScenarioOpensLong(t *testing.T) {
	t.Parallel()

	e := newEngine(t, DefaultConfig())
	res, err := e.Run(longSetup())
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, sim.Long, tr.Direction)
	assertDec(t, "1004", tr.EntryPrice)
	assert.Equal(t, t0.Add(3*time.Minute), tr.EntryTime)
	assertDec(t, "21962500", tr.Deposit)

	// nothing more happens, so the feed end closes it flat minus the fee
	assert.Equal(t, sim.ReasonFeedEnd, tr.Reason)
	assertDec(t, "1004", tr.ExitPrice)
	assert.Equal(t, t0.Add(3*time.Minute), tr.ExitTime)
	assertDec(t, "-0.47", tr.NetPoints)
	assertDec(t, "-47000", tr.Profit)
}

func TestShortSignal(t *testing.T) {
	t.Parallel()

	feed := []market.Candle{
		bar(0, 995, 997, 994.5, 996),
		bar(1, 996, 998, 995.5, 997),
		bar(2, 997, 999, 996.5, 998),
		bar(3, 998, 998, 995, 996), // below prior low 996.5 and the SMA
	}
	for i := range feed {
		feed[i].SMA = 1000
	}

	res, err := newEngine(t, DefaultConfig()).Run(feed)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, sim.Short, res.Trades[0].Direction)
	assertDec(t, "996", res.Trades[0].EntryPrice)
}

func TestNoSignal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(feed []market.Candle)
	}{
		{
			name:   "sma undefined",
			mutate: func(feed []market.Candle) { feed[3].SMAReady = false },
		},
		{
			name:   "close below sma",
			mutate: func(feed []market.Candle) { feed[3].SMA = 1004.5 },
		},
		{
			name:   "close not above previous high",
			mutate: func(feed []market.Candle) { feed[2].High = 1004 },
		},
		{
			name:   "gap between candles",
			mutate: func(feed []market.Candle) { feed[3].Time = feed[3].Time.Add(time.Minute) },
		},
		{
			name:   "symbol changes",
			mutate: func(feed []market.Candle) { feed[1].Symbol = "VN30F2312" },
		},
		{
			name:   "pattern mixed",
			mutate: func(feed []market.Candle) { feed[1].Close, feed[1].High = 1004.2, 1004.5 },
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			feed := longSetup()
			tt.mutate(feed)
			res, err := newEngine(t, DefaultConfig()).Run(feed)
			require.NoError(t, err)
			assert.Empty(t, res.Trades)
			assertDec(t, "100000000", res.Summary.FinalTotal)
		})
	}
}

func TestExitThresholdsInclusive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		close  float64
		reason sim.Reason
		points string
	}{
		{name: "take profit at exactly 3", close: 1007, reason: sim.ReasonTakeProfit, points: "3"},
		{name: "stop loss at exactly -1", close: 1003, reason: sim.ReasonStopLoss, points: "-1"},
		{name: "inside the band", close: 1006.9, reason: sim.ReasonFeedEnd, points: "2.9"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			feed := append(longSetup(), bar(4, 1004, math.Max(1004, tt.close), math.Min(1004, tt.close), tt.close))
			res, err := newEngine(t, DefaultConfig()).Run(feed)
			require.NoError(t, err)

			require.Len(t, res.Trades, 1)
			tr := res.Trades[0]
			assert.Equal(t, tt.reason, tr.Reason)
			assertDec(t, tt.points, tr.RawPoints)
			assert.Equal(t, t0.Add(4*time.Minute), tr.ExitTime)
		})
	}
}

func TestTakeProfitWorkedNumbers(t *testing.T) {
	t.Parallel()

	feed := append(longSetup(), bar(4, 1004, 1007.5, 1004, 1007))
	res, err := newEngine(t, DefaultConfig()).Run(feed)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assertDec(t, "2.53", tr.NetPoints)
	assertDec(t, "253000", tr.Profit)
	assertDec(t, "100253000", res.Summary.FinalTotal)
	assertDec(t, "253000", res.Summary.TotalProfit)
	assert.Equal(t, 1, res.Summary.Wins)
}

func TestDayBoundaryClosesAtPreviousCandle(t *testing.T) {
	t.Parallel()

	feed := longSetup()
	next := bar(0, 1010, 1012, 1009, 1010)
	next.Time = time.Date(2023, 11, 2, 9, 0, 0, 0, time.UTC)
	feed = append(feed, next)

	res, err := newEngine(t, DefaultConfig()).Run(feed)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, sim.ReasonDayEnd, tr.Reason, "closed before the next day's price is seen")
	assertDec(t, "1004", tr.ExitPrice)
	assert.Equal(t, feed[3].Time, tr.ExitTime)
	assert.True(t, tr.ExitTime.Before(next.Time))
}

func TestPositionsOnlyMarkedByTheirOwnContract(t *testing.T) {
	t.Parallel()

	next := func(min int, sym string, c float64) market.Candle {
		b := bar(min, c, c, c, c)
		b.Symbol = sym
		return b
	}

	tests := []struct {
		name     string
		tail     []market.Candle
		reason   sim.Reason
		exitPx   string
		exitTime time.Time
	}{
		{
			name: "far contract above take profit",
			tail: []market.Candle{
				next(4, "VN30F2311", 1004.5),
				next(4, "VN30F2403", 1024),
			},
			reason:   sim.ReasonFeedEnd,
			exitPx:   "1004.5",
			exitTime: t0.Add(4 * time.Minute),
		},
		{
			name: "next contract below stop loss",
			tail: []market.Candle{
				next(4, "VN30F2311", 1004.5),
				next(4, "VN30F2312", 990),
				next(5, "VN30F2312", 989),
			},
			reason:   sim.ReasonFeedEnd,
			exitPx:   "1004.5",
			exitTime: t0.Add(4 * time.Minute),
		},
		{
			name: "own contract still exits",
			tail: []market.Candle{
				next(4, "VN30F2312", 1024),
				next(5, "VN30F2311", 1007),
			},
			reason:   sim.ReasonTakeProfit,
			exitPx:   "1007",
			exitTime: t0.Add(5 * time.Minute),
		},
		{
			name: "day end uses the contract's last candle",
			tail: []market.Candle{
				next(4, "VN30F2311", 1004.5),
				next(5, "VN30F2312", 1010),
				{
					Time: time.Date(2023, 11, 2, 9, 0, 0, 0, time.UTC), Symbol: "VN30F2312",
					Open: 1011, High: 1011, Low: 1011, Close: 1011, SMA: 1000, SMAReady: true,
				},
			},
			reason:   sim.ReasonDayEnd,
			exitPx:   "1004.5",
			exitTime: t0.Add(4 * time.Minute),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := append(longSetup(), tt.tail...)
			res, err := newEngine(t, DefaultConfig()).Run(feed)
			require.NoError(t, err)

			require.Len(t, res.Trades, 1)
			tr := res.Trades[0]
			assert.Equal(t, "VN30F2311", tr.Symbol)
			assert.Equal(t, tt.reason, tr.Reason)
			assertDec(t, tt.exitPx, tr.ExitPrice)
			assert.Equal(t, tt.exitTime, tr.ExitTime)
		})
	}
}

// twoSignals opens a long at 1004 on minute 3 and signals another long at
// 1005.5 on minute 7 while the first is still inside its exit band.
func twoSignals() []market.Candle {
	return append(longSetup(),
		bar(4, 1006, 1006.2, 1005.3, 1005.5),
		bar(5, 1005.5, 1005.6, 1004.8, 1005),
		bar(6, 1005, 1005.2, 1004.3, 1004.5),
		bar(7, 1004.5, 1005.8, 1004.4, 1005.5),
	)
}

func TestConcurrentPositionsShareCapital(t *testing.T) {
	t.Parallel()

	res, err := newEngine(t, DefaultConfig()).Run(twoSignals())
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, 1, res.Trades[0].ID, "feed end closes in open order")
	assert.Equal(t, 2, res.Trades[1].ID)
	assertDec(t, "1005.5", res.Trades[1].EntryPrice)
	assert.Zero(t, res.Summary.Rejected)
}

func TestMarginRejectionIsLoggedAndSkipped(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.InitialCapital = d("30000000") // one deposit fits, two do not

	var buf bytes.Buffer
	e := newEngine(t, cfg, WithLogger(zerolog.New(&buf)))
	res, err := e.Run(twoSignals())
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, 1, res.Summary.Rejected)
	assertDec(t, "1004", res.Trades[0].EntryPrice)

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, "insufficient margin")
	assert.Contains(t, out, `"deposit":"21995313"`)
	assert.Contains(t, out, `"available":"8037500"`)
}

// randomFeed is a deterministic two-day random walk with an SMA(5).
func randomFeed(t *testing.T, seed int64) []market.Candle {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	var feed []market.Candle
	px := 1000.0
	for dayN := 0; dayN < 2; dayN++ {
		start := time.Date(2023, 11, 1+dayN, 9, 0, 0, 0, time.UTC)
		for m := 0; m < 240; m++ {
			o := px
			c := math.Round((o+rng.Float64()*3-1.5)*10) / 10
			h := math.Max(o, c) + math.Round(rng.Float64()*5)/10
			l := math.Min(o, c) - math.Round(rng.Float64()*5)/10
			feed = append(feed, market.Candle{
				Time:   start.Add(time.Duration(m) * time.Minute),
				Symbol: "VN30F2311",
				Open:   o, High: h, Low: l, Close: c,
			})
			px = c
		}
	}
	feed, err := indicators.AnnotateSMA(feed, 5)
	require.NoError(t, err)
	return feed
}

func TestCapitalConservation(t *testing.T) {
	t.Parallel()

	for _, seed := range []int64{1, 7, 42, 2023} {
		cfg := DefaultConfig()
		cfg.IndicatorWindow = 5
		res, err := newEngine(t, cfg).Run(randomFeed(t, seed))
		require.NoError(t, err, "seed %d", seed)

		sum := decimal.Zero
		for _, tr := range res.Trades {
			sum = sum.Add(tr.Profit)
		}
		s := res.Summary
		assert.True(t, s.FinalTotal.Equal(s.InitialCapital.Add(sum).Add(s.UnrecordedProfit)), "seed %d", seed)
		assert.True(t, s.TotalProfit.Equal(sum), "seed %d", seed)
		assert.True(t, s.FinalAvailable.Equal(s.FinalTotal), "nothing left open, seed %d", seed)
		assert.Equal(t, s.TradeCount, s.Wins+s.Losses+countFlat(res.Trades))
		assert.Len(t, res.Curve, len(res.Trades)+len(res.Unrecorded))

		for _, tr := range res.Trades {
			assert.True(t, market.SameDay(tr.EntryTime, tr.ExitTime), "no position survives a day, seed %d", seed)
		}
	}
}

func countFlat(trades []sim.Trade) int {
	n := 0
	for _, t := range trades {
		if t.Profit.IsZero() {
			n++
		}
	}
	return n
}

func TestRunIsDeterministicAndIsolated(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.IndicatorWindow = 5
	e := newEngine(t, cfg)

	a, b := randomFeed(t, 11), randomFeed(t, 12)

	first, err := e.Run(a)
	require.NoError(t, err)
	_, err = e.Run(b)
	require.NoError(t, err)
	again, err := e.Run(a)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// one Engine, many goroutines
	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := e.Run(a)
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, first.Summary, r.Summary)
	}
}

func TestMalformedFeedIsRejected(t *testing.T) {
	t.Parallel()

	e := newEngine(t, DefaultConfig())

	_, err := e.Run(nil)
	assert.ErrorIs(t, err, market.ErrEmptyFeed)

	feed := longSetup()
	feed[1], feed[2] = feed[2], feed[1]
	_, err = e.Run(feed)
	assert.ErrorIs(t, err, market.ErrNonMonotonic)

	feed = longSetup()
	feed[2].Close = math.NaN()
	_, err = e.Run(feed)
	assert.ErrorIs(t, err, market.ErrMissingField)
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "zero capital", mutate: func(c *Config) { c.InitialCapital = decimal.Zero }},
		{name: "zero multiplier", mutate: func(c *Config) { c.ContractMultiplier = decimal.Zero }},
		{name: "negative margin", mutate: func(c *Config) { c.MarginRatio = d("-0.175") }},
		{name: "zero adequacy", mutate: func(c *Config) { c.MarginAdequacyRatio = decimal.Zero }},
		{name: "negative fee", mutate: func(c *Config) { c.FeePoints = d("-1") }},
		{name: "inverted thresholds", mutate: func(c *Config) { c.TakeProfitPoints, c.StopLossPoints = d("-1"), d("3") }},
		{name: "equal thresholds", mutate: func(c *Config) { c.StopLossPoints = c.TakeProfitPoints }},
		{name: "zero window", mutate: func(c *Config) { c.IndicatorWindow = 0 }},
		{name: "zero timeframe", mutate: func(c *Config) { c.TimeframeMinutes = 0 }},
		{name: "unknown strategy", mutate: func(c *Config) { c.Strategy = "martingale" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestWithDetector(t *testing.T) {
	t.Parallel()

	e := newEngine(t, DefaultConfig(), WithDetector(strategies.NoopStrategy{}))
	assert.Equal(t, "noop", e.Detector().Name())

	res, err := e.Run(twoSignals())
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Empty(t, res.Curve)
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	feed := append(longSetup(), bar(4, 1004, 1007.5, 1004, 1007))
	res, err := newEngine(t, DefaultConfig()).Run(feed)
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintSummary(&buf, res.Summary)
	out := buf.String()
	assert.Contains(t, out, "Trades:        1")
	assert.Contains(t, out, "Win Rate:      100.00%")
	assert.Contains(t, out, "End Capital:   100253000 VND")
	assert.Contains(t, out, "Total Profit: 253000 VND")
	assert.NotContains(t, out, "Rejected")
}
