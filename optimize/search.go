package optimize

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/daytrader/backtest"
	"github.com/rustyeddy/daytrader/evaluate"
	"github.com/rustyeddy/daytrader/market"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTrials    = 500
	DefaultMinTrades = 10
)

// Search runs Trials backtests over random points of Space.
type Search struct {
	Base  backtest.Config
	Ticks []market.Tick
	Space Space

	Trials    int
	Seed      int64
	Workers   int // defaults to GOMAXPROCS
	MinTrades int // a trial needs more trades than this to rank; 0 ranks any trade

	Log zerolog.Logger
}

// Trial is the outcome of one parameter set. A trial that could not run
// keeps its error and never ranks.
type Trial struct {
	Index   int
	Params  Params
	Summary backtest.Summary
	Sharpe  float64
	Err     error
}

type Outcome struct {
	Trials []Trial // in draw order
	Best   *Trial  // nil when no trial qualified
}

// Run draws every parameter set up front from one seeded rng, runs the
// backtests in parallel with one Engine each, and ranks them in draw
// order. The same Seed over the same ticks always gives the same Outcome.
func (s *Search) Run(ctx context.Context) (Outcome, error) {
	if err := s.Space.Validate(); err != nil {
		return Outcome{}, err
	}
	if len(s.Ticks) == 0 {
		return Outcome{}, fmt.Errorf("optimize: no ticks")
	}
	if s.MinTrades < 0 {
		return Outcome{}, fmt.Errorf("optimize: min trades must not be negative, got %d", s.MinTrades)
	}
	trials := s.Trials
	if trials <= 0 {
		trials = DefaultTrials
	}
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rng := rand.New(rand.NewSource(s.Seed))
	out := make([]Trial, trials)
	for i := range out {
		out[i] = Trial{Index: i, Params: Sample(rng, s.Space), Sharpe: math.NaN()}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range out {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.runTrial(&out[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Outcome{}, err
	}

	return Outcome{Trials: out, Best: s.best(out)}, nil
}

func (s *Search) runTrial(t *Trial) {
	log := s.Log.With().Int("trial", t.Index).Logger()

	cfg := t.Params.Apply(s.Base)
	eng, err := backtest.New(cfg)
	if err != nil {
		t.Err = err
		log.Warn().Err(err).Msg("skipping parameter set")
		return
	}
	candles, err := backtest.Prepare(s.Ticks, cfg)
	if err != nil {
		t.Err = err
		log.Warn().Err(err).Msg("skipping parameter set")
		return
	}
	res, err := eng.Run(candles)
	if err != nil {
		t.Err = err
		log.Warn().Err(err).Msg("skipping parameter set")
		return
	}

	t.Summary = res.Summary
	t.Sharpe = evaluate.SharpeDaily(cfg.InitialCapital, evaluate.FromTrades(res.Trades), evaluate.RiskFreeAnnual)
	log.Debug().
		Int("trades", res.Summary.TradeCount).
		Str("profit", res.Summary.TotalProfit.StringFixed(0)).
		Msg("trial done")
}

// best is the highest total profit among trials with more than MinTrades
// trades. Ties go to the earlier trial.
func (s *Search) best(trials []Trial) *Trial {
	var best *Trial
	for i := range trials {
		t := &trials[i]
		if t.Err != nil || t.Summary.TradeCount <= s.MinTrades {
			continue
		}
		if best == nil || t.Summary.TotalProfit.GreaterThan(best.Summary.TotalProfit) {
			best = t
		}
	}
	return best
}

// WriteLog writes one line per trial that ran.
func WriteLog(w io.Writer, trials []Trial) error {
	for _, t := range trials {
		if t.Err != nil {
			continue
		}
		params, err := json.Marshal(t.Params)
		if err != nil {
			return err
		}
		sharpe := t.Sharpe
		if math.IsNaN(sharpe) {
			sharpe = 0
		}
		_, err = fmt.Fprintf(w, "Tested params %s => Total Profit: %s VND, Total Trades: %d => Sharpe Ratio: %.2f\n",
			params, t.Summary.TotalProfit.StringFixed(0), t.Summary.TradeCount, sharpe)
		if err != nil {
			return err
		}
	}
	return nil
}
