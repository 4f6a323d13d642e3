package backtest

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/daytrader/market"
	"github.com/rustyeddy/daytrader/sim"
	"github.com/rustyeddy/daytrader/strategies"
	"github.com/shopspring/decimal"
)

// Engine replays a candle feed against one Config. It holds no run state
// so a single Engine may Run many feeds, also concurrently.
type Engine struct {
	cfg      Config
	exits    sim.Exits
	detector strategies.Detector
	audit    bool
	log      zerolog.Logger
}

type Option func(*Engine)

// WithAudit checks the ledger balance after every candle and fails the
// run on the first violation.
func WithAudit() Option {
	return func(e *Engine) { e.audit = true }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithDetector overrides the detector named by Config.Strategy.
func WithDetector(d strategies.Detector) Option {
	return func(e *Engine) { e.detector = d }
}

func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backtest config: %w", err)
	}

	e := &Engine{
		cfg:   cfg,
		exits: cfg.Exits(),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.detector == nil {
		d, err := strategies.ByName(cfg.Strategy, cfg.Timeframe())
		if err != nil {
			return nil, fmt.Errorf("backtest config: %w", err)
		}
		e.detector = d
	}
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Detector() strategies.Detector { return e.detector }

// Run simulates the feed from a fresh State. For every candle, in order:
//
//  1. a new calendar date closes everything at the previous candle
//  2. open positions on the candle's symbol are marked at the close and
//     checked against the exits
//  3. the detector may open a new position at the close
//
// After the last candle whatever is still open is closed at its close.
// A position is only ever priced by candles of its own contract, so a
// rollover overlap cannot close a position at another contract's price.
// A malformed feed is rejected before anything is simulated.
func (e *Engine) Run(candles []market.Candle) (Result, error) {
	if err := market.ValidateFeed(candles); err != nil {
		return Result{}, fmt.Errorf("backtest: %w", err)
	}

	st, err := NewState(e.cfg)
	if err != nil {
		return Result{}, err
	}

	lookback := e.detector.Lookback()
	for i, c := range candles {
		if i > 0 && !market.SameDay(candles[i-1].Time, c.Time) {
			if err := e.closeAll(st, sim.ReasonDayEnd); err != nil {
				return Result{}, err
			}
		}

		if err := e.checkExits(st, c); err != nil {
			return Result{}, err
		}

		st.last[c.Symbol] = c

		lo := max(0, i-lookback)
		if err := e.tryEnter(st, candles[lo:i+1]); err != nil {
			return Result{}, err
		}

		if e.audit {
			if err := st.Ledger.CheckInvariant(); err != nil {
				return Result{}, fmt.Errorf("backtest: candle %d at %s: %w", i, c.Time, err)
			}
		}
	}

	if err := e.closeAll(st, sim.ReasonFeedEnd); err != nil {
		return Result{}, err
	}

	return st.result(candles[0].Time, candles[len(candles)-1].Time), nil
}

// closeAll settles every open position, in open order, at the close and
// time of the latest candle seen for its symbol.
func (e *Engine) closeAll(st *State, reason sim.Reason) error {
	for _, p := range st.Ledger.Open() {
		c, ok := st.last[p.Symbol]
		if !ok {
			return fmt.Errorf("backtest: position %d on %s has no candle to close at", p.ID, p.Symbol)
		}
		if err := e.settle(st, p.ID, decimal.NewFromFloat(c.Close), c, reason); err != nil {
			return err
		}
	}
	return nil
}

type exitDecision struct {
	id     int
	reason sim.Reason
}

// checkExits decides every close first and applies them after, so the
// open set never changes while it is being walked.
func (e *Engine) checkExits(st *State, c market.Candle) error {
	price := decimal.NewFromFloat(c.Close)

	var decisions []exitDecision
	for _, p := range st.Ledger.Open() {
		if p.Symbol != c.Symbol {
			continue
		}
		if reason, hit := e.exits.Check(sim.Unrealized(p, price)); hit {
			decisions = append(decisions, exitDecision{id: p.ID, reason: reason})
		}
	}

	for _, d := range decisions {
		if err := e.settle(st, d.id, price, c, d.reason); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) settle(st *State, id int, price decimal.Decimal, c market.Candle, reason sim.Reason) error {
	t, settlement, err := st.Ledger.Close(id, price, c.Time, reason)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	st.record(t, settlement)
	if settlement == sim.SettledOnly {
		e.log.Warn().
			Int("position", id).
			Str("profit", t.Profit.String()).
			Msg("trade settled without exit time, not logged")
	}
	return nil
}

func (e *Engine) tryEnter(st *State, window []market.Candle) error {
	sig, ok := e.detector.Detect(window)
	if !ok {
		return nil
	}

	price := decimal.NewFromFloat(sig.Price)
	_, err := st.Ledger.TryOpen(sig.Symbol, sig.Direction, price, sig.Time)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sim.ErrInsufficientMargin):
		st.Rejected++
		e.log.Warn().
			Str("symbol", sig.Symbol).
			Time("time", sig.Time).
			Stringer("direction", sig.Direction).
			Str("deposit", st.Ledger.Params().Deposit(price).StringFixed(0)).
			Str("available", st.Ledger.Available().StringFixed(0)).
			Msg("insufficient margin, signal skipped")
		return nil
	default:
		return fmt.Errorf("backtest: %w", err)
	}
}
