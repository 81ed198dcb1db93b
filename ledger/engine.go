// Package ledger computes realized gains and losses by matching disposals of
// an asset against the lots created by its acquisitions.
//
// A run for one asset moves through a fixed sequence of states:
//
//	Idle -> Registering -> Matching -> Finalized
//
// Acquisitions are registered as lots in a Lots ledger, every disposal is
// covered by consuming lots through a Matcher, each (lot, disposal, quantity)
// match becomes a GainLoss record and the records are collected into a
// GainLossSet that is checked for quantity conservation and then frozen.
// Any failure moves the engine to Failed and no set is returned.
//
// All amounts use decimal arithmetic. The engine is single-threaded; separate
// assets are independent and ComputeAll runs them in parallel.
//
// Example usage:
//
//	cfg := ledger.NewConfig()
//	set, err := ledger.Compute(ctx, cfg, ledger.Input{
//	    Asset:        "BTC",
//	    Acquisitions: buys,
//	    Disposals:    sells,
//	})
//	if err != nil {
//	    var insufficient *ledger.InsufficientLotsError
//	    if errors.As(err, &insufficient) {
//	        // the ledger sells more than it ever held
//	    }
//	}
package ledger

import (
	"context"
	"fmt"

	"github.com/robinvdvleuten/gains/telemetry"
	"github.com/robinvdvleuten/gains/tx"
)

// State is the lifecycle state of an Engine.
type State int

const (
	Idle State = iota
	Registering
	Matching
	Finalized
	Failed
)

var stateNames = [...]string{"Idle", "Registering", "Matching", "Finalized", "Failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Input is the pre-validated, pre-sorted transaction list of one asset.
type Input struct {
	Asset        string
	Acquisitions []*tx.Acquisition
	Disposals    []*tx.Disposal
}

// Engine runs the lot matching for a single asset exactly once.
type Engine struct {
	cfg      *Config
	strategy Strategy
	state    State
}

// NewEngine creates an idle engine for cfg.
func NewEngine(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := StrategyFor(cfg.Method)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, strategy: strategy, state: Idle}, nil
}

// State returns the current state of the engine.
func (e *Engine) State() State {
	return e.state
}

func (e *Engine) transition(to State) error {
	if e.state == Finalized || e.state == Failed {
		return &StateError{From: e.state, To: to}
	}
	if to != Failed && to != e.state+1 {
		return &StateError{From: e.state, To: to}
	}
	e.state = to
	return nil
}

// Run computes the gain/loss set for in. It fails fast on unsorted input,
// records of another asset, duplicate acquisitions and disposals that cannot
// be covered. On failure the engine is left in Failed and no set is returned.
func (e *Engine) Run(ctx context.Context, in Input) (*GainLossSet, error) {
	if err := e.transition(Registering); err != nil {
		return nil, err
	}

	set, err := e.run(ctx, in)
	if err != nil {
		e.state = Failed
		e.cfg.logger().Debug().Str("asset", in.Asset).Err(err).Msg("run failed")
		return nil, err
	}
	return set, nil
}

func (e *Engine) run(ctx context.Context, in Input) (*GainLossSet, error) {
	logger := e.cfg.logger()

	timer := telemetry.StartTimer(ctx, fmt.Sprintf("asset %s (%d in, %d out)", in.Asset, len(in.Acquisitions), len(in.Disposals)))
	defer timer.End()

	if err := checkOrder(in); err != nil {
		return nil, err
	}

	registerTimer := timer.Child("register lots")
	lots := NewLots(in.Asset, e.strategy)
	for _, acq := range in.Acquisitions {
		if _, err := lots.Register(acq); err != nil {
			registerTimer.End()
			return nil, err
		}
	}
	registerTimer.End()
	logger.Debug().Str("asset", in.Asset).Int("lots", lots.Len()).Str("available", lots.Available().String()).Msg("lots registered")

	if err := e.transition(Matching); err != nil {
		return nil, err
	}

	matchTimer := timer.Child("match disposals")
	set := newGainLossSet(in.Asset)
	matcher := NewMatcher(lots, NewRecorder(e.cfg, set), logger)
	for _, d := range in.Disposals {
		if err := matcher.Match(d); err != nil {
			matchTimer.End()
			return nil, err
		}
	}
	matchTimer.End()

	finalizeTimer := timer.Child("finalize")
	defer finalizeTimer.End()
	if err := set.finalize(in.Disposals, lots.All()); err != nil {
		return nil, err
	}
	if err := e.transition(Finalized); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("asset", in.Asset).
		Int("records", set.Len()).
		Str("short_term", set.ShortTermGain().String()).
		Str("long_term", set.LongTermGain().String()).
		Msg("gain/loss set finalized")

	return set, nil
}

// checkOrder verifies that both lists hold only records of the input asset
// and are sorted by timestamp, then line.
func checkOrder(in Input) error {
	for i, acq := range in.Acquisitions {
		if acq.Asset != in.Asset {
			return &AssetMismatchError{Asset: in.Asset, Header: acq.Header}
		}
		if i > 0 && acq.Before(in.Acquisitions[i-1].Header) {
			return &ReorderError{Asset: in.Asset, List: "acquisitions", Previous: in.Acquisitions[i-1].Header, Current: acq.Header}
		}
	}
	for i, d := range in.Disposals {
		if d.Asset != in.Asset {
			return &AssetMismatchError{Asset: in.Asset, Header: d.Header}
		}
		if i > 0 && d.Before(in.Disposals[i-1].Header) {
			return &ReorderError{Asset: in.Asset, List: "disposals", Previous: in.Disposals[i-1].Header, Current: d.Header}
		}
	}
	return nil
}

// Compute runs a fresh engine over in. A nil cfg is taken from ctx.
func Compute(ctx context.Context, cfg *Config, in Input) (*GainLossSet, error) {
	if cfg == nil {
		cfg = ConfigFromContext(ctx)
	}
	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, in)
}
