package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/robinvdvleuten/gains/telemetry"
)

// Batch holds the gain/loss sets of several independently computed assets.
type Batch struct {
	sets []*GainLossSet // sorted by asset
}

// Sets returns the computed sets sorted by asset.
func (b *Batch) Sets() []*GainLossSet {
	out := make([]*GainLossSet, len(b.sets))
	copy(out, b.sets)
	return out
}

// Set returns the set computed for asset, if any.
func (b *Batch) Set(asset string) (*GainLossSet, bool) {
	for _, s := range b.sets {
		if s.Asset() == asset {
			return s, true
		}
	}
	return nil, false
}

// Summary returns the aggregate over every asset in the batch.
func (b *Batch) Summary() Summary {
	var total Summary
	for i, s := range b.sets {
		if i == 0 {
			total = s.Summary()
			continue
		}
		total = total.Add(s.Summary())
	}
	return total
}

// BatchErrors collects the per-asset failures of a ComputeAll call.
type BatchErrors struct {
	Errors []error // sorted by asset
}

func (e *BatchErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d assets failed", len(e.Errors))
}

// Unwrap returns the underlying errors for error unwrapping.
func (e *BatchErrors) Unwrap() []error {
	return e.Errors
}

// AssetError ties a failure to the asset whose run produced it.
type AssetError struct {
	Asset string
	Err   error
}

func (e *AssetError) Error() string {
	return e.Err.Error()
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

func (e *AssetError) GetAsset() string {
	return e.Asset
}

// ComputeAll runs one engine per input concurrently, bounded by cfg.Workers.
// Assets share no state, so a failing asset never affects the others: the
// returned Batch always holds every set that succeeded, and the error, when
// non-nil, is a *BatchErrors listing the failed assets. Cancellation of ctx
// is observed before each asset starts. A nil cfg is taken from ctx.
func ComputeAll(ctx context.Context, cfg *Config, inputs []Input) (*Batch, error) {
	if cfg == nil {
		cfg = ConfigFromContext(ctx)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if seen[in.Asset] {
			return nil, fmt.Errorf("asset %s appears in more than one input", in.Asset)
		}
		seen[in.Asset] = true
	}

	timer := telemetry.StartTimer(ctx, fmt.Sprintf("compute %d assets", len(inputs)))
	defer timer.End()
	ctx = telemetry.WithRootTimer(ctx, timer)

	var (
		mu   sync.Mutex
		sets []*GainLossSet
		errs []*AssetError
	)

	g := new(errgroup.Group)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}

	for _, in := range inputs {
		g.Go(func() error {
			var set *GainLossSet
			err := ctx.Err()
			if err == nil {
				set, err = Compute(ctx, cfg, in)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, &AssetError{Asset: in.Asset, Err: err})
				return nil
			}
			sets = append(sets, set)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(sets, func(i, j int) bool { return sets[i].Asset() < sets[j].Asset() })
	batch := &Batch{sets: sets}

	if len(errs) == 0 {
		return batch, nil
	}

	sort.Slice(errs, func(i, j int) bool { return errs[i].Asset < errs[j].Asset })
	batchErrs := &BatchErrors{Errors: make([]error, len(errs))}
	for i, err := range errs {
		batchErrs.Errors[i] = err
	}
	return batch, batchErrs
}
