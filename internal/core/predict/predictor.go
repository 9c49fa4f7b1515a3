// Package predict holds the splice compatibility predictors. Each predictor
// reads a splice description and returns its records as one batch; none of
// them writes to shared state.
package predict

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agenthands/spliced/internal/core/model"
)

// ErrPredictorDisabled marks a predictor that cannot run, typically because
// its external tool is missing. Other predictors are unaffected.
var ErrPredictorDisabled = errors.New("predictor disabled")

type Predictor interface {
	Name() string
	Predict(ctx context.Context, splice *model.Splice) (model.Batch, error)
}

// Resolve builds a predictor, locating whatever tools it needs.
type Resolve func(ctx context.Context) (Predictor, error)

type deferred struct {
	name    string
	resolve Resolve

	mu   sync.Mutex
	done bool
	p    Predictor
	err  error
}

// Defer returns a predictor that is resolved on first use. A resolution
// failure disables it for the lifetime of the returned value, unless the
// failure came from the caller's context being cancelled or timing out; the
// next call then tries again.
func Defer(name string, resolve Resolve) Predictor {
	return &deferred{name: name, resolve: resolve}
}

func (d *deferred) Name() string { return d.name }

func (d *deferred) get(ctx context.Context) (Predictor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return d.p, d.err
	}

	p, err := d.resolve(ctx)
	if err != nil && (ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil, err
	}
	d.p, d.err, d.done = p, err, true
	return p, err
}

func (d *deferred) Predict(ctx context.Context, splice *model.Splice) (model.Batch, error) {
	p, err := d.get(ctx)
	if err != nil {
		return model.Batch{Predictor: d.name}, fmt.Errorf("%w: %s: %w", ErrPredictorDisabled, d.name, err)
	}
	return p.Predict(ctx, splice)
}

func timed(check func() model.Prediction) model.Prediction {
	start := time.Now()
	p := check()
	p.Seconds = time.Since(start).Seconds()
	return p
}
