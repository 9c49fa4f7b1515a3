package predict

import (
	"context"
	"log/slog"
	"time"

	"github.com/agenthands/spliced/internal/core/match"
	"github.com/agenthands/spliced/internal/core/model"
	"github.com/agenthands/spliced/internal/core/pool"
	"github.com/agenthands/spliced/internal/oracle"
)

// Comparator is the pairwise binary comparator.
type Comparator interface {
	Compare(ctx context.Context, binary, libA, libB string) oracle.Result
}

// Libabigail asks a pairwise comparator whether each binary keeps working
// when one library is swapped for another.
type Libabigail struct {
	Comparator Comparator
	Workers    int
	Log        *slog.Logger
}

func NewLibabigail(cmp Comparator, workers int, log *slog.Logger) *Libabigail {
	if log == nil {
		log = slog.Default()
	}
	return &Libabigail{Comparator: cmp, Workers: workers, Log: log}
}

func (p *Libabigail) Name() string { return model.PredictorLibabigail }

func (p *Libabigail) Predict(ctx context.Context, splice *model.Splice) (model.Batch, error) {
	batch := model.Batch{Predictor: p.Name()}
	if !splice.HasLibs() {
		return batch, nil
	}

	var tasks []pool.Task[model.Prediction]
	spliced := splice.LibPaths(model.BucketSpliced)
	switch {
	case splice.HasBucket(model.BucketOriginal) && len(spliced) > 0:
		tasks = p.equivalentLibs(splice, spliced)
	case splice.HasBucket(model.BucketDep) && splice.HasBucket(model.BucketReplace):
		tasks = p.differentLibs(splice)
	}

	batch.Records = pool.Collect(ctx, p.Workers, tasks)
	return batch, nil
}

// equivalentLibs pairs each spliced library with every original sharing its
// identity key. Versioned names rarely match exactly, so all candidates are
// compared rather than guessing the best one.
func (p *Libabigail) equivalentLibs(splice *model.Splice, spliced []string) []pool.Task[model.Prediction] {
	originals := splice.LibPaths(model.BucketOriginal)

	var tasks []pool.Task[model.Prediction]
	for _, lib := range spliced {
		var candidates []string
		for _, o := range originals {
			if match.SharesPrefix(lib, o) {
				candidates = append(candidates, o)
			}
		}
		if len(candidates) == 0 {
			p.Log.Warn("original comparison library not found, required for abicompat", "lib", lib)
			continue
		}
		for _, binary := range splice.Binaries {
			for _, original := range candidates {
				tasks = append(tasks, p.compare(binary, original, lib, model.SameLib))
			}
		}
	}
	return tasks
}

// differentLibs mocks splicing one library for a different one: every
// binary, original and replacement combination is compared.
func (p *Libabigail) differentLibs(splice *model.Splice) []pool.Task[model.Prediction] {
	originals := splice.LibPaths(model.BucketDep)
	replacements := splice.LibPaths(model.BucketReplace)

	var tasks []pool.Task[model.Prediction]
	for _, binary := range splice.Binaries {
		for _, original := range originals {
			for _, replacement := range replacements {
				tasks = append(tasks, p.compare(binary, original, replacement, model.DifferentLib))
			}
		}
	}
	return tasks
}

func (p *Libabigail) compare(binary, original, replacement string, kind model.SpliceType) pool.Task[model.Prediction] {
	return func(ctx context.Context) []model.Prediction {
		start := time.Now()
		res := p.Comparator.Compare(ctx, binary, original, replacement)

		rec := model.Prediction{
			Binary:     binary,
			SpliceType: kind,
			Command:    res.Command,
			Message:    res.Message,
			ReturnCode: res.ReturnCode,
			Seconds:    time.Since(start).Seconds(),
			Prediction: res.Compatible(),
		}
		if kind == model.SameLib {
			rec.Lib = replacement
			rec.OriginalLib = original
		} else {
			rec.Lib = original
			rec.Replace = replacement
		}
		if res.Message != "" {
			p.Log.Debug("abicompat reported differences", "binary", binary, "lib", original, "replacement", replacement, "message", res.Message)
		}
		return []model.Prediction{rec}
	}
}
