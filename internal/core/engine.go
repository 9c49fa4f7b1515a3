// Package core runs the splice predictors and stores what they conclude.
package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/spliced/internal/core/model"
	"github.com/agenthands/spliced/internal/core/pool"
	"github.com/agenthands/spliced/internal/core/predict"
	"github.com/agenthands/spliced/internal/driver"
	"github.com/agenthands/spliced/internal/metrics"
)

var (
	// ErrNoPredictions is returned by LoadPredictions for a splice with no stored run.
	ErrNoPredictions = errors.New("no stored predictions")

	ErrUnknownPredictor = errors.New("unknown predictor")
)

// Engine is the prediction aggregator. Driver is optional; without it
// results are returned but not stored.
type Engine struct {
	Predictors []predict.Predictor
	Driver     driver.GraphDriver
	Log        *slog.Logger
}

func NewEngine(predictors []predict.Predictor, d driver.GraphDriver, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{Predictors: predictors, Driver: d, Log: log}
}

func (e *Engine) BuildIndices(ctx context.Context) error {
	if e.Driver == nil {
		return nil
	}
	return e.Driver.BuildIndices(ctx)
}

func (e *Engine) Close(ctx context.Context) error {
	if e.Driver == nil {
		return nil
	}
	return e.Driver.Close(ctx)
}

// Names lists the configured predictors.
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.Predictors))
	for _, p := range e.Predictors {
		names = append(names, p.Name())
	}
	return names
}

func (e *Engine) selected(only []string) ([]predict.Predictor, error) {
	if len(only) == 0 {
		return e.Predictors, nil
	}
	var out []predict.Predictor
	for _, name := range only {
		i := slices.IndexFunc(e.Predictors, func(p predict.Predictor) bool { return p.Name() == name })
		if i < 0 {
			return nil, fmt.Errorf("%w %q (have %v)", ErrUnknownPredictor, name, e.Names())
		}
		out = append(out, e.Predictors[i])
	}
	return out, nil
}

type outcome struct {
	batch model.Batch
	err   error
}

// Predict runs the named predictors, all of them when only is empty,
// concurrently against splice and merges their batches. A predictor that
// fails is logged and skipped; the others still contribute.
func (e *Engine) Predict(ctx context.Context, splice *model.Splice, only ...string) (*model.Result, error) {
	if err := splice.Validate(); err != nil {
		return nil, err
	}
	predictors, err := e.selected(only)
	if err != nil {
		return nil, err
	}
	if splice.ID == "" {
		splice.ID = uuid.NewString()
	}

	tasks := make([]pool.Task[outcome], 0, len(predictors))
	for _, p := range predictors {
		tasks = append(tasks, func(ctx context.Context) []outcome {
			batch, err := p.Predict(ctx, splice)
			if batch.Predictor == "" {
				batch.Predictor = p.Name()
			}
			return []outcome{{batch: batch, err: err}}
		})
	}

	start := time.Now()
	result := model.NewResult(splice.ID)
	for _, o := range pool.Collect(ctx, len(tasks), tasks) {
		if o.err != nil {
			metrics.PredictorErrors.WithLabelValues(o.batch.Predictor).Inc()
			if errors.Is(o.err, predict.ErrPredictorDisabled) {
				e.Log.Error("predictor unavailable", "predictor", o.batch.Predictor, "error", o.err)
			} else {
				e.Log.Error("predictor failed", "predictor", o.batch.Predictor, "error", o.err)
			}
			continue
		}
		for i := range o.batch.Records {
			rec := &o.batch.Records[i]
			if rec.ID == "" {
				rec.ID = uuid.NewString()
			}
			metrics.Predictions.WithLabelValues(o.batch.Predictor, metrics.Verdict(rec.Prediction)).Inc()
		}
		result.Merge(o.batch)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("prediction for %s interrupted: %w", splice.ID, err)
	}

	e.Log.Info("splice predicted",
		"splice", splice.ID,
		"package", splice.Package,
		"records", result.Count(),
		"elapsed", time.Since(start))
	return result, nil
}

// SaveResult stores the splice and its records in one transaction,
// replacing any earlier run for the same splice ID. On failure the earlier
// run is left as it was.
func (e *Engine) SaveResult(ctx context.Context, splice *model.Splice, result *model.Result) error {
	if e.Driver == nil {
		return nil
	}

	statements := []driver.Statement{
		{Query: driver.SaveSpliceQuery, Params: map[string]interface{}{
			"id":             splice.ID,
			"package":        splice.Package,
			"splice":         splice.Splice,
			"replace":        splice.Replace,
			"experiment":     splice.Experiment,
			"different_libs": splice.DifferentLibs,
			"created_at":     time.Now().UTC(),
		}},
		{Query: driver.ClearPredictionsQuery, Params: map[string]interface{}{"id": splice.ID}},
	}
	if records := predictionParams(result); len(records) > 0 {
		statements = append(statements, driver.Statement{Query: driver.SavePredictionsQuery, Params: map[string]interface{}{
			"splice_id": splice.ID,
			"records":   records,
		}})
	}

	if err := e.Driver.ExecuteWrite(ctx, statements); err != nil {
		return fmt.Errorf("failed to save predictions for %s: %w", splice.ID, err)
	}
	return nil
}

func predictionParams(result *model.Result) []interface{} {
	predictors := make([]string, 0, len(result.Predictions))
	for name := range result.Predictions {
		predictors = append(predictors, name)
	}
	slices.Sort(predictors)

	var records []interface{}
	for _, name := range predictors {
		for seq, p := range result.Predictions[name] {
			var libs []interface{}
			for _, lib := range []string{p.Lib, p.OriginalLib, p.SplicedLib, p.Replace} {
				if lib != "" && !slices.Contains(libs, interface{}(lib)) {
					libs = append(libs, lib)
				}
			}
			symbols := make([]interface{}, len(p.Symbols))
			for i, s := range p.Symbols {
				symbols[i] = s
			}
			records = append(records, map[string]interface{}{
				"uuid":         p.ID,
				"predictor":    name,
				"seq":          seq,
				"binary":       p.Binary,
				"lib":          p.Lib,
				"original_lib": p.OriginalLib,
				"spliced_lib":  p.SplicedLib,
				"replace":      p.Replace,
				"splice_type":  string(p.SpliceType),
				"command":      p.Command,
				"message":      p.Message,
				"symbols":      symbols,
				"return_code":  p.ReturnCode,
				"data":         string(p.Data),
				"seconds":      p.Seconds,
				"prediction":   p.Prediction,
				"libs":         libs,
			})
		}
	}
	return records
}

// LoadPredictions reads a stored run back. Stats are not persisted.
func (e *Engine) LoadPredictions(ctx context.Context, spliceID string) (*model.Result, error) {
	if e.Driver == nil {
		return nil, fmt.Errorf("%w: persistence is not configured", ErrNoPredictions)
	}
	res, err := e.Driver.ExecuteQuery(ctx, driver.LoadPredictionsQuery, map[string]interface{}{"id": spliceID})
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions for %s: %w", spliceID, err)
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("%w for splice %s", ErrNoPredictions, spliceID)
	}

	result := model.NewResult(spliceID)
	for _, rec := range res.Records {
		get := func(key string) interface{} {
			v, _ := rec.Get(key)
			return v
		}
		p := model.Prediction{
			ID:          asString(get("uuid")),
			Binary:      asString(get("binary")),
			Lib:         asString(get("lib")),
			OriginalLib: asString(get("original_lib")),
			SplicedLib:  asString(get("spliced_lib")),
			Replace:     asString(get("replace")),
			SpliceType:  model.SpliceType(asString(get("splice_type"))),
			Command:     asString(get("command")),
			Message:     asString(get("message")),
			Symbols:     asStrings(get("symbols")),
			ReturnCode:  int(asInt(get("return_code"))),
			Seconds:     asFloat(get("seconds")),
		}
		p.Prediction, _ = get("prediction").(bool)
		if data := asString(get("data")); data != "" && json.Valid([]byte(data)) {
			p.Data = json.RawMessage(data)
		}
		predictor := asString(get("predictor"))
		result.Predictions[predictor] = append(result.Predictions[predictor], p)
	}
	return result, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func asStrings(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok || len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
