package predict

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/agenthands/spliced/internal/core/extraction"
	"github.com/agenthands/spliced/internal/core/facts"
	"github.com/agenthands/spliced/internal/core/model"
	"github.com/agenthands/spliced/internal/core/pool"
	"github.com/agenthands/spliced/internal/oracle"
)

// FactPrefix names the extractor in fact cache keys.
const FactPrefix = "smeagle"

const missingSymbolsMessage = "Library is missing symbols, so smeagle model would fail."

// System libraries ship without debug info, so no facts can be extracted.
var systemLib = regexp.MustCompile(`^(/usr|/lib)`)

// StructuralComparator compares one library's facts against its dependencies.
type StructuralComparator interface {
	CompareStructural(ctx context.Context, main string, deps []string, symbols map[string][]string, tracePath string) oracle.StructuralResult
}

// Smeagle models each spliced library against the facts of the dependencies
// it actually resolves symbols from. Dependencies whose facts cannot be
// generated are left out; a prediction on partial evidence beats none.
type Smeagle struct {
	Comparator StructuralComparator
	Extractor  extraction.Extractor
	// CacheDir holds generated facts. Empty means a temporary directory
	// removed when Predict returns.
	CacheDir string
	Workers  int
	Log      *slog.Logger
}

func NewSmeagle(cmp StructuralComparator, ext extraction.Extractor, cacheDir string, workers int, log *slog.Logger) *Smeagle {
	if log == nil {
		log = slog.Default()
	}
	return &Smeagle{
		Comparator: cmp,
		Extractor:  ext,
		CacheDir:   cacheDir,
		Workers:    workers,
		Log:        log,
	}
}

func (p *Smeagle) Name() string { return model.PredictorSmeagle }

type smeagleOutcome struct {
	lib    string
	record model.Prediction
	stats  map[string]int
}

type smeagleTarget struct {
	lib   string
	facts facts.Entry
}

func (p *Smeagle) Predict(ctx context.Context, splice *model.Splice) (model.Batch, error) {
	batch := model.Batch{Predictor: p.Name()}
	if len(splice.Spliced) == 0 {
		return batch, nil
	}

	dir, cleanup, err := facts.OpenDir(p.CacheDir)
	if err != nil {
		return batch, err
	}
	defer func() {
		if err := cleanup(); err != nil {
			p.Log.Warn("failed to remove temporary cache", "dir", dir, "error", err)
		}
	}()
	p.Log.Info("smeagle cache directory", "dir", dir)

	cache := facts.NewCache(facts.NewFileStore(dir), p.Extractor, facts.WithLogger(p.Log))

	var generate []pool.Task[smeagleTarget]
	for _, lib := range splicedLibs(splice) {
		generate = append(generate, func(ctx context.Context) []smeagleTarget {
			entry, ok := cache.GetOrGenerate(ctx, lib, FactPrefix)
			if !ok {
				return nil
			}
			return []smeagleTarget{{lib: lib, facts: entry}}
		})
	}
	targets := pool.Collect(ctx, p.Workers, generate)

	var tests []pool.Task[smeagleOutcome]
	for _, t := range targets {
		tests = append(tests, func(ctx context.Context) []smeagleOutcome {
			return p.testLib(ctx, splice, cache, t)
		})
	}

	for _, o := range pool.Collect(ctx, p.Workers, tests) {
		batch.Records = append(batch.Records, o.record)
		if o.stats != nil {
			if batch.Stats == nil {
				batch.Stats = make(map[string]map[string]int)
			}
			batch.Stats[o.lib] = o.stats
		}
	}
	return batch, nil
}

func (p *Smeagle) testLib(ctx context.Context, splice *model.Splice, cache *facts.Cache, t smeagleTarget) []smeagleOutcome {
	syms, ok := splice.Symbols(t.lib)
	if !ok {
		p.Log.Warn("no symbol map for spliced library", "lib", t.lib)
		return nil
	}

	// The model needs every symbol resolved.
	if len(syms.Missing) > 0 {
		data, _ := json.Marshal(syms.Missing)
		return []smeagleOutcome{{lib: t.lib, record: model.Prediction{
			Binary:     t.lib,
			Lib:        t.lib,
			Message:    missingSymbolsMessage,
			Symbols:    syms.Missing,
			ReturnCode: -1,
			Data:       data,
			Prediction: false,
		}}}
	}

	deps := make(map[string][]string)
	var all []string
	for _, sym := range syms.FoundNames() {
		dep, ok := syms.Provider(sym)
		if !ok || systemLib.MatchString(dep) {
			continue
		}
		entry, ok := cache.GetOrGenerate(ctx, dep, FactPrefix)
		if !ok {
			continue
		}
		deps[entry.Path] = append(deps[entry.Path], sym)
		all = append(all, sym)
	}

	depPaths := slices.Sorted(maps.Keys(deps))
	deps[t.facts.Path] = all
	trace := strings.TrimSuffix(t.facts.Path, ".json") + ".asp"

	start := time.Now()
	res := p.Comparator.CompareStructural(ctx, t.facts.Path, depPaths, deps, trace)
	seconds := time.Since(start).Seconds()

	return []smeagleOutcome{{
		lib: t.lib,
		record: model.Prediction{
			Binary:     t.lib,
			Lib:        t.lib,
			Command:    res.Command,
			Message:    res.Message,
			ReturnCode: res.ReturnCode,
			Data:       res.Data,
			Seconds:    seconds,
			Prediction: res.Prediction,
		},
		stats: map[string]int{"total_matched_symbols": len(all)},
	}}
}

func splicedLibs(splice *model.Splice) []string {
	seen := make(map[string]struct{})
	var libs []string
	for _, name := range splice.SplicedNames() {
		lib := splice.Spliced[name].Lib
		if _, ok := seen[lib]; ok {
			continue
		}
		seen[lib] = struct{}{}
		libs = append(libs, lib)
	}
	return libs
}
