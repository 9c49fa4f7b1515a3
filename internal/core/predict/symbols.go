package predict

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agenthands/spliced/internal/core/match"
	"github.com/agenthands/spliced/internal/core/model"
)

// Check names recorded in the command field of symbol-graph records.
const (
	CheckOriginalMissing   = "binary-checks-loader-missing-symbols-for-original"
	CheckProvisionerChange = "binary-checks-symbol-provisioner-change"
	CheckMissingSymbols    = "missing-previously-found-symbols"
	CheckMissingExports    = "missing-previously-found-exports"
)

// Symbols compares the loader's symbol resolution for each top-level binary
// before and after the splice. Its records are independent evidence: the
// symbol-graph verdict for a binary is the AND over them.
type Symbols struct {
	Log *slog.Logger
}

func NewSymbols(log *slog.Logger) *Symbols {
	if log == nil {
		log = slog.Default()
	}
	return &Symbols{Log: log}
}

func (p *Symbols) Name() string { return model.PredictorSymbols }

func (p *Symbols) Predict(ctx context.Context, splice *model.Splice) (model.Batch, error) {
	batch := model.Batch{Predictor: p.Name()}

	// Only splices of a library with another build of itself are supported.
	if splice.DifferentLibs {
		p.Log.Debug("symbol graph predictor skips different-library splices", "splice", splice.ID)
		return batch, nil
	}

	for _, name := range splice.OriginalNames() {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		batch.Records = append(batch.Records, p.checkBinary(splice, name)...)
	}
	return batch, nil
}

func (p *Symbols) checkBinary(splice *model.Splice, name string) []model.Prediction {
	original := splice.Original[name]
	spliced, ok := splice.Spliced[name]
	if !ok {
		p.Log.Warn("binary is missing from splice, this should not happen", "binary", name)
		return nil
	}

	before, ok := splice.Symbols(original.Lib)
	if !ok {
		p.Log.Warn("no symbol map for original binary", "binary", original.Lib)
		return nil
	}

	// An original that already fails to load tells us nothing about the splice.
	if len(before.Missing) > 0 {
		return []model.Prediction{{
			Binary:     original.Lib,
			SpliceType: model.SameLib,
			Command:    CheckOriginalMissing,
			Message:    "Loader found missing symbols for original binary: " + strings.Join(before.Missing, "\n"),
			Symbols:    before.Missing,
			Prediction: false,
		}}
	}

	after, ok := splice.Symbols(spliced.Lib)
	if !ok {
		p.Log.Warn("no symbol map for spliced binary", "binary", spliced.Lib)
		return nil
	}

	records := []model.Prediction{timed(func() model.Prediction {
		return ProvisionerChange(original.Lib, before, after)
	})}

	for _, key := range match.Unmatched(original.Deps, spliced.Deps) {
		p.Log.Debug("no spliced counterpart for dependency", "binary", original.Lib, "identity", key)
	}

	for _, m := range match.MatchByPrefix(original.Deps, spliced.Deps) {
		records = append(records, timed(func() model.Prediction {
			return MissingFoundSymbols(original.Lib, before, after, m)
		}))

		// Export maps exist only for directly analyzed libraries.
		origExports, ok1 := splice.Exports(model.BucketOriginal, m.Original)
		splExports, ok2 := splice.Exports(model.BucketSpliced, m.Spliced)
		if !ok1 || !ok2 {
			continue
		}
		records = append(records, timed(func() model.Prediction {
			return MissingExports(original.Lib, m, origExports, splExports)
		}))
	}
	return records
}

// ProvisionerChange flags every symbol whose providing library changed
// identity, or vanished, after the splice.
func ProvisionerChange(binary string, before, after model.SymbolMap) model.Prediction {
	was := providers(before)
	now := providers(after)

	var changed, symbols []string
	for _, sym := range before.FoundNames() {
		prefix, ok := was[sym]
		if !ok {
			continue
		}
		got, ok := now[sym]
		switch {
		case !ok:
			changed = append(changed, fmt.Sprintf("symbol %s is missing in splice", sym))
		case got != prefix:
			changed = append(changed, fmt.Sprintf("symbol %s was originally provided by %s, after splice is provided by %s", sym, prefix, got))
		default:
			continue
		}
		symbols = append(symbols, sym)
	}

	return model.Prediction{
		Binary:     binary,
		SpliceType: model.SameLib,
		Command:    CheckProvisionerChange,
		Message:    strings.Join(changed, "\n"),
		Symbols:    symbols,
		Prediction: len(changed) == 0,
	}
}

// MissingFoundSymbols checks that every symbol the original dependency
// provided is still provided by its spliced counterpart.
func MissingFoundSymbols(binary string, before, after model.SymbolMap, m match.DependencyMatch) model.Prediction {
	missing := difference(before.ProvidedBy(m.Original), after.ProvidedBy(m.Spliced))
	return model.Prediction{
		Binary:      binary,
		SpliceType:  model.SameLib,
		OriginalLib: m.Original,
		SplicedLib:  m.Spliced,
		Command:     CheckMissingSymbols,
		Message:     strings.Join(missing, "\n"),
		Symbols:     missing,
		Prediction:  len(missing) == 0,
	}
}

// MissingExports checks that the spliced dependency still exports everything
// the original did. A lost export may not break this binary but can break
// other consumers.
func MissingExports(binary string, m match.DependencyMatch, before, after model.SymbolMap) model.Prediction {
	missing := difference(before.ExportedNames(), after.ExportedNames())
	return model.Prediction{
		Binary:      binary,
		SpliceType:  model.SameLib,
		OriginalLib: m.Original,
		SplicedLib:  m.Spliced,
		Command:     CheckMissingExports,
		Message:     strings.Join(missing, "\n"),
		Symbols:     missing,
		Prediction:  len(missing) == 0,
	}
}

// providers maps each resolved symbol to the identity key of its provider.
func providers(m model.SymbolMap) map[string]string {
	out := make(map[string]string, len(m.Found))
	for sym := range m.Found {
		if path, ok := m.Provider(sym); ok {
			out[sym] = match.IdentityKey(path)
		}
	}
	return out
}

// difference returns the elements of a absent from b, keeping a's order.
func difference(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, s := range b {
		in[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := in[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
