package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/agenthands/spliced/internal/core/common"
)

// StructuralResult extends Result with the comparator's own verdict.
type StructuralResult struct {
	Result
	Prediction bool
	Data       json.RawMessage
}

// Structural is the structural comparator. It compares the facts of one
// library against the facts of its dependencies, restricted per dependency to
// the symbols that dependency provides, and writes a trace file as a side
// effect.
type Structural struct {
	Path   string
	Runner *Runner
}

// CompareStructural runs the comparator. symbols maps a facts path to the
// symbols it contributes; the entry for main is the union over deps.
func (s *Structural) CompareStructural(ctx context.Context, main string, deps []string, symbols map[string][]string, tracePath string) StructuralResult {
	filter, err := writeSymbolFilter(main, symbols)
	if err != nil {
		return StructuralResult{Result: Result{ReturnCode: -1, Message: err.Error()}}
	}
	defer os.Remove(filter)

	args := []string{"--main", main, "--symbols", filter, "--out", tracePath}
	for _, d := range deps {
		args = append(args, "--dep", d)
	}
	return parseStructural(s.Runner.Run(ctx, s.Path, args...))
}

// parseStructural reads {"prediction", "message", "data"} from stdout. When
// the tool printed no JSON the verdict falls back to the pairwise rule.
func parseStructural(res Result) StructuralResult {
	out := StructuralResult{Result: res, Prediction: res.Compatible()}

	doc, err := common.ExtractJSON(res.Stdout)
	if err != nil || !gjson.Valid(doc) {
		return out
	}

	parsed := gjson.Parse(doc)
	if p := parsed.Get("prediction"); p.Exists() {
		out.Prediction = p.Bool() && res.ReturnCode == 0
	}
	if m := parsed.Get("message"); m.Exists() {
		out.Message = m.String()
	}
	if d := parsed.Get("data"); d.Exists() {
		out.Data = json.RawMessage(d.Raw)
	}
	return out
}

// writeSymbolFilter writes the filter to a file private to this call, next to
// the main facts, and returns its path. Concurrent runs on the same library
// each get their own file.
func writeSymbolFilter(main string, symbols map[string][]string) (string, error) {
	sorted := make(map[string][]string, len(symbols))
	for _, k := range slices.Sorted(maps.Keys(symbols)) {
		s := slices.Clone(symbols[k])
		slices.Sort(s)
		sorted[k] = s
	}
	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode symbol filter: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(main), ".json")
	f, err := os.CreateTemp(filepath.Dir(main), base+".*.symbols.json")
	if err != nil {
		return "", fmt.Errorf("failed to create symbol filter for '%s': %w", main, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write symbol filter '%s': %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write symbol filter '%s': %w", f.Name(), err)
	}
	return f.Name(), nil
}
