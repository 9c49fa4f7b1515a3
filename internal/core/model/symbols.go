package model

import (
	"encoding/json"
	"maps"
	"slices"
)

// ResolvedLib is the library the dynamic loader picked for an imported symbol.
type ResolvedLib struct {
	Realpath string `json:"realpath"`
}

// FoundSymbol is one entry of a SymbolMap found table. Lib is nil when the
// loader recorded the symbol without naming a provider.
type FoundSymbol struct {
	Lib *ResolvedLib `json:"lib,omitempty"`
}

// SymbolMap holds the imported and exported symbols of one binary or library
// as produced by the loader walk. It is never modified after decoding.
type SymbolMap struct {
	Found    map[string]FoundSymbol     `json:"found"`
	Missing  []string                   `json:"missing"`
	Exported map[string]json.RawMessage `json:"exported,omitempty"`
}

// Provider returns the real path of the library resolving symbol.
func (s SymbolMap) Provider(symbol string) (string, bool) {
	f, ok := s.Found[symbol]
	if !ok || f.Lib == nil {
		return "", false
	}
	return f.Lib.Realpath, true
}

// ProvidedBy returns the sorted symbols resolved by the library at path.
func (s SymbolMap) ProvidedBy(path string) []string {
	var out []string
	for name, f := range s.Found {
		if f.Lib != nil && f.Lib.Realpath == path {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// FoundNames returns the found symbol names in sorted order.
func (s SymbolMap) FoundNames() []string {
	return slices.Sorted(maps.Keys(s.Found))
}

// ExportedNames returns the exported symbol names in sorted order.
func (s SymbolMap) ExportedNames() []string {
	return slices.Sorted(maps.Keys(s.Exported))
}
