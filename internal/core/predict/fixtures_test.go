package predict

import (
	"encoding/json"

	"github.com/agenthands/spliced/internal/core/model"
)

func found(pairs ...string) map[string]model.FoundSymbol {
	out := make(map[string]model.FoundSymbol, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			out[pairs[i]] = model.FoundSymbol{}
			continue
		}
		out[pairs[i]] = model.FoundSymbol{Lib: &model.ResolvedLib{Realpath: pairs[i+1]}}
	}
	return out
}

func exported(names ...string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(names))
	for _, n := range names {
		out[n] = json.RawMessage(`{"type": "FUNC"}`)
	}
	return out
}

// swigSplice is a single binary, /orig/bin/swig, that resolves foo from
// libx before the splice and from provider after it.
func swigSplice(provider string) *model.Splice {
	return &model.Splice{
		ID: "swig-pcre",
		Original: map[string]model.Binary{
			"swig": {Lib: "/orig/bin/swig", Deps: map[string]string{"/lib/libx.1.so": "/lib/libx.1.so"}},
		},
		Spliced: map[string]model.Binary{
			"swig": {Lib: "/spliced/bin/swig", Deps: map[string]string{provider: provider}},
		},
		Metadata: map[string]model.SymbolMap{
			"/orig/bin/swig":    {Found: found("foo", "/lib/libx.1.so")},
			"/spliced/bin/swig": {Found: found("foo", provider)},
		},
	}
}

func records(b model.Batch, command string) []model.Prediction {
	var out []model.Prediction
	for _, r := range b.Records {
		if r.Command == command {
			out = append(out, r)
		}
	}
	return out
}
