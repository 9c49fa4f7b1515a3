package extraction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/agenthands/spliced/internal/core/common"
	"github.com/agenthands/spliced/internal/oracle"
)

// Result is the outcome of extracting facts from one library. Data is nil
// when the tool produced nothing usable.
type Result struct {
	Data       json.RawMessage
	ReturnCode int
	Message    string
}

// OK reports whether the extraction can be cached.
func (r Result) OK() bool {
	return r.ReturnCode == 0 && len(r.Data) > 0
}

// Extractor produces the structural facts of a library.
type Extractor interface {
	Extract(ctx context.Context, lib string) Result
}

// ToolExtractor runs the fact extraction tool and keeps the JSON document it
// prints.
type ToolExtractor struct {
	Path   string
	Runner *oracle.Runner
}

func NewToolExtractor(path string, runner *oracle.Runner) *ToolExtractor {
	return &ToolExtractor{
		Path:   path,
		Runner: runner,
	}
}

// Extract invokes `<tool> -l <lib> -f json`.
func (e *ToolExtractor) Extract(ctx context.Context, lib string) Result {
	res := e.Runner.Run(ctx, e.Path, "-l", lib, "-f", "json")
	out := Result{ReturnCode: res.ReturnCode, Message: res.Message}
	if res.ReturnCode != 0 {
		return out
	}

	doc, err := common.ExtractJSON(res.Stdout)
	if err != nil {
		out.Message = fmt.Sprintf("failed to extract facts for %s: %v", lib, err)
		return out
	}
	if !gjson.Valid(doc) {
		out.Message = fmt.Sprintf("failed to extract facts for %s: invalid JSON output", lib)
		return out
	}

	// An empty document is a failed extraction.
	parsed := gjson.Parse(doc)
	if len(parsed.Map()) == 0 {
		out.Message = fmt.Sprintf("no facts produced for %s", lib)
		return out
	}
	out.Data = json.RawMessage(doc)
	return out
}
