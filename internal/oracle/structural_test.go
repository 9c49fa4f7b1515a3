package oracle

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructural_JSONVerdict(t *testing.T) {
	res := parseStructural(Result{
		ReturnCode: 0,
		Stdout:     "loading facts\n{\"prediction\": false, \"message\": \"abi_typelocation mismatch\", \"data\": {\"missing\": [\"foo\"]}}\n",
		Message:    "loading facts ...",
	})
	assert.False(t, res.Prediction)
	assert.Equal(t, "abi_typelocation mismatch", res.Message)
	assert.JSONEq(t, `{"missing": ["foo"]}`, string(res.Data))
}

func TestParseStructural_NonZeroExitOverridesVerdict(t *testing.T) {
	res := parseStructural(Result{ReturnCode: 2, Stdout: `{"prediction": true}`})
	assert.False(t, res.Prediction)
}

func TestParseStructural_NoJSON(t *testing.T) {
	assert.True(t, parseStructural(Result{}).Prediction)
	assert.False(t, parseStructural(Result{ReturnCode: 1, Message: "boom"}).Prediction)
}

// compatScript is a fake comparator that writes the trace file and prints
// its symbol filter inside the verdict, after an optional delay.
func compatScript(t *testing.T, dir, delay string) string {
	t.Helper()
	script := filepath.Join(dir, "compat.sh")
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
filter=""
while [ $# -gt 0 ]; do
  case "$1" in
    --out) echo "trace" > "$2"; shift ;;
    --symbols) filter="$2"; shift ;;
  esac
  shift
done
sleep `+delay+`
printf '{"prediction": true, "message": "", "data": '
cat "$filter"
printf '}\n'
`), 0o755))
	return script
}

func TestStructural_WritesFilterAndPassesArguments(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "smeagle-lib-libfoo.so.json")
	trace := filepath.Join(dir, "smeagle-lib-libfoo.so.asp")

	s := &Structural{Path: compatScript(t, dir, "0"), Runner: NewRunner(5*time.Second, nil)}
	res := s.CompareStructural(context.Background(), main, []string{"/cache/dep.json"}, map[string][]string{
		main:             {"b", "a"},
		"/cache/dep.json": {"b", "a"},
	}, trace)

	assert.Equal(t, 0, res.ReturnCode)
	assert.True(t, res.Prediction)
	assert.FileExists(t, trace)

	var filter map[string][]string
	require.NoError(t, json.Unmarshal(res.Data, &filter))
	assert.Equal(t, []string{"a", "b"}, filter["/cache/dep.json"])

	leftover, err := filepath.Glob(filepath.Join(dir, "*.symbols.json"))
	require.NoError(t, err)
	assert.Empty(t, leftover)
}

func TestStructural_ConcurrentRunsKeepTheirOwnFilter(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "smeagle-opt-libfoo.so.json")
	s := &Structural{Path: compatScript(t, dir, "0.3"), Runner: NewRunner(10*time.Second, nil)}

	symbols := []string{"pcre_exec", "pcre_compile"}
	results := make([]StructuralResult, len(symbols))
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.CompareStructural(context.Background(), main, nil,
				map[string][]string{main: {sym}}, filepath.Join(dir, sym+".asp"))
		}()
	}
	wg.Wait()

	for i, sym := range symbols {
		require.Equal(t, 0, results[i].ReturnCode, results[i].Message)
		var filter map[string][]string
		require.NoError(t, json.Unmarshal(results[i].Data, &filter))
		assert.Equal(t, []string{sym}, filter[main])
	}
}
