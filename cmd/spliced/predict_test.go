package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/spliced/internal/core/model"
)

const spliceJSON = `{
	"id": "swig-pcre",
	"package": "swig@3.0.8",
	"splice": "pcre",
	"libs": {
		"original": [{"paths": ["/opt/pcre/lib/libpcre.so.1"]}],
		"spliced": [{"paths": ["/opt/pcre-new/lib/libpcre.so.1"]}]
	},
	"original": {"swig": {"lib": "/opt/swig/bin/swig", "deps": {"libpcre.so.1": "/opt/pcre/lib/libpcre.so.1"}}},
	"spliced": {"swig": {"lib": "/opt/swig-spliced/bin/swig", "deps": {"libpcre.so.1": "/opt/pcre-new/lib/libpcre.so.1"}}},
	"metadata": {
		"/opt/swig/bin/swig": {"found": {"pcre_exec": {"lib": {"realpath": "/opt/pcre/lib/libpcre.so.1"}}}, "missing": []},
		"/opt/swig-spliced/bin/swig": {"found": {"pcre_exec": {"lib": {"realpath": "/opt/pcre-new/lib/libpcre.so.1"}}}, "missing": []}
	}
}`

func writeSplice(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "splice.json")
	require.NoError(t, os.WriteFile(path, []byte(spliceJSON), 0o644))
	return path
}

func TestPredictCommand_SymbolsOnly(t *testing.T) {
	t.Setenv("MEMGRAPH_URI", "")
	out := filepath.Join(t.TempDir(), "result.json")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"predict", writeSplice(t), "--predictor", "symbols", "--output", out})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var res model.Result
	require.NoError(t, json.Unmarshal(data, &res))

	assert.Equal(t, "swig-pcre", res.SpliceID)
	assert.NotEmpty(t, res.Predictions[model.PredictorSymbols])
	ok, seen := res.Verdict(model.PredictorSymbols, "/opt/swig/bin/swig")
	assert.True(t, seen)
	assert.True(t, ok)
}

func TestPredictCommand_Errors(t *testing.T) {
	var stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"predict", filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, cmd.Execute())

	cmd = newRootCmd()
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"predict", writeSplice(t), "--predictor", "abidiff"})
	assert.Error(t, cmd.Execute())
}
