// Package oracle invokes the external tools that produce compatibility
// verdicts and interface facts. Every invocation is a blocking process call
// with its own timeout; failures are returned as data, never as errors.
package oracle

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agenthands/spliced/internal/core/common"
	"github.com/agenthands/spliced/internal/metrics"
)

const DefaultTimeout = 5 * time.Minute

// Result is the captured outcome of one tool run. Message holds stdout and
// stderr interleaved, Stdout holds stdout alone for tools that emit JSON.
type Result struct {
	Command    string
	ReturnCode int
	Message    string
	Stdout     string
	Duration   time.Duration
}

// Compatible is the pairwise verdict rule: silent and successful.
func (r Result) Compatible() bool {
	return r.Message == "" && r.ReturnCode == 0
}

type Runner struct {
	Timeout time.Duration
	Log     *slog.Logger
}

func NewRunner(timeout time.Duration, log *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{Timeout: timeout, Log: log}
}

// Run executes name with args. The per-call deadline derives from ctx, so
// cancelling one run leaves concurrent runs untouched.
func (r *Runner) Run(ctx context.Context, name string, args ...string) Result {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	tool := filepath.Base(name)
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout bytes.Buffer
	combined := &lockedBuffer{}
	cmd.Stdout = &teeWriter{own: &stdout, all: combined}
	cmd.Stderr = combined

	res := Result{Command: strings.Join(append([]string{name}, args...), " ")}

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Message = strings.TrimSpace(combined.String())

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		outcome = "timeout"
		res.ReturnCode = -1
		res.Message = strings.TrimSpace(res.Message + "\n" + tool + " timed out after " + r.Timeout.String())
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			outcome = "failed"
			res.ReturnCode = exitErr.ExitCode()
		} else {
			outcome = "error"
			res.ReturnCode = -1
			res.Message = strings.TrimSpace(res.Message + "\n" + err.Error())
		}
	}

	metrics.OracleCalls.WithLabelValues(tool, outcome).Inc()
	metrics.OracleDuration.WithLabelValues(tool).Observe(res.Duration.Seconds())
	if outcome == "timeout" || outcome == "error" {
		r.Log.Warn("tool did not complete", "command", res.Command, "outcome", outcome, "output", common.Truncate(res.Message, 512))
	} else {
		r.Log.Debug("tool finished", "command", res.Command, "return_code", res.ReturnCode, "duration", res.Duration)
	}

	return res
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type teeWriter struct {
	own *bytes.Buffer
	all *lockedBuffer
}

func (w *teeWriter) Write(p []byte) (int, error) {
	w.own.Write(p)
	return w.all.Write(p)
}
