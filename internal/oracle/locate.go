package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// PackageManager resolves the install prefix of a package, installing it
// when allowed.
type PackageManager interface {
	Locate(ctx context.Context, pkg string) (string, error)
}

// Locator finds tool executables on PATH, falling back to a package manager.
type Locator struct {
	LookPath func(string) (string, error)
	Manager  PackageManager
	Log      *slog.Logger
}

func NewLocator(manager PackageManager, log *slog.Logger) *Locator {
	if log == nil {
		log = slog.Default()
	}
	return &Locator{LookPath: exec.LookPath, Manager: manager, Log: log}
}

// Find returns an executable path for tool, provided by package pkg.
func (l *Locator) Find(ctx context.Context, tool, pkg string) (string, error) {
	if path, err := l.LookPath(tool); err == nil {
		return path, nil
	}
	if l.Manager == nil {
		return "", &ToolNotFoundError{Tool: tool, Package: pkg}
	}

	l.Log.Warn("tool not found on PATH, asking package manager", "tool", tool, "package", pkg)
	prefix, err := l.Manager.Locate(ctx, pkg)
	if err != nil {
		return "", &ToolNotFoundError{Tool: tool, Package: pkg, Err: err}
	}

	candidate := filepath.Join(prefix, "bin", filepath.Base(tool))
	if !isExecutable(candidate) {
		return "", &ToolNotFoundError{
			Tool:    tool,
			Package: pkg,
			Err:     fmt.Errorf("%s is not an executable", candidate),
		}
	}
	return candidate, nil
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	return fi.Mode().Perm()&0o111 != 0
}

// Spack locates packages with `spack location -i`, installing them first when
// Install is set and the package is absent.
type Spack struct {
	Binary  string
	Install bool
	Runner  *Runner
}

func (s *Spack) Locate(ctx context.Context, pkg string) (string, error) {
	bin := s.Binary
	if bin == "" {
		bin = "spack"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return "", fmt.Errorf("package manager %s unavailable: %w", bin, err)
	}

	res := s.Runner.Run(ctx, bin, "location", "-i", pkg)
	if res.ReturnCode != 0 && s.Install {
		install := s.Runner.Run(ctx, bin, "install", pkg)
		if install.ReturnCode != 0 {
			return "", fmt.Errorf("failed to install %s: %s", pkg, lastLine(install.Message))
		}
		res = s.Runner.Run(ctx, bin, "location", "-i", pkg)
	}
	if res.ReturnCode != 0 {
		return "", fmt.Errorf("failed to locate %s: %s", pkg, lastLine(res.Message))
	}

	prefix := lastLine(res.Stdout)
	if prefix == "" {
		return "", fmt.Errorf("%s location returned no prefix for %s", bin, pkg)
	}
	return prefix, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
