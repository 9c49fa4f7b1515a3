package oracle

import (
	"errors"
	"fmt"
)

// ErrToolNotFound matches any *ToolNotFoundError.
var ErrToolNotFound = errors.New("tool not found")

// ToolNotFoundError is a configuration error: the tool is neither on PATH nor
// obtainable from the package manager. It means "cannot evaluate", as opposed
// to a tool that ran and reported an incompatibility.
type ToolNotFoundError struct {
	Tool    string
	Package string
	Err     error
}

func (e *ToolNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s not found on PATH or via package %q: %v", e.Tool, e.Package, e.Err)
	}
	return fmt.Sprintf("%s not found on PATH or via package %q", e.Tool, e.Package)
}

func (e *ToolNotFoundError) Is(target error) bool {
	return target == ErrToolNotFound
}

func (e *ToolNotFoundError) Unwrap() error {
	return e.Err
}
