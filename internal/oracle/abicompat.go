package oracle

import "context"

// Abicompat is the pairwise comparator: it checks whether binary still links
// against libB in place of libA.
type Abicompat struct {
	Path   string
	Runner *Runner
}

func (a *Abicompat) Compare(ctx context.Context, binary, libA, libB string) Result {
	return a.Runner.Run(ctx, a.Path, binary, libA, libB)
}
