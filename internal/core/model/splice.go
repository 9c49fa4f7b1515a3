package model

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
)

type SpliceType string

const (
	SameLib      SpliceType = "same_lib"
	DifferentLib SpliceType = "different_lib"
)

// Library buckets of a splice description.
const (
	BucketOriginal = "original"
	BucketSpliced  = "spliced"
	BucketDep      = "dep"
	BucketReplace  = "replace"
)

// LibSet is a group of library paths installed by one package.
type LibSet struct {
	Name  string   `json:"name,omitempty"`
	Paths []string `json:"paths"`
}

// Binary is a top-level binary of a dependency tree together with the
// libraries the loader walk found for it, keyed by soname or path.
type Binary struct {
	Lib  string            `json:"lib"`
	Deps map[string]string `json:"deps"`
}

// Splice describes one proposed substitution: the original and spliced
// dependency trees plus the symbol maps collected for every library in them.
type Splice struct {
	ID         string `json:"id,omitempty"`
	Package    string `json:"package,omitempty"`
	Splice     string `json:"splice,omitempty"`
	Replace    string `json:"replace,omitempty"`
	Experiment string `json:"experiment,omitempty"`

	DifferentLibs bool                `json:"different_libs"`
	Libs          map[string][]LibSet `json:"libs"`
	Original      map[string]Binary   `json:"original"`
	Spliced       map[string]Binary   `json:"spliced"`
	Binaries      []string            `json:"binaries"`

	// Metadata is keyed by library path. Export maps captured for direct
	// dependencies use "original:<path>" and "spliced:<path>" keys.
	Metadata map[string]SymbolMap `json:"metadata"`
}

// Decode reads a JSON splice description.
func Decode(r io.Reader) (*Splice, error) {
	var s Splice
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode splice description: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every tree entry names its binary.
func (s *Splice) Validate() error {
	for name, b := range s.Original {
		if b.Lib == "" {
			return fmt.Errorf("original binary %q has no lib path", name)
		}
	}
	for name, b := range s.Spliced {
		if b.Lib == "" {
			return fmt.Errorf("spliced binary %q has no lib path", name)
		}
	}
	return nil
}

// HasBucket reports whether the bucket was supplied at all, even empty.
func (s *Splice) HasBucket(bucket string) bool {
	_, ok := s.Libs[bucket]
	return ok
}

// LibPaths flattens every path of a bucket in declaration order.
func (s *Splice) LibPaths(bucket string) []string {
	var paths []string
	for _, set := range s.Libs[bucket] {
		paths = append(paths, set.Paths...)
	}
	return paths
}

// HasLibs reports whether any bucket carries a library set.
func (s *Splice) HasLibs() bool {
	for _, sets := range s.Libs {
		if len(sets) > 0 {
			return true
		}
	}
	return false
}

func (s *Splice) Symbols(path string) (SymbolMap, bool) {
	m, ok := s.Metadata[path]
	return m, ok
}

// Exports returns the export map captured for path on the given side
// ("original" or "spliced").
func (s *Splice) Exports(side, path string) (SymbolMap, bool) {
	m, ok := s.Metadata[side+":"+path]
	return m, ok
}

// OriginalNames returns the original tree binary names in sorted order.
func (s *Splice) OriginalNames() []string {
	return slices.Sorted(maps.Keys(s.Original))
}

// SplicedNames returns the spliced tree binary names in sorted order.
func (s *Splice) SplicedNames() []string {
	return slices.Sorted(maps.Keys(s.Spliced))
}
