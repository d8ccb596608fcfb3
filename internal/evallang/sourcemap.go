// Package evallang is a small tree-walking evaluator for Thunk, the lazy
// expression language this adapter debugs. It exists to make the rest of
// the system exercisable end-to-end; its own semantics are deliberately
// minimal (arithmetic, let, lambda, application, and explicit laziness
// via delay/force-on-use).
package evallang

import (
	"fmt"
	"strings"
)

// Span is a byte range inside one loaded source file.
type Span struct {
	File  string
	Start int
	End   int
}

// SourceFile holds the raw contents and a line table built once at load
// time, so resolving a span to a line is a binary search rather than a
// rescan.
type SourceFile struct {
	Name       string
	Contents   string
	lineStarts []int // byte offset of the first byte of each line, 0-indexed
}

func newSourceFile(name, contents string) *SourceFile {
	sf := &SourceFile{Name: name, Contents: contents, lineStarts: []int{0}}
	for i, b := range []byte(contents) {
		if b == '\n' {
			sf.lineStarts = append(sf.lineStarts, i+1)
		}
	}
	return sf
}

// LineOf returns the 1-based line containing offset.
func (sf *SourceFile) LineOf(offset int) int {
	lo, hi := 0, len(sf.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if sf.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}

// SourceMap is an append-only registry of loaded files, consulted by the
// observer to resolve a Span to a (file, line) pair.
type SourceMap struct {
	files map[string]*SourceFile
}

// NewSourceMap returns an empty source map.
func NewSourceMap() *SourceMap {
	return &SourceMap{files: map[string]*SourceFile{}}
}

// Register adds a file's contents under name, overwriting any prior
// registration for the same name (append-only in the sense that once
// loaded for an evaluation, the set of registered files never shrinks).
func (sm *SourceMap) Register(name, contents string) {
	sm.files[name] = newSourceFile(name, contents)
}

// LineOf resolves a span to its 1-based source line. It returns 0 if the
// span's file was never registered.
func (sm *SourceMap) LineOf(sp Span) int {
	sf, ok := sm.files[sp.File]
	if !ok {
		return 0
	}
	return sf.LineOf(sp.Start)
}

// Snippet returns the source text covered by sp, for diagnostics.
func (sm *SourceMap) Snippet(sp Span) string {
	sf, ok := sm.files[sp.File]
	if !ok || sp.Start < 0 || sp.End > len(sf.Contents) || sp.Start > sp.End {
		return ""
	}
	return strings.TrimSpace(sf.Contents[sp.Start:sp.End])
}

func (sp Span) String() string {
	return fmt.Sprintf("%s[%d:%d]", sp.File, sp.Start, sp.End)
}
