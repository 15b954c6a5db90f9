package loader

import (
	"fmt"
	"strings"

	"github.com/kingrea/nbimport/internal/notebook"
)

// SkipReason explains why a code cell is not imported.
type SkipReason string

const (
	SkipNone      SkipReason = ""
	SkipDirective SkipReason = "directive"
	SkipNoImport  SkipReason = "noimport"
)

// PlannedCell is one code cell with its position among the document's code cells.
type PlannedCell struct {
	// Index is 1-based and counts every code cell, skipped or not.
	Index  int
	Label  string
	Source string
	Skip   SkipReason
}

// Runnable reports whether the cell will be compiled and executed.
func (c PlannedCell) Runnable() bool {
	return c.Skip == SkipNone
}

// Label formats the provenance label of a code cell.
func Label(path string, index int) string {
	return fmt.Sprintf("%s Cell %d", path, index)
}

// Plan indexes the code cells of nb and decides which of them are imported.
func (f *Finder) Plan(nb *notebook.Notebook, path string) []PlannedCell {
	code := nb.CodeCells()
	planned := make([]PlannedCell, 0, len(code))
	for i, cell := range code {
		index := i + 1
		planned = append(planned, PlannedCell{
			Index:  index,
			Label:  Label(path, index),
			Source: cell.Source,
			Skip:   f.skipReason(cell),
		})
	}
	return planned
}

func (f *Finder) skipReason(cell notebook.Cell) SkipReason {
	trimmed := strings.TrimSpace(cell.Source)
	for _, prefix := range f.directivePrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return SkipDirective
		}
	}
	if cell.HasTag(f.excludeTag) {
		return SkipNoImport
	}
	return SkipNone
}
