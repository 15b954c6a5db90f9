package notebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnsupportedFormat is returned for nbformat major versions the reader does not understand.
var ErrUnsupportedFormat = errors.New("notebook: unsupported nbformat version")

// CellType tags a cell as code or narrative content.
type CellType string

const (
	CellCode     CellType = "code"
	CellMarkdown CellType = "markdown"
	CellRaw      CellType = "raw"
	CellHeading  CellType = "heading"
)

// Cell is one record of a notebook, in document order.
type Cell struct {
	Type     CellType
	Source   string
	Metadata map[string]any
}

// IsCode reports whether the cell holds executable source.
func (c Cell) IsCode() bool {
	return c.Type == CellCode
}

// Tags returns metadata.tags. A plain string counts as a single tag and list
// entries that are not strings are dropped.
func (c Cell) Tags() []string {
	var raw []any
	switch v := c.Metadata["tags"].(type) {
	case string:
		return []string{v}
	case []any:
		raw = v
	default:
		return nil
	}
	tags := make([]string, 0, len(raw))
	for _, entry := range raw {
		if tag, ok := entry.(string); ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

// HasTag reports whether tag appears verbatim in metadata.tags.
func (c Cell) HasTag(tag string) bool {
	for _, t := range c.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}

// Notebook is the ordered cell sequence of one document.
type Notebook struct {
	Format      int
	FormatMinor int
	Metadata    map[string]any
	Cells       []Cell
}

// CodeCells returns the code cells in document order.
func (nb *Notebook) CodeCells() []Cell {
	if nb == nil {
		return nil
	}
	var cells []Cell
	for _, cell := range nb.Cells {
		if cell.IsCode() {
			cells = append(cells, cell)
		}
	}
	return cells
}

type rawNotebook struct {
	Format      int            `json:"nbformat"`
	FormatMinor int            `json:"nbformat_minor"`
	Metadata    map[string]any `json:"metadata"`
	Cells       []rawCell      `json:"cells"`
	Worksheets  []rawWorksheet `json:"worksheets"`
}

type rawWorksheet struct {
	Cells []rawCell `json:"cells"`
}

type rawCell struct {
	Type     string         `json:"cell_type"`
	Source   multiline      `json:"source"`
	Input    multiline      `json:"input"`
	Metadata map[string]any `json:"metadata"`
}

// multiline accepts both a plain string and the list-of-lines form nbformat
// writes by default. Lines already carry their trailing newlines.
type multiline string

func (m *multiline) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*m = multiline(text)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("source must be a string or a list of strings")
	}
	*m = multiline(strings.Join(lines, ""))
	return nil
}

// Read parses an nbformat v3 or v4 document.
func Read(r io.Reader) (*Notebook, error) {
	if r == nil {
		return nil, fmt.Errorf("notebook: reader is nil")
	}
	var raw rawNotebook
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("notebook: decode: %w", err)
	}
	nb := &Notebook{
		Format:      raw.Format,
		FormatMinor: raw.FormatMinor,
		Metadata:    raw.Metadata,
	}
	switch raw.Format {
	case 4:
		nb.Cells = convertCells(raw.Cells, false)
	case 3:
		for _, ws := range raw.Worksheets {
			nb.Cells = append(nb.Cells, convertCells(ws.Cells, true)...)
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, raw.Format)
	}
	return nb, nil
}

func convertCells(raw []rawCell, legacy bool) []Cell {
	cells := make([]Cell, 0, len(raw))
	for _, rc := range raw {
		cell := Cell{
			Type:     CellType(strings.TrimSpace(rc.Type)),
			Source:   string(rc.Source),
			Metadata: rc.Metadata,
		}
		if cell.Metadata == nil {
			cell.Metadata = map[string]any{}
		}
		if legacy && cell.Type == CellCode {
			cell.Source = string(rc.Input)
		}
		cells = append(cells, cell)
	}
	return cells
}
