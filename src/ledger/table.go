package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Table is a dataset loaded as raw CSV cells.
type Table struct {
	Path   string
	Header []string
	Rows   [][]string
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func (t *Table) requireColumns(names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for _, n := range names {
		i := t.Column(n)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, n)
		}
		idx[n] = i
	}
	return idx, nil
}

// Cell returns the trimmed cell value, or "" when the row is short.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func parseTable(path string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return &Table{Path: path, Header: header, Rows: records[1:]}, nil
}

func (t *Table) encode() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Table) clone() *Table {
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]string(nil), r...)
	}
	return &Table{Path: t.Path, Header: append([]string(nil), t.Header...), Rows: rows}
}

// ColumnKind is the inferred type of a column.
type ColumnKind string

const (
	KindInt    ColumnKind = "int64"
	KindFloat  ColumnKind = "float64"
	KindObject ColumnKind = "object"
)

// Kind infers the column type from its non-empty cells.
func (t *Table) Kind(col int) ColumnKind {
	kind := KindInt
	seen := false
	for _, row := range t.Rows {
		v := t.Cell(row, col)
		if v == "" {
			continue
		}
		seen = true
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			kind = KindFloat
			continue
		}
		return KindObject
	}
	if !seen {
		return KindObject
	}
	return kind
}

func parseQuantity(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("quantity %q is not a whole number", s)
	}
	return int64(f), nil
}

// parseFraction accepts 0.03 or 3%.
func parseFraction(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid storage %q", s)
		}
		return f / 100, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid storage %q", s)
	}
	return f, nil
}
