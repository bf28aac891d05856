package ledger

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Summary renders a dataset the way the read_ledger tool reports it: shape,
// columns, a preview of the first rows, inferred column types, numeric
// statistics, and for the inventory the low and high storage subsets.
func (s *Store) Summary(ds Dataset) (string, error) {
	t, err := s.Load(ds)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "CSV File: %s\n\n", t.Path)
	fmt.Fprintf(&sb, "Shape: %d rows, %d columns\n\n", len(t.Rows), len(t.Header))
	fmt.Fprintf(&sb, "Columns: %s\n\n", strings.Join(t.Header, ", "))

	n := min(s.cfg.PreviewRows, len(t.Rows))
	fmt.Fprintf(&sb, "First %d rows:\n", n)
	sb.WriteString(renderRows(t, t.Rows[:n]))
	sb.WriteString("\n")

	sb.WriteString("Data types:\n")
	sb.WriteString(renderKinds(t))
	sb.WriteString("\n")

	if stats := renderStats(t); stats != "" {
		sb.WriteString("Basic statistics:\n")
		sb.WriteString(stats)
	}

	if ds == Inventory {
		low, high, err := s.thresholdRows(t)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "\nLow storage items (below %s):\n", percent(s.cfg.LowThreshold))
		sb.WriteString(renderSubset(t, low))
		fmt.Fprintf(&sb, "\nHigh storage items (above %s):\n", percent(s.cfg.HighThreshold))
		sb.WriteString(renderSubset(t, high))
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}

func (s *Store) thresholdRows(t *Table) (low, high [][]string, err error) {
	col := t.Column("storage")
	if col < 0 {
		return nil, nil, &StoreUnreadableError{Path: t.Path, Err: fmt.Errorf("%w: storage", ErrMissingColumn)}
	}
	for _, row := range t.Rows {
		f, err := parseFraction(t.Cell(row, col))
		if err != nil {
			return nil, nil, &StoreUnreadableError{Path: t.Path, Err: err}
		}
		switch {
		case f < s.cfg.LowThreshold:
			low = append(low, row)
		case f > s.cfg.HighThreshold:
			high = append(high, row)
		}
	}
	return low, high, nil
}

func percent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', -1, 64) + "%"
}

func renderSubset(t *Table, rows [][]string) string {
	if len(rows) == 0 {
		return "None\n"
	}
	return renderRows(t, rows)
}

func renderRows(t *Table, rows [][]string) string {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\t%s\t\n", strings.Join(t.Header, "\t"))
	for i, row := range rows {
		cells := make([]string, len(t.Header))
		for c := range t.Header {
			cells[c] = t.Cell(row, c)
		}
		fmt.Fprintf(tw, "%d\t%s\t\n", i, strings.Join(cells, "\t"))
	}
	tw.Flush()
	return sb.String()
}

func renderKinds(t *Table) string {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 4, ' ', 0)
	for c, h := range t.Header {
		fmt.Fprintf(tw, "%s\t%s\n", h, t.Kind(c))
	}
	tw.Flush()
	return sb.String()
}

// renderStats reports count, mean, min, and max for numeric columns.
func renderStats(t *Table) string {
	var cols []int
	for c := range t.Header {
		if k := t.Kind(c); k == KindInt || k == KindFloat {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return ""
	}

	type stat struct{ count, mean, min, max float64 }
	stats := make([]stat, len(cols))
	for i, c := range cols {
		st := stat{min: math.Inf(1), max: math.Inf(-1)}
		var sum float64
		for _, row := range t.Rows {
			v := t.Cell(row, c)
			if v == "" {
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			st.count++
			sum += f
			st.min = math.Min(st.min, f)
			st.max = math.Max(st.max, f)
		}
		if st.count > 0 {
			st.mean = sum / st.count
		}
		stats[i] = st
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = t.Header[c]
	}
	fmt.Fprintf(tw, "\t%s\t\n", strings.Join(header, "\t"))
	for _, line := range []struct {
		name string
		get  func(stat) float64
	}{
		{"count", func(s stat) float64 { return s.count }},
		{"mean", func(s stat) float64 { return s.mean }},
		{"min", func(s stat) float64 { return s.min }},
		{"max", func(s stat) float64 { return s.max }},
	} {
		cells := make([]string, len(stats))
		for i, st := range stats {
			if st.count == 0 {
				cells[i] = "NaN"
				continue
			}
			cells[i] = strconv.FormatFloat(line.get(st), 'f', 6, 64)
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", line.name, strings.Join(cells, "\t"))
	}
	tw.Flush()
	return sb.String()
}
