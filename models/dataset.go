package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the element type held by a Column.
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindInt
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindDate:
		return "date"
	}
	return "unknown"
}

// DateLayout is used when rendering date cells as text.
const DateLayout = "2006-01-02"

// Column is a named, homogeneously typed sequence of values.
// Exactly one of the backing slices is populated, selected by Kind.
type Column struct {
	Name string
	Kind Kind

	strs   []string
	floats []float64
	ints   []int
	dates  []time.Time
}

func (c *Column) Len() int {
	switch c.Kind {
	case KindFloat:
		return len(c.floats)
	case KindInt:
		return len(c.ints)
	case KindDate:
		return len(c.dates)
	}
	return len(c.strs)
}

// Strings returns the values of a string column, nil for any other kind.
func (c *Column) Strings() []string { return c.strs }

// Floats returns the values of a float column, nil for any other kind.
func (c *Column) Floats() []float64 { return c.floats }

// Ints returns the values of an int column, nil for any other kind.
func (c *Column) Ints() []int { return c.ints }

// Dates returns the values of a date column, nil for any other kind.
func (c *Column) Dates() []time.Time { return c.dates }

// Format renders the i-th value as text.
func (c *Column) Format(i int) string {
	switch c.Kind {
	case KindFloat:
		return strconv.FormatFloat(c.floats[i], 'f', -1, 64)
	case KindInt:
		return strconv.Itoa(c.ints[i])
	case KindDate:
		return c.dates[i].Format(DateLayout)
	}
	return c.strs[i]
}

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case KindFloat:
		out.floats = append([]float64(nil), c.floats...)
	case KindInt:
		out.ints = append([]int(nil), c.ints...)
	case KindDate:
		out.dates = append([]time.Time(nil), c.dates...)
	default:
		out.strs = append([]string(nil), c.strs...)
	}
	return out
}

func (c *Column) filter(keep []bool) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	for i, k := range keep {
		if !k {
			continue
		}
		switch c.Kind {
		case KindFloat:
			out.floats = append(out.floats, c.floats[i])
		case KindInt:
			out.ints = append(out.ints, c.ints[i])
		case KindDate:
			out.dates = append(out.dates, c.dates[i])
		default:
			out.strs = append(out.strs, c.strs[i])
		}
	}
	return out
}

// Dataset is a rectangular table of named, typed columns. Row order is
// insertion order and is preserved by every operation.
type Dataset struct {
	// Source is the URL the table was scraped from, used in error reports.
	Source string

	columns []*Column
	rows    int
}

// NewDataset builds a string-typed dataset from a header and data rows.
// Every row must have exactly len(header) cells; offset is added to the
// reported row index so callers can refer back to their raw table.
func NewDataset(source string, header []string, rows [][]string, offset int) (*Dataset, error) {
	ds := &Dataset{Source: source, rows: len(rows)}
	ds.columns = make([]*Column, len(header))
	for j, name := range header {
		ds.columns[j] = &Column{Name: name, Kind: KindString, strs: make([]string, len(rows))}
	}

	for i, row := range rows {
		if len(row) != len(header) {
			return nil, &Error{
				Kind: ErrRowShapeMismatch,
				URL:  source,
				Row:  i + offset,
				Err:  fmt.Errorf("got %d cells, header has %d", len(row), len(header)),
			}
		}
		for j, cell := range row {
			ds.columns[j].strs[i] = cell
		}
	}
	return ds, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.rows }

// Columns returns the columns in order. The slice must not be modified.
func (d *Dataset) Columns() []*Column { return d.columns }

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column with exactly this name exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.Column(name)
	return ok
}

// Column returns the first column with exactly this name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Lookup is Column with a case-insensitive fallback.
func (d *Dataset) Lookup(name string) (*Column, bool) {
	if c, ok := d.Column(name); ok {
		return c, true
	}
	for _, c := range d.columns {
		if strings.EqualFold(strings.TrimSpace(c.Name), name) {
			return c, true
		}
	}
	return nil, false
}

// Row returns the i-th row rendered as text.
func (d *Dataset) Row(i int) []string {
	out := make([]string, len(d.columns))
	for j, c := range d.columns {
		out[j] = c.Format(i)
	}
	return out
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{Source: d.Source, rows: d.rows, columns: make([]*Column, len(d.columns))}
	for i, c := range d.columns {
		out.columns[i] = c.clone()
	}
	return out
}

// Filter returns a new dataset holding only the rows where keep is true,
// in their original order.
func (d *Dataset) Filter(keep []bool) (*Dataset, error) {
	if len(keep) != d.rows {
		return nil, fmt.Errorf("dataset: filter mask has %d entries for %d rows", len(keep), d.rows)
	}
	out := &Dataset{Source: d.Source, columns: make([]*Column, len(d.columns))}
	for _, k := range keep {
		if k {
			out.rows++
		}
	}
	for i, c := range d.columns {
		out.columns[i] = c.filter(keep)
	}
	return out, nil
}

// SetStrings adds a string column, replacing an existing one of the same name in place.
func (d *Dataset) SetStrings(name string, vals []string) error {
	return d.set(&Column{Name: name, Kind: KindString, strs: vals}, len(vals))
}

// SetFloats adds a float column, replacing an existing one of the same name in place.
func (d *Dataset) SetFloats(name string, vals []float64) error {
	return d.set(&Column{Name: name, Kind: KindFloat, floats: vals}, len(vals))
}

// SetInts adds an int column, replacing an existing one of the same name in place.
func (d *Dataset) SetInts(name string, vals []int) error {
	return d.set(&Column{Name: name, Kind: KindInt, ints: vals}, len(vals))
}

// SetDates adds a date column, replacing an existing one of the same name in place.
func (d *Dataset) SetDates(name string, vals []time.Time) error {
	return d.set(&Column{Name: name, Kind: KindDate, dates: vals}, len(vals))
}

func (d *Dataset) set(col *Column, n int) error {
	if n != d.rows {
		return fmt.Errorf("dataset: column %q has %d values for %d rows", col.Name, n, d.rows)
	}
	for i, c := range d.columns {
		if c.Name == col.Name {
			d.columns[i] = col
			return nil
		}
	}
	d.columns = append(d.columns, col)
	return nil
}
