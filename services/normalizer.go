package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"realclear-polls/models"
	"realclear-polls/utils"
)

// Source columns as they appear on the polling pages.
const (
	ColSample = "sample"
	ColDate   = "date"
	ColTrump  = "Trump (R)"
	ColBiden  = "Biden (D)"
)

// Derived columns, in the order they are added.
const (
	ColDifference = "Difference"
	ColVoterType  = "Type of Voter"
	ColSampleSize = "Sample Size"
	ColEndDate    = "End Date"
	ColPollMonth  = "Poll Month"
	ColYear       = "Year"
	ColDaysSince  = "Days Since 01-01-23"
)

// Candidates are coerced to float when the page carries them. The
// two-, three- and five-candidate pages differ only in which are present.
var Candidates = []string{"Biden (D)", "Trump (R)", "Kennedy (I)", "West (I)", "Stein (G)"}

// DaysSinceEpoch is the origin of the ColDaysSince column.
var DaysSinceEpoch = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

var keptVoterTypes = map[string]struct{}{
	"RV": {},
	"LV": {},
}

// Normalizer derives the charting columns from a fetched polling table.
type Normalizer struct {
	logger *utils.Logger
	now    func() time.Time
}

// NewNormalizer creates a Normalizer that infers years from the wall clock.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger, now: time.Now}
}

// WithClock returns a copy of n that reads the current year from now.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	return &Normalizer{logger: n.logger, now: now}
}

// Normalize returns a cleaned copy of ds; ds itself is never modified.
// The steps run in a fixed order because later columns read earlier ones.
func (n *Normalizer) Normalize(ds *models.Dataset) (*models.Dataset, error) {
	out := ds.Clone()

	year := n.now().Year()
	current, previous := strconv.Itoa(year), strconv.Itoa(year-1)

	steps := []struct {
		name string
		fn   func(*models.Dataset) error
	}{
		{"difference", addDifference},
		{"voter type", addVoterType},
		{"sample size", addSampleSize},
		{"end date text", addEndDateText},
		{"poll month", addPollMonth},
		{"year", func(d *models.Dataset) error { return addYear(d, current, previous) }},
		{"end date", parseEndDate},
	}
	for _, s := range steps {
		if err := s.fn(out); err != nil {
			return nil, err
		}
		n.logger.Debug("[normalizer] %s: step %q done", ds.Source, s.name)
	}

	out, err := filterVoterTypes(out)
	if err != nil {
		return nil, err
	}
	if err := coerceCandidates(out); err != nil {
		return nil, err
	}
	if err := addDaysSince(out); err != nil {
		return nil, err
	}

	n.logger.Info("[normalizer] %s: %d rows normalized", ds.Source, out.Len())
	return out, nil
}

// addDifference is Trump (R) minus Biden (D).
func addDifference(ds *models.Dataset) error {
	trump, err := floatValues(ds, ColTrump)
	if err != nil {
		return err
	}
	biden, err := floatValues(ds, ColBiden)
	if err != nil {
		return err
	}

	diff := make([]float64, ds.Len())
	for i := range diff {
		diff[i] = trump[i] - biden[i]
	}
	return ds.SetFloats(ColDifference, diff)
}

// addVoterType takes the second space-separated token of sample, "" when
// there is none.
func addVoterType(ds *models.Dataset) error {
	samples, err := stringValues(ds, ColSample)
	if err != nil {
		return err
	}

	types := make([]string, len(samples))
	for i, s := range samples {
		if parts := strings.Split(s, " "); len(parts) > 1 {
			types[i] = parts[1]
		}
	}
	return ds.SetStrings(ColVoterType, types)
}

// addSampleSize takes the first space-separated token of sample as a
// number, 0 when it does not parse.
func addSampleSize(ds *models.Dataset) error {
	samples, err := stringValues(ds, ColSample)
	if err != nil {
		return err
	}

	sizes := make([]int, len(samples))
	for i, s := range samples {
		token := strings.Split(s, " ")[0]
		v, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sizes[i] = int(v)
	}
	return ds.SetInts(ColSampleSize, sizes)
}

// endDateText returns the part of a "start - end" date range after the
// first "-".
func endDateText(date string) (string, error) {
	parts := strings.Split(date, "-")
	if len(parts) < 2 {
		return "", fmt.Errorf("%q has no end date", date)
	}
	return parts[1], nil
}

func addEndDateText(ds *models.Dataset) error {
	dates, err := stringValues(ds, ColDate)
	if err != nil {
		return err
	}

	ends := make([]string, len(dates))
	for i, d := range dates {
		end, err := endDateText(d)
		if err != nil {
			return &models.Error{Kind: models.ErrUnparseableDate, URL: ds.Source, Row: i, Column: ColDate, Err: err}
		}
		ends[i] = end
	}
	return ds.SetStrings(ColEndDate, ends)
}

// addPollMonth reads the month from the "month/day" end of the date range.
func addPollMonth(ds *models.Dataset) error {
	dates, err := stringValues(ds, ColDate)
	if err != nil {
		return err
	}

	months := make([]int, len(dates))
	for i, d := range dates {
		end, err := endDateText(d)
		if err == nil {
			months[i], err = strconv.Atoi(strings.TrimSpace(strings.Split(end, "/")[0]))
		}
		if err != nil {
			return &models.Error{Kind: models.ErrUnparseableDate, URL: ds.Source, Row: i, Column: ColDate, Err: err}
		}
	}
	return ds.SetInts(ColPollMonth, months)
}

// addYear assumes rows are listed newest first across one year boundary.
// Rows up to and including the first December row get the current year,
// the rest the previous one.
func addYear(ds *models.Dataset, current, previous string) error {
	col, ok := ds.Column(ColPollMonth)
	if !ok {
		return &models.Error{Kind: models.ErrMissingColumn, URL: ds.Source, Row: -1, Column: ColPollMonth}
	}

	firstDecember := -1
	for i, m := range col.Ints() {
		if m == 12 {
			firstDecember = i
			break
		}
	}
	if firstDecember < 0 {
		return &models.Error{Kind: models.ErrMissingDecemberRow, URL: ds.Source, Row: -1, Column: ColPollMonth}
	}

	years := make([]string, ds.Len())
	for i := range years {
		if i <= firstDecember {
			years[i] = current
		} else {
			years[i] = previous
		}
	}
	return ds.SetStrings(ColYear, years)
}

// parseEndDate appends the year to the end-date text and parses the result,
// replacing the text column with dates.
func parseEndDate(ds *models.Dataset) error {
	ends, err := stringValues(ds, ColEndDate)
	if err != nil {
		return err
	}
	years, err := stringValues(ds, ColYear)
	if err != nil {
		return err
	}

	dates := make([]time.Time, len(ends))
	for i := range ends {
		raw := strings.TrimSpace(ends[i]) + "/" + years[i]
		t, err := dateparse.ParseIn(raw, time.UTC)
		if err != nil {
			return &models.Error{
				Kind:   models.ErrUnparseableDate,
				URL:    ds.Source,
				Row:    i,
				Column: ColEndDate,
				Err:    fmt.Errorf("%q: %w", raw, err),
			}
		}
		dates[i] = t
	}
	return ds.SetDates(ColEndDate, dates)
}

// filterVoterTypes keeps registered and likely voter polls. Other rows are
// dropped without complaint.
func filterVoterTypes(ds *models.Dataset) (*models.Dataset, error) {
	types, err := stringValues(ds, ColVoterType)
	if err != nil {
		return nil, err
	}

	keep := make([]bool, len(types))
	for i, t := range types {
		_, keep[i] = keptVoterTypes[t]
	}
	return ds.Filter(keep)
}

func coerceCandidates(ds *models.Dataset) error {
	for _, name := range Candidates {
		if !ds.Has(name) {
			continue
		}
		vals, err := floatValues(ds, name)
		if err != nil {
			return err
		}
		if err := ds.SetFloats(name, vals); err != nil {
			return err
		}
	}
	return nil
}

func addDaysSince(ds *models.Dataset) error {
	col, ok := ds.Column(ColEndDate)
	if !ok || col.Kind != models.KindDate {
		return &models.Error{Kind: models.ErrMissingColumn, URL: ds.Source, Row: -1, Column: ColEndDate}
	}

	days := make([]int, ds.Len())
	for i, t := range col.Dates() {
		days[i] = int(math.Floor(t.Sub(DaysSinceEpoch).Hours() / 24))
	}
	return ds.SetInts(ColDaysSince, days)
}

// stringValues returns the text of a column, found by exact name first and
// then case-insensitively.
func stringValues(ds *models.Dataset, name string) ([]string, error) {
	col, ok := ds.Lookup(name)
	if !ok {
		return nil, &models.Error{Kind: models.ErrMissingColumn, URL: ds.Source, Row: -1, Column: name}
	}
	if col.Kind == models.KindString {
		return col.Strings(), nil
	}
	out := make([]string, col.Len())
	for i := range out {
		out[i] = col.Format(i)
	}
	return out, nil
}

func floatValues(ds *models.Dataset, name string) ([]float64, error) {
	col, ok := ds.Column(name)
	if !ok {
		return nil, &models.Error{Kind: models.ErrMissingColumn, URL: ds.Source, Row: -1, Column: name}
	}

	switch col.Kind {
	case models.KindFloat:
		return append([]float64(nil), col.Floats()...), nil
	case models.KindInt:
		out := make([]float64, col.Len())
		for i, v := range col.Ints() {
			out[i] = float64(v)
		}
		return out, nil
	case models.KindString:
		out := make([]float64, col.Len())
		for i, s := range col.Strings() {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				var numErr *strconv.NumError
				if errors.As(err, &numErr) {
					err = numErr.Err
				}
				return nil, &models.Error{
					Kind:   models.ErrUnparseableNumber,
					URL:    ds.Source,
					Row:    i,
					Column: name,
					Err:    fmt.Errorf("%q: %w", s, err),
				}
			}
			out[i] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("normalizer: column %q has kind %s, want number", name, col.Kind)
}
