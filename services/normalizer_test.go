package services

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"realclear-polls/models"
	"realclear-polls/utils"
)

func newTestLogger() *utils.Logger { return utils.NewWriterLogger(utils.LevelDebug, io.Discard) }

func fixedNormalizer() *Normalizer {
	clock := func() time.Time { return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC) }
	return NewNormalizer(newTestLogger()).WithClock(clock)
}

func dataset(t *testing.T, header []string, rows ...[]string) *models.Dataset {
	t.Helper()
	ds, err := models.NewDataset("https://example.com/polls", header, rows, 2)
	require.NoError(t, err)
	return ds
}

var twoCandidateHeader = []string{"pollster", "date", "sample", "Trump (R)", "Biden (D)"}

func twoCandidateRows(t *testing.T) *models.Dataset {
	return dataset(t, twoCandidateHeader,
		[]string{"Emerson", "2/13 - 2/14", "1225 RV", "45", "44"},
		[]string{"Quinnipiac", "1/25 - 1/29", "1650 RV", "48", "50"},
		[]string{"Pew", "1/16 - 1/21", "5140 A", "49", "48"},
		[]string{"CNN", "12/18 - 12/21", "1205 LV", "46.5", "44"},
		[]string{"Marquette", "11/27 - 12/7", "674 LV", "52", "48"},
		[]string{"NBC", "11/10 - 11/14", "1000 RV", "46", "44"},
	)
}

func column(t *testing.T, ds *models.Dataset, name string) *models.Column {
	t.Helper()
	col, ok := ds.Column(name)
	require.True(t, ok, "missing column %q", name)
	return col
}

func TestNormalizeScenario(t *testing.T) {
	ds := dataset(t, []string{"Date", "Sample", "Trump (R)", "Biden (D)"},
		[]string{"11/1 - 11/3", "800 RV", "47", "45"},
		[]string{"12/28 - 12/30", "810 LV", "46", "44"},
	)

	out, err := fixedNormalizer().Normalize(ds)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	require.Equal(t, []float64{2, 2}, column(t, out, ColDifference).Floats())
	require.Equal(t, []string{"RV", "LV"}, column(t, out, ColVoterType).Strings())
	require.Equal(t, []int{800, 810}, column(t, out, ColSampleSize).Ints())
	require.Equal(t, []int{11, 12}, column(t, out, ColPollMonth).Ints())
	require.Equal(t, []string{"2024", "2024"}, column(t, out, ColYear).Strings())
	require.Equal(t, []time.Time{
		time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC),
	}, column(t, out, ColEndDate).Dates())
	require.Equal(t, []int{672, 729}, column(t, out, ColDaysSince).Ints())
	require.Equal(t, []float64{47, 46}, column(t, out, ColTrump).Floats())
}

func TestNormalizeColumnOrder(t *testing.T) {
	out, err := fixedNormalizer().Normalize(twoCandidateRows(t))
	require.NoError(t, err)

	want := append(append([]string(nil), twoCandidateHeader...),
		ColDifference, ColVoterType, ColSampleSize, ColEndDate, ColPollMonth, ColYear, ColDaysSince)
	if diff := cmp.Diff(want, out.Names()); diff != "" {
		t.Errorf("column order mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeYearBoundary(t *testing.T) {
	ds := dataset(t, twoCandidateHeader,
		[]string{"a", "11/1 - 11/3", "800 RV", "47", "45"},
		[]string{"b", "12/1 - 12/3", "800 RV", "47", "45"},
		[]string{"c", "1/1 - 1/3", "800 RV", "47", "45"},
		[]string{"d", "2/1 - 2/3", "800 RV", "47", "45"},
	)

	out, err := fixedNormalizer().Normalize(ds)
	require.NoError(t, err)
	require.Equal(t, []string{"2024", "2024", "2023", "2023"}, column(t, out, ColYear).Strings())
	require.Equal(t, time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC), column(t, out, ColEndDate).Dates()[2])
}

func TestNormalizeUsesFirstDecemberRow(t *testing.T) {
	out, err := fixedNormalizer().Normalize(twoCandidateRows(t))
	require.NoError(t, err)

	// Pew (adults) is filtered out after the years are assigned.
	require.Equal(t, []string{"2024", "2024", "2024", "2023", "2023"}, column(t, out, ColYear).Strings())
}

func TestNormalizeFiltersVoterTypes(t *testing.T) {
	out, err := fixedNormalizer().Normalize(twoCandidateRows(t))
	require.NoError(t, err)

	for _, vt := range column(t, out, ColVoterType).Strings() {
		require.Contains(t, []string{"RV", "LV"}, vt)
	}
	require.Equal(t,
		[]string{"Emerson", "Quinnipiac", "CNN", "Marquette", "NBC"},
		column(t, out, "pollster").Strings(),
		"filtering must keep the input order")
}

func TestNormalizeDropsRowsWithoutVoterType(t *testing.T) {
	ds := dataset(t, twoCandidateHeader,
		[]string{"a", "12/1 - 12/3", "800", "47", "45"},
		[]string{"b", "12/1 - 12/3", "800 LV", "47", "45"},
	)
	out, err := fixedNormalizer().Normalize(ds)
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, column(t, out, "pollster").Strings())
}

func TestNormalizeSampleSizeDefaultsToZero(t *testing.T) {
	ds := dataset(t, twoCandidateHeader,
		[]string{"a", "12/1 - 12/3", "-- RV", "47", "45"},
		[]string{"b", "12/1 - 12/3", "1,200 LV", "47", "45"},
		[]string{"c", "12/1 - 12/3", "950.0 LV", "47", "45"},
	)
	out, err := fixedNormalizer().Normalize(ds)
	require.NoError(t, err)
	require.Equal(t, []int{0, 0, 950}, column(t, out, ColSampleSize).Ints())
}

func TestNormalizeTwoCandidateSchema(t *testing.T) {
	out, err := fixedNormalizer().Normalize(twoCandidateRows(t))
	require.NoError(t, err)

	for _, name := range []string{"Kennedy (I)", "West (I)", "Stein (G)"} {
		require.False(t, out.Has(name), "unexpected column %q", name)
	}
	require.Equal(t, models.KindFloat, column(t, out, ColBiden).Kind)
}

func TestNormalizeFiveCandidateSchema(t *testing.T) {
	header := []string{"pollster", "date", "sample", "Trump (R)", "Biden (D)", "Kennedy (I)", "West (I)", "Stein (G)"}
	ds := dataset(t, header,
		[]string{"a", "2/1 - 2/3", "800 RV", "41", "38", "10", "2", "1.5"},
		[]string{"b", "12/1 - 12/3", "900 A", "40", "39", "--", "--", "--"},
		[]string{"c", "12/1 - 12/3", "700 LV", "42", "37", "9", "1", "2"},
	)

	out, err := fixedNormalizer().Normalize(ds)
	require.NoError(t, err)
	require.Equal(t, []float64{10, 9}, column(t, out, "Kennedy (I)").Floats())
	require.Equal(t, []float64{1.5, 2}, column(t, out, "Stein (G)").Floats())
	require.Equal(t, []float64{3, 5}, column(t, out, ColDifference).Floats())
}

func TestNormalizeIsPure(t *testing.T) {
	in := twoCandidateRows(t)
	before := in.Clone()
	n := fixedNormalizer()

	first, err := n.Normalize(in)
	require.NoError(t, err)
	second, err := n.Normalize(in)
	require.NoError(t, err)

	require.Equal(t, first.Names(), second.Names())
	for i := 0; i < first.Len(); i++ {
		require.Equal(t, first.Row(i), second.Row(i))
	}

	require.Equal(t, before.Names(), in.Names(), "input columns must be untouched")
	for i := 0; i < in.Len(); i++ {
		require.Equal(t, before.Row(i), in.Row(i))
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		rows   [][]string
		kind   error
		row    int
		column string
	}{
		{
			name:   "no december row",
			header: twoCandidateHeader,
			rows:   [][]string{{"a", "2/1 - 2/3", "800 RV", "47", "45"}, {"b", "1/1 - 1/3", "800 RV", "47", "45"}},
			kind:   models.ErrMissingDecemberRow,
			row:    -1,
			column: ColPollMonth,
		},
		{
			name:   "empty dataset has no december row",
			header: twoCandidateHeader,
			kind:   models.ErrMissingDecemberRow,
			row:    -1,
			column: ColPollMonth,
		},
		{
			name:   "date without range",
			header: twoCandidateHeader,
			rows:   [][]string{{"a", "12/1 - 12/3", "800 RV", "47", "45"}, {"b", "1/3", "800 RV", "47", "45"}},
			kind:   models.ErrUnparseableDate,
			row:    1,
			column: ColDate,
		},
		{
			name:   "month is not a number",
			header: twoCandidateHeader,
			rows:   [][]string{{"a", "12/1 - Dec 3", "800 RV", "47", "45"}},
			kind:   models.ErrUnparseableDate,
			row:    0,
			column: ColDate,
		},
		{
			name:   "impossible calendar day",
			header: twoCandidateHeader,
			rows:   [][]string{{"a", "12/1 - 12/3", "800 RV", "47", "45"}, {"b", "2/28 - 2/30", "800 RV", "47", "45"}},
			kind:   models.ErrUnparseableDate,
			row:    1,
			column: ColEndDate,
		},
		{
			name:   "candidate share is not a number",
			header: twoCandidateHeader,
			rows:   [][]string{{"a", "12/1 - 12/3", "800 RV", "--", "45"}},
			kind:   models.ErrUnparseableNumber,
			row:    0,
			column: ColTrump,
		},
		{
			name:   "missing sample column",
			header: []string{"date", "Trump (R)", "Biden (D)"},
			rows:   [][]string{{"12/1 - 12/3", "47", "45"}},
			kind:   models.ErrMissingColumn,
			row:    -1,
			column: ColSample,
		},
		{
			name:   "missing biden column",
			header: []string{"date", "sample", "Trump (R)"},
			rows:   [][]string{{"12/1 - 12/3", "800 RV", "47"}},
			kind:   models.ErrMissingColumn,
			row:    -1,
			column: ColBiden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := dataset(t, tt.header, tt.rows...)
			_, err := fixedNormalizer().Normalize(ds)
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.kind), "got %v", err)

			var perr *models.Error
			require.True(t, errors.As(err, &perr))
			require.Equal(t, tt.row, perr.Row)
			require.Equal(t, tt.column, perr.Column)
			require.Equal(t, "https://example.com/polls", perr.URL)
		})
	}
}
