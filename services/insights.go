package services

import (
	"fmt"
	"io"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"

	"realclear-polls/models"
	"realclear-polls/utils"
)

// InsightService summarises a normalized polling dataset.
type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate expects the output of Normalizer.Normalize. Missing derived
// columns leave the matching fields at their zero value.
func (s *InsightService) Generate(ds *models.Dataset) *models.PollSummary {
	report := &models.PollSummary{Source: ds.Source, TotalPolls: ds.Len()}
	if ds.Len() == 0 {
		return report
	}

	if col, ok := ds.Column(ColVoterType); ok {
		for _, vt := range col.Strings() {
			switch vt {
			case "RV":
				report.RegisteredPolls++
			case "LV":
				report.LikelyPolls++
			}
		}
	}

	if col, ok := ds.Column(ColDifference); ok && col.Kind == models.KindFloat {
		diffs := col.Floats()
		report.MinDifference, report.MaxDifference = diffs[0], diffs[0]
		var total float64
		for _, d := range diffs {
			total += d
			report.MinDifference = math.Min(report.MinDifference, d)
			report.MaxDifference = math.Max(report.MaxDifference, d)
		}
		report.MeanDifference = round2(total / float64(len(diffs)))
	}

	if col, ok := ds.Column(ColEndDate); ok && col.Kind == models.KindDate {
		latest := 0
		for i, d := range col.Dates() {
			if d.After(col.Dates()[latest]) {
				latest = i
			}
		}
		report.LatestEndDate = col.Dates()[latest]
		if pollster, ok := ds.Lookup("pollster"); ok {
			report.LatestPollster = pollster.Format(latest)
		}
	}

	for _, name := range Candidates {
		col, ok := ds.Column(name)
		if !ok || col.Kind != models.KindFloat {
			continue
		}
		var total float64
		for _, v := range col.Floats() {
			total += v
		}
		report.Candidates = append(report.Candidates, models.CandidateMean{
			Candidate: name,
			Mean:      round2(total / float64(col.Len())),
		})
	}

	s.logger.Debug("[insights] %s: %d polls summarised", ds.Source, report.TotalPolls)
	return report
}

// Print renders the summary as two tables: overview and candidate means.
func (s *InsightService) Print(w io.Writer, r *models.PollSummary) {
	overview := table.NewWriter()
	overview.SetOutputMirror(w)
	overview.SetTitle("POLL SUMMARY")
	overview.AppendRows([]table.Row{
		{"Source", r.Source},
		{"Polls (RV/LV)", fmt.Sprintf("%d (%d/%d)", r.TotalPolls, r.RegisteredPolls, r.LikelyPolls)},
	})
	if r.TotalPolls > 0 {
		overview.AppendRows([]table.Row{
			{"Mean difference (R-D)", fmt.Sprintf("%+.2f", r.MeanDifference)},
			{"Range", fmt.Sprintf("%+.2f .. %+.2f", r.MinDifference, r.MaxDifference)},
		})
	}
	if !r.LatestEndDate.IsZero() {
		overview.AppendRow(table.Row{"Latest poll", fmt.Sprintf("%s (%s)",
			r.LatestEndDate.Format(models.DateLayout), r.LatestPollster)})
	}
	overview.SetStyle(table.StyleRounded)
	overview.Render()

	if len(r.Candidates) == 0 {
		return
	}

	candidates := table.NewWriter()
	candidates.SetOutputMirror(w)
	candidates.AppendHeader(table.Row{"Candidate", "Mean"})
	for _, c := range r.Candidates {
		candidates.AppendRow(table.Row{c.Candidate, fmt.Sprintf("%.2f", c.Mean)})
	}
	candidates.SetStyle(table.StyleRounded)
	candidates.Render()
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
