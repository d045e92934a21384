package realclear

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"realclear-polls/config"
	"realclear-polls/models"
	"realclear-polls/utils"
)

var tracer = otel.Tracer("realclear-polls/scraper/realclear")

// headerRows is the number of leading table rows that are not data: the
// column header and the row under it.
const headerRows = 2

// Fetcher renders a polling page and extracts its data table.
type Fetcher struct {
	renderer Renderer
	logger   *utils.Logger
	retry    *utils.RetryConfig
}

// New creates a Fetcher. A nil retry makes a single render attempt.
func New(renderer Renderer, logger *utils.Logger, retry *utils.RetryConfig) *Fetcher {
	r := utils.RetryConfig{MaxAttempts: 1, Logger: logger}
	if retry != nil {
		r = *retry
	}
	if r.Retryable == nil {
		r.Retryable = models.IsTransient
	}
	return &Fetcher{renderer: renderer, logger: logger, retry: &r}
}

// Fetch renders url and returns its polling table as a string-typed dataset.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*models.Dataset, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	ds, err := f.fetch(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("rows", ds.Len()), attribute.Int("columns", len(ds.Columns())))
	return ds, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (*models.Dataset, error) {
	f.logger.Info("[fetcher] Rendering %s", url)

	var html string
	err := f.retry.Do(ctx, "render "+url, func() error {
		out, err := f.renderer.Render(ctx, url)
		html = out
		return err
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("fetcher: parse html from %s: %w", url, err)
	}

	table, err := SelectTable(url, doc)
	if err != nil {
		return nil, err
	}

	rows := ExtractRows(table)
	f.logger.Debug("[fetcher] %s: extracted %d table rows", url, len(rows))

	ds, err := BuildDataset(url, rows)
	if err != nil {
		return nil, err
	}

	f.logger.Info("[fetcher] %s: %d rows x %d columns", url, ds.Len(), len(ds.Columns()))
	return ds, nil
}

// SelectTable picks the data table. A page with two tables carries page
// furniture first, so the second is used; a single table is used as is.
// Zero tables and three or more are errors.
func SelectTable(url string, doc *goquery.Document) (*goquery.Selection, error) {
	tables := doc.Find("table")
	switch n := tables.Length(); n {
	case 0:
		return nil, &models.Error{Kind: models.ErrNoDataTable, URL: url, Row: -1}
	case 1:
		return tables.Eq(0), nil
	case 2:
		return tables.Eq(1), nil
	default:
		return nil, &models.Error{
			Kind: models.ErrAmbiguousTable,
			URL:  url,
			Row:  -1,
			Err:  fmt.Errorf("found %d tables, expected 1 or 2", n),
		}
	}
}

// ExtractRows returns the trimmed text of every td/th cell, row by row.
func ExtractRows(table *goquery.Selection) [][]string {
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td, th")
		row := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.TrimSpace(cell.Text()))
		})
		rows = append(rows, row)
	})
	return rows
}

// BuildDataset labels columns with row 0 and keeps rows from index 2 on.
func BuildDataset(url string, rows [][]string) (*models.Dataset, error) {
	if len(rows) == 0 {
		return nil, &models.Error{
			Kind: models.ErrNoDataTable,
			URL:  url,
			Row:  -1,
			Err:  errors.New("table has no rows"),
		}
	}

	var data [][]string
	if len(rows) > headerRows {
		data = rows[headerRows:]
	}
	return models.NewDataset(url, rows[0], data, headerRows)
}

// Result is the outcome of fetching one scenario.
type Result struct {
	Scenario string
	URL      string
	Dataset  *models.Dataset
	Err      error
}

// FetchAll fetches every scenario through pool and returns the results
// ordered by scenario name. Each fetch is independent; one failing does not
// stop the others.
func (f *Fetcher) FetchAll(ctx context.Context, scenarios config.Scenarios, pool *utils.WorkerPool) []Result {
	names := scenarios.Names()
	results := make([]Result, len(names))

	var mu sync.Mutex
	for i, name := range names {
		i, name := i, name
		url := scenarios[name]
		pool.Submit(func() {
			res := Result{Scenario: name, URL: url}
			if err := ctx.Err(); err != nil {
				res.Err = err
			} else {
				res.Dataset, res.Err = f.Fetch(ctx, url)
			}
			if res.Err != nil {
				f.logger.Error("[fetcher] %s failed: %v", name, res.Err)
			}

			mu.Lock()
			results[i] = res
			mu.Unlock()
		})
	}
	pool.Wait()

	return results
}
