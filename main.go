package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"realclear-polls/config"
	"realclear-polls/models"
	"realclear-polls/scraper/realclear"
	"realclear-polls/services"
	"realclear-polls/storage"
	"realclear-polls/utils"
)

type app struct {
	cfg        *config.Config
	logger     *utils.Logger
	fetcher    *realclear.Fetcher
	normalizer *services.Normalizer
	insights   *services.InsightService
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := utils.NewLogger(utils.ParseLevel(cfg.LogLevel))

	var renderer realclear.Renderer
	switch cfg.Renderer {
	case config.RendererChrome:
		renderer = &realclear.ChromeRenderer{
			ChromeBin: cfg.ChromeBin,
			Settle:    cfg.SettleDelay,
			Timeout:   cfg.RenderTimeout,
			Logger:    logger,
		}
	case config.RendererHTTP:
		renderer = realclear.NewHTTPRenderer(cfg.RenderTimeout)
	default:
		return nil, fmt.Errorf("unknown RENDERER %q (want %s or %s)", cfg.Renderer, config.RendererChrome, config.RendererHTTP)
	}

	retry := &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   cfg.RetryBaseDelay,
		Logger:      logger,
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		fetcher:    realclear.New(renderer, logger, retry),
		normalizer: services.NewNormalizer(logger),
		insights:   services.NewInsightService(logger),
	}, nil
}

// resolve accepts a scenario name or a literal URL.
func (a *app) resolve(arg string) (string, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return arg, nil
	}
	return a.cfg.Scenarios.URL(arg)
}

func (a *app) run(ctx context.Context, url string, raw bool) (*models.Dataset, error) {
	ds, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if raw {
		return ds, nil
	}
	return a.normalizer.Normalize(ds)
}

func writeCSV(path string, ds *models.Dataset) error {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	if err := w.Write(ds); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func main() {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "realclear-polls",
		Short:         "Scrapes RealClearPolling general-election tables and normalizes them for charting.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "urls",
		Short: "Prints the known scenarios and their URLs.",
		Run: func(cmd *cobra.Command, args []string) {
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Scenario", "URL"})
			urls := a.cfg.Scenarios.URLs()
			for _, name := range a.cfg.Scenarios.Names() {
				t.AppendRow(table.Row{name, urls[name]})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
		},
	})

	var (
		raw     bool
		csvPath string
		rows    int
	)
	fetchCmd := &cobra.Command{
		Use:   "fetch [scenario|url]",
		Short: "Fetches one polling page and prints the cleaned table.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := config.TwoCandidate
			if len(args) == 1 {
				target = args[0]
			}
			url, err := a.resolve(target)
			if err != nil {
				return err
			}

			ds, err := a.run(cmd.Context(), url, raw)
			if err != nil {
				return err
			}

			if err := storage.NewTableWriter(os.Stdout, rows).Write(ds); err != nil {
				return err
			}
			if !raw {
				a.insights.Print(os.Stdout, a.insights.Generate(ds))
			}
			if csvPath != "" {
				if err := writeCSV(csvPath, ds); err != nil {
					return err
				}
				a.logger.Info("Dataset saved to %s", csvPath)
			}
			return nil
		},
	}
	fetchCmd.Flags().BoolVar(&raw, "raw", false, "print the extracted table without normalizing it")
	fetchCmd.Flags().StringVar(&csvPath, "csv", "", "also write the dataset to this CSV file")
	fetchCmd.Flags().IntVar(&rows, "rows", 20, "rows to print, 0 for all")
	root.AddCommand(fetchCmd)

	var csvDir string
	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Fetches and normalizes every scenario.",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool := utils.NewWorkerPool(a.cfg.MaxConcurrency, a.cfg.RateLimit)
			results := a.fetcher.FetchAll(cmd.Context(), a.cfg.Scenarios, pool)

			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
					continue
				}
				clean, err := a.normalizer.Normalize(res.Dataset)
				if err != nil {
					a.logger.Error("%s: %v", res.Scenario, err)
					failed++
					continue
				}
				a.insights.Print(os.Stdout, a.insights.Generate(clean))

				if csvDir != "" {
					path := filepath.Join(csvDir, res.Scenario+".csv")
					if err := writeCSV(path, clean); err != nil {
						return err
					}
					a.logger.Info("%s saved to %s", res.Scenario, path)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
			}
			return nil
		},
	}
	allCmd.Flags().StringVar(&csvDir, "csv-dir", "", "write one CSV per scenario into this directory")
	root.AddCommand(allCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		a.logger.Error("%v", err)
		os.Exit(1)
	}
}
