package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"lianjia-rentals/config"
	"lianjia-rentals/report"
	"lianjia-rentals/scraper/lianjia"
	"lianjia-rentals/services"
	"lianjia-rentals/storage"
	"lianjia-rentals/utils"
)

func main() {
	storeFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "db-driver",
			Usage: "Database driver: sqlite or postgres.",
		},
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "SQLite file path or PostgreSQL DSN.",
		},
	}
	scrapeFlags := []cli.Flag{
		&cli.IntFlag{
			Name:  "first-page",
			Usage: "First list page to fetch.",
		},
		&cli.IntFlag{
			Name:    "pages",
			Aliases: []string{"last-page", "p"},
			Usage:   "Last list page to fetch.",
		},
		&cli.StringFlag{
			Name:  "fetch-mode",
			Usage: "Page fetcher: http or browser.",
		},
		&cli.StringFlag{
			Name:  "csv",
			Usage: "Also export scraped rows to this CSV file.",
		},
	}
	reportFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "Directory for the rendered charts.",
		},
		&cli.StringFlag{
			Name:  "font",
			Usage: "TTF/OTF font used for chart labels.",
		},
	}

	app := &cli.App{
		Name:  "lianjia-rentals",
		Usage: "Scrape Shanghai rental listings and chart the market.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: info or debug.",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "scrape",
				Usage:  "Fetch the listing pages and store every parsed rental.",
				Flags:  concat(storeFlags, scrapeFlags),
				Action: runScrape,
			},
			{
				Name:   "report",
				Usage:  "Load stored rentals, print a summary and render the charts.",
				Flags:  concat(storeFlags, reportFlags),
				Action: runReport,
			},
			{
				Name:  "run",
				Usage: "Scrape, then report.",
				Flags: concat(storeFlags, scrapeFlags, reportFlags),
				Action: func(ctx *cli.Context) error {
					if err := runScrape(ctx); err != nil {
						return err
					}
					return runReport(ctx)
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// loadConfig reads the environment and applies any flags set on the command line.
func loadConfig(ctx *cli.Context) *config.Config {
	cfg := config.Load()

	if ctx.IsSet("log-level") {
		cfg.LogLevel = ctx.String("log-level")
	}
	if ctx.IsSet("db-driver") {
		cfg.DBDriver = ctx.String("db-driver")
	}
	if ctx.IsSet("db") {
		cfg.DBDSN = ctx.String("db")
	}
	if ctx.IsSet("first-page") {
		cfg.FirstPage = ctx.Int("first-page")
	}
	if ctx.IsSet("pages") {
		cfg.LastPage = ctx.Int("pages")
	}
	if ctx.IsSet("fetch-mode") {
		cfg.FetchMode = ctx.String("fetch-mode")
	}
	if ctx.IsSet("csv") {
		cfg.RawCSVPath = ctx.String("csv")
	}
	if ctx.IsSet("out") {
		cfg.ReportDir = ctx.String("out")
	}
	if ctx.IsSet("font") {
		cfg.ReportFontPath = ctx.String("font")
	}
	return cfg
}

func openStore(ctx *cli.Context, cfg *config.Config, logger *utils.Logger) (*storage.SQLStore, error) {
	store, err := storage.OpenSQLStore(ctx.Context, cfg.DBDriver, cfg.DBDSN, cfg.DBConnectRetries, logger)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s database %q: %w", cfg.DBDriver, cfg.DBDSN, err)
	}
	return store, nil
}

func newFetcher(cfg *config.Config) (lianjia.Fetcher, func(), error) {
	switch cfg.FetchMode {
	case config.FetchModeHTTP:
		f, err := lianjia.NewHTTPFetcher(cfg.RequestTimeout(), cfg.UserAgent)
		return f, func() {}, err
	case config.FetchModeBrowser:
		f := lianjia.NewBrowserFetcher(cfg.ChromeBin, cfg.UserAgent, cfg.RequestTimeout())
		return f, func() { _ = f.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown fetch mode %q (want %s or %s)",
			cfg.FetchMode, config.FetchModeHTTP, config.FetchModeBrowser)
	}
}

func runScrape(ctx *cli.Context) error {
	cfg := loadConfig(ctx)
	logger := utils.NewLogger(cfg.LogLevel)

	logger.Info("=== Lianjia rental scrape starting ===")
	logger.Info("Config: pages %d-%d | delay %v | fetch %s | store %s",
		cfg.FirstPage, cfg.LastPage, cfg.PageDelay(), cfg.FetchMode, cfg.DBDriver)

	fetcher, closeFetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	defer closeFetcher()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var export storage.RawRecordWriter
	if cfg.RawCSVPath != "" {
		csvWriter, err := storage.NewCSVWriter(cfg.RawCSVPath)
		if err != nil {
			logger.Warn("CSV export disabled: %v", err)
		} else {
			defer csvWriter.Close()
			export = csvWriter
		}
	}

	sum, err := lianjia.New(cfg, logger, fetcher, store, export).Scrape(ctx.Context)
	if err != nil {
		return err
	}

	if export != nil {
		logger.Info("Raw rows exported to %s", cfg.RawCSVPath)
	}
	logger.Info("Scrape finished: %d new rows stored", sum.RowsInserted)
	return nil
}

func runReport(ctx *cli.Context) error {
	cfg := loadConfig(ctx)
	logger := utils.NewLogger(cfg.LogLevel)

	logger.Info("=== Lianjia rental report starting ===")

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.LoadAll(ctx.Context)
	if err != nil {
		return fmt.Errorf("cannot read rentals: %w", err)
	}
	logger.Info("Loaded %d stored rentals", len(records))

	listings := services.NewCleaner(logger).Normalize(records)
	if len(listings) == 0 {
		logger.Warn("No listings with a usable price and area; nothing to chart")
		return nil
	}

	insightSvc := services.NewInsightService(logger)
	insights := insightSvc.Generate(listings)
	insightSvc.Print(insights)

	renderer, err := report.NewRenderer(cfg.ReportDir, cfg.ReportFontPath, logger)
	if err != nil {
		return err
	}
	rendered := renderer.Render(insights.Views)

	if cfg.S3Bucket != "" && len(rendered.Written) > 0 {
		publisher, err := report.NewS3Publisher(ctx.Context, cfg.S3Bucket, cfg.S3Prefix, logger)
		if err != nil {
			logger.Error("Skipping upload: %v", err)
		} else {
			publisher.Publish(ctx.Context, rendered.Written)
		}
	}

	fmt.Printf("  Done. Charts → %s (%d written, %d failed)\n\n",
		cfg.ReportDir, len(rendered.Written), len(rendered.Failed))
	return nil
}
