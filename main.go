package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rental-scraper/config"
	"rental-scraper/mailbox"
	"rental-scraper/metrics"
	"rental-scraper/scraper/rentfaster"
	"rental-scraper/services"
	"rental-scraper/storage"
	"rental-scraper/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		savePath  string
		maxEmails int
	)

	cmd := &cobra.Command{
		Use:          "rental-scraper",
		Short:        "Cache rental listings linked from a Gmail label",
		Long:         "Reads listing links from a Gmail label, scrapes every listing not yet cached, adds travel times to the configured destinations and appends the rows to a CSV file.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), config.Load(), savePath, maxEmails)
		},
	}
	cmd.Flags().StringVar(&savePath, "save-path", "", "path to save results to; if the file exists, results are appended")
	cmd.Flags().IntVar(&maxEmails, "max-emails", 1, "the maximum number of emails to query")
	_ = cmd.MarkFlagRequired("save-path")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, savePath string, maxEmails int) error {
	logger := utils.NewLogger(cfg.AppEnv, cfg.LogLevel).With("run_id", uuid.NewString())

	logger.Info("=== Rental Scraper starting ===")
	logger.Info("Config: store %s | max emails: %d | fetch: %s | delay: %v",
		savePath, maxEmails, cfg.FetchMode, cfg.ScrapeDelay)

	destinations, err := config.LoadDestinations(cfg.DestinationsFile)
	if err != nil {
		logger.Error("Failed to load destinations: %v", err)
		return err
	}

	store, err := storage.LoadCSVStore(savePath)
	if err != nil {
		logger.Error("Failed to load listing store: %v", err)
		return err
	}
	logger.Info("Loaded %d cached listing(s) from %s", store.Len(), savePath)

	gmailAPI, err := mailbox.NewGmailAPI(ctx, cfg.GmailCredentialsPath, cfg.GmailTokenPath)
	if err != nil {
		logger.Error("Failed to connect to Gmail: %v", err)
		return err
	}
	source := mailbox.NewGmailSource(gmailAPI, cfg.GmailLabelID, cfg.GmailHTMLPart, cfg.ListingBaseURL, logger)

	mapsClient, err := services.NewMapsClient(cfg.MapsAPIKey)
	if err != nil {
		logger.Error("Failed to create directions client: %v", err)
		return err
	}
	estimator := services.NewTravelEstimator(mapsClient, destinations, cfg.DirectionsQPS, logger)

	fetcher, closeFetcher, err := newFetcher(ctx, cfg)
	if err != nil {
		logger.Error("Failed to create page fetcher: %v", err)
		return err
	}
	defer closeFetcher()

	m := metrics.New()
	opts := []services.Option{services.WithMetrics(m)}
	if cfg.PostgresEnabled {
		pgWriter, err := storage.NewPostgresWriter(ctx, cfg.DSN(), &utils.RetryConfig{
			MaxAttempts: cfg.PostgresAttempts,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		})
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			return err
		}
		defer pgWriter.Close()
		opts = append(opts, services.WithMirrors(pgWriter))
	}

	pipeline := services.NewPipeline(
		store,
		source,
		rentfaster.New(fetcher, estimator, logger),
		utils.NewFixedDelay(cfg.ScrapeDelay),
		logger,
		opts...,
	)

	report, err := pipeline.Ingest(ctx, maxEmails)
	if err != nil {
		logger.Error("Ingest failed: %v", err)
		return err
	}

	if cfg.MetricsTextfile != "" {
		if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warn("Failed to write metrics to %s: %v", cfg.MetricsTextfile, err)
		}
	}

	insightSvc := services.NewInsightService(logger, destinations)
	insightSvc.Print(os.Stdout, insightSvc.Generate(store.Records(), report))

	fmt.Printf("  Done. %d new listing(s) -> %s\n\n", report.Appended, savePath)
	return nil
}

func newFetcher(ctx context.Context, cfg *config.Config) (rentfaster.Fetcher, func(), error) {
	switch cfg.FetchMode {
	case config.FetchModeHTTP:
		return rentfaster.NewHTTPFetcher(cfg.HTTPTimeout), func() {}, nil
	case config.FetchModeBrowser:
		b, err := rentfaster.NewBrowserFetcher(ctx, cfg.ChromeBin, cfg.HTTPTimeout)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown FETCH_MODE %q", cfg.FetchMode)
	}
}
