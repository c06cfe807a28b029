package services

import (
	"context"
	"fmt"
	"time"

	"rental-scraper/metrics"
	"rental-scraper/models"
	"rental-scraper/storage"
	"rental-scraper/utils"
)

// CandidateSource lists listing URLs that may not be stored yet.
type CandidateSource interface {
	ListCandidateURLs(ctx context.Context, maxItems int) ([]string, error)
}

// ListingScraper builds the record for one listing URL.
type ListingScraper interface {
	Scrape(ctx context.Context, url string) (*models.Record, error)
}

// Pipeline discovers candidates, skips the ones already stored, scrapes the
// rest one at a time and persists the store.
type Pipeline struct {
	store   storage.ListingStore
	source  CandidateSource
	scraper ListingScraper
	pacer   utils.Pacer
	mirrors []storage.RecordWriter
	metrics *metrics.Metrics
	logger  *utils.Logger
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithMirrors also writes newly appended records to each writer.
func WithMirrors(mirrors ...storage.RecordWriter) Option {
	return func(p *Pipeline) { p.mirrors = append(p.mirrors, mirrors...) }
}

// WithMetrics records run counters into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func NewPipeline(store storage.ListingStore, source CandidateSource, scraper ListingScraper,
	pacer utils.Pacer, logger *utils.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:   store,
		source:  source,
		scraper: scraper,
		pacer:   pacer,
		metrics: metrics.New(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest runs one batch. Candidate failures are logged and skipped; mailbox,
// store and cancellation errors end the run.
func (p *Pipeline) Ingest(ctx context.Context, maxCandidates int) (*models.RunReport, error) {
	urls, err := p.source.ListCandidateURLs(ctx, maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	report := &models.RunReport{Candidates: len(urls)}
	p.metrics.Candidates.Add(float64(len(urls)))
	p.logger.Info("[ingest] %d candidate listing(s), %d already stored in total", len(urls), p.store.Len())

	for _, url := range urls {
		if p.store.Contains(url) {
			report.Cached++
			p.metrics.Cached.Inc()
			p.logger.Debug("[ingest] already cached: %s", url)
			continue
		}

		if err := p.scrapeOne(ctx, url, report); err != nil {
			return nil, err
		}

		if err := p.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("pacing wait: %w", err)
		}
	}

	if err := p.store.Save(); err != nil {
		return nil, fmt.Errorf("save store: %w", err)
	}

	p.mirror(ctx, report.Added)
	p.metrics.MarkSuccess(time.Now())

	p.logger.Info("[ingest] done: %d candidate(s), %d cached, %d scraped, %d failed, %d appended",
		report.Candidates, report.Cached, report.Scraped, report.Failed, report.Appended)
	return report, nil
}

// scrapeOne only returns an error when the run must stop.
func (p *Pipeline) scrapeOne(ctx context.Context, url string, report *models.RunReport) error {
	start := time.Now()
	rec, err := p.scraper.Scrape(ctx, url)
	report.Scraped++

	if err == nil {
		err = p.store.Append(rec)
	}
	p.metrics.ObserveScrape(time.Since(start), err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("scrape %s: %w", url, ctxErr)
		}
		report.Failed++
		report.Failures = append(report.Failures, models.Failure{URL: url, Err: err.Error()})
		p.logger.Error("[ingest] Failed to parse %s error = %v", url, err)
		return nil
	}

	report.Appended++
	report.Added = append(report.Added, rec)
	p.metrics.Appended.Inc()
	return nil
}

func (p *Pipeline) mirror(ctx context.Context, added []*models.Record) {
	if len(added) == 0 {
		return
	}
	for _, m := range p.mirrors {
		if err := m.Write(ctx, added); err != nil {
			p.metrics.MirrorErrors.Inc()
			p.logger.Error("[ingest] mirror write failed: %v", err)
		}
	}
}
