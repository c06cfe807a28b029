// Package metrics counts what an ingest run did and writes the result for
// the node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rental_scraper"

type Metrics struct {
	reg *prometheus.Registry

	Candidates     prometheus.Counter
	Cached         prometheus.Counter
	Scrapes        *prometheus.CounterVec
	Appended       prometheus.Counter
	MirrorErrors   prometheus.Counter
	ScrapeDuration prometheus.Histogram
	LastSuccess    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "candidates_total", Help: "Listing URLs found in the mailbox.",
		}),
		Cached: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cached_total", Help: "Candidates already in the store.",
		}),
		Scrapes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "scrapes_total", Help: "Scrape attempts by result.",
		}, []string{"result"}),
		Appended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "appended_total", Help: "Records appended to the store.",
		}),
		MirrorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "mirror_errors_total", Help: "Failed writes to a mirror backend.",
		}),
		ScrapeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "scrape_duration_seconds", Help: "Time to scrape and enrich one listing.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds", Help: "Unix time of the last successful run.",
		}),
	}
	m.reg.MustRegister(m.Candidates, m.Cached, m.Scrapes, m.Appended, m.MirrorErrors, m.ScrapeDuration, m.LastSuccess)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveScrape records one scrape attempt.
func (m *Metrics) ObserveScrape(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Scrapes.WithLabelValues(result).Inc()
	m.ScrapeDuration.Observe(d.Seconds())
}

// MarkSuccess stamps the end of a successful run.
func (m *Metrics) MarkSuccess(at time.Time) {
	m.LastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes every metric in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
