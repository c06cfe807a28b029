package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"rental-scraper/models"
	"rental-scraper/utils"
)

const (
	priceField = "price"
	bedsField  = "beds"
)

type InsightService struct {
	logger       *utils.Logger
	destinations []string
}

func NewInsightService(logger *utils.Logger, destinations []models.Destination) *InsightService {
	names := make([]string, 0, len(destinations))
	for _, d := range destinations {
		names = append(names, d.Name)
	}
	return &InsightService{logger: logger, destinations: names}
}

// Generate summarises every stored record. run may be nil.
func (s *InsightService) Generate(records []*models.Record, run *models.RunReport) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByBeds: make(map[string]int),
	}
	if run != nil {
		report.AddedThisRun = run.Appended
		report.FailedThisRun = run.Failed
	}
	if len(records) == 0 {
		return report
	}
	report.TotalListings = len(records)

	var total float64
	travelSum := make(map[string]float64)
	travelN := make(map[string]int)

	for _, r := range records {
		if v, ok := r.Get(priceField); ok {
			if price, ok := v.Float(); ok && price > 0 {
				if report.PricedListings == 0 || price < report.MinPrice {
					report.MinPrice = price
					report.Cheapest = r.URL()
				}
				if price > report.MaxPrice {
					report.MaxPrice = price
				}
				total += price
				report.PricedListings++
			}
		}

		if v, ok := r.Get(bedsField); ok && v.String() != "" {
			report.ListingsByBeds[v.String()]++
		}

		for _, key := range r.Keys() {
			if !s.isTravelField(key) {
				continue
			}
			v, _ := r.Get(key)
			if secs, ok := v.Float(); ok {
				travelSum[key] += secs
				travelN[key]++
			}
		}
	}

	if report.PricedListings > 0 {
		report.AveragePrice = round2(total / float64(report.PricedListings))
	}

	for field, n := range travelN {
		report.TravelAverages = append(report.TravelAverages, models.TravelAverage{
			Field:      field,
			AvgMinutes: round2(travelSum[field] / float64(n) / 60),
			Samples:    n,
		})
	}
	sort.Slice(report.TravelAverages, func(i, j int) bool {
		return report.TravelAverages[i].Field < report.TravelAverages[j].Field
	})

	s.logger.Debug("[insights] %d listing(s), %d priced, %d travel column(s)",
		report.TotalListings, report.PricedListings, len(report.TravelAverages))
	return report
}

func (s *InsightService) isTravelField(key string) bool {
	for _, name := range s.destinations {
		if strings.HasPrefix(key, name+"_") && len(key) > len(name)+1 {
			return true
		}
	}
	return false
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n%s\n", sep)
	fmt.Fprintf(w, "  RENTAL LISTING CACHE SUMMARY\n")
	fmt.Fprintf(w, "%s\n\n", sep)

	fmt.Fprintf(w, "  Overview\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings stored     : %d\n", r.TotalListings)
	fmt.Fprintf(w, "  Added this run      : %d\n", r.AddedThisRun)
	fmt.Fprintf(w, "  Failed this run     : %d\n", r.FailedThisRun)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Price Statistics (per month)\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Fprintf(w, "  Average price : $%.2f\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : $%.2f\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : $%.2f\n", r.MaxPrice)
		fmt.Fprintf(w, "  Cheapest      : %s\n", r.Cheapest)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Average Travel Times\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TravelAverages) == 0 {
		fmt.Fprintf(w, "  No travel data\n")
	}
	for _, t := range r.TravelAverages {
		fmt.Fprintf(w, "  %-30s %7.1f min (%d)\n", truncate(t.Field, 30), t.AvgMinutes, t.Samples)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Listings by Bedrooms\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsByBeds) == 0 {
		fmt.Fprintf(w, "  No bedroom data\n")
	} else {
		beds := make([]string, 0, len(r.ListingsByBeds))
		for b := range r.ListingsByBeds {
			beds = append(beds, b)
		}
		sort.Strings(beds)
		for _, b := range beds {
			n := r.ListingsByBeds[b]
			fmt.Fprintf(w, "  %-10s %s (%d)\n", truncate(b, 10), strings.Repeat("█", n), n)
		}
	}

	fmt.Fprintf(w, "\n%s\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
