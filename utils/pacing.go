package utils

import (
	"context"
	"time"
)

// Pacer spaces outbound requests to the listing site.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedDelay waits the same duration after every request.
type FixedDelay struct {
	Delay time.Duration
}

func NewFixedDelay(d time.Duration) *FixedDelay {
	return &FixedDelay{Delay: d}
}

func (p *FixedDelay) Wait(ctx context.Context) error {
	return SleepCtx(ctx, p.Delay)
}

// SleepCtx waits for d or returns ctx.Err() if ctx is done first.
func SleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// URLSet tracks listing URLs that are already stored.
type URLSet struct {
	seen map[string]struct{}
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add returns true if the URL was newly added, false if already present.
func (s *URLSet) Add(url string) bool {
	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

func (s *URLSet) Contains(url string) bool {
	_, exists := s.seen[url]
	return exists
}

// Size returns the number of unique URLs tracked.
func (s *URLSet) Size() int {
	return len(s.seen)
}
