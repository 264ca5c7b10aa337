package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"mse_backend_project/models"
	"mse_backend_project/services/archive"
	"mse_backend_project/services/scraper"

	"golang.org/x/sync/errgroup"
)

const (
	lookbackDays = 365 * 10
	windowDays   = 365
)

// HistoryFetcher retrieves one instrument's trade history for a bounded
// date range.
type HistoryFetcher interface {
	FetchHistory(code string, from, to time.Time) ([]models.TradeRecord, error)
}

// HistorySyncService keeps per-instrument archives current. Stale
// instruments are rebuilt from the full 10-year history, fetched in
// 365-day windows, by a bounded worker pool.
type HistorySyncService struct {
	scraper HistoryFetcher
	store   *archive.Store
	workers int
	retries int
}

// NewHistorySyncService creates a synchronizer with the given pool size and
// per-window retry limit.
func NewHistorySyncService(sc HistoryFetcher, store *archive.Store, workers, retries int) *HistorySyncService {
	if workers < 1 {
		workers = 1
	}
	if retries < 1 {
		retries = 1
	}
	return &HistorySyncService{
		scraper: sc,
		store:   store,
		workers: workers,
		retries: retries,
	}
}

// Stale reports whether an instrument's archive needs a rebuild: there is
// no archive, or the last archived date is not today while today is a
// trading day. Only Sunday exempts an archive from the freshness
// requirement; holidays are not modeled.
func (s *HistorySyncService) Stale(code string, now time.Time) bool {
	last, ok, err := s.store.LastDate(code)
	if err != nil {
		// An unreadable archive is rebuilt like a missing one.
		log.Printf("Warning: reading archive for %s: %v", code, err)
		return true
	}
	if !ok {
		return true
	}
	if sameDay(last, now) {
		return false
	}
	return now.Weekday() != time.Sunday
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// fetchWindow fetches one slice with bounded retry and exponential backoff.
// Markup-shape failures are permanent and never retried.
func (s *HistorySyncService) fetchWindow(ctx context.Context, code string, from, to time.Time) ([]models.TradeRecord, error) {
	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Second << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		records, err := s.scraper.FetchHistory(code, from, to)
		if err == nil {
			return records, nil
		}
		if errors.Is(err, scraper.ErrMarkup) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d attempts: %w", s.retries, lastErr)
}

// rebuild fetches an instrument's full history window by window, sorts and
// deduplicates it, and commits the archive in a single write. A failed
// window aborts the rebuild before anything is written, leaving any prior
// archive untouched.
func (s *HistorySyncService) rebuild(ctx context.Context, code string, now time.Time) error {
	var all []models.TradeRecord
	for from := now.AddDate(0, 0, -lookbackDays); from.Before(now); from = from.AddDate(0, 0, windowDays) {
		to := from.AddDate(0, 0, windowDays)
		records, err := s.fetchWindow(ctx, code, from, to)
		if err != nil {
			return fmt.Errorf("window %s..%s: %w", from.Format(models.DateLayout), to.Format(models.DateLayout), err)
		}
		all = append(all, records...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })
	deduped := all[:0]
	var prev time.Time
	for _, rec := range all {
		if len(deduped) > 0 && sameDay(rec.Date, prev) {
			continue
		}
		deduped = append(deduped, rec)
		prev = rec.Date
	}

	if err := s.store.WriteArchive(code, deduped); err != nil {
		return err
	}
	log.Printf("Data for %s saved with %d rows", code, len(deduped))
	return nil
}

// Refresh rebuilds every stale instrument using a bounded worker pool, then
// merges all archives into the aggregate file. A failed rebuild is isolated
// to its instrument; siblings and the merge proceed.
func (s *HistorySyncService) Refresh(ctx context.Context, codes []string) error {
	now := time.Now()

	var stale []string
	for _, code := range codes {
		if s.Stale(code, now) {
			stale = append(stale, code)
		}
	}
	log.Printf("Refreshing %d of %d instruments", len(stale), len(codes))

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, code := range stale {
		g.Go(func() error {
			if err := s.rebuild(ctx, code, now); err != nil {
				log.Printf("Error rebuilding %s: %v", code, err)
			}
			return nil
		})
	}
	g.Wait()

	// Merge runs strictly after the pool drains.
	if err := s.store.MergeArchives(codes); err != nil {
		return fmt.Errorf("merge archives: %w", err)
	}
	return nil
}
