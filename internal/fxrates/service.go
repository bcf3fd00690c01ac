package fxrates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Service serves the current rate from cache, coalescing upstream calls and
// falling back to a configured default when the upstream is unavailable.
type Service struct {
	fetcher  Fetcher
	cache    *cache.Store
	fallback decimal.Decimal
	logger   *slog.Logger
	group    singleflight.Group
	now      func() time.Time
	recorder Recorder
}

// Recorder counts lookups by the source that answered them.
type Recorder interface {
	RecordFXLookup(source string)
}

func NewService(fetcher Fetcher, store *cache.Store, fallback decimal.Decimal, logger *slog.Logger) *Service {
	return &Service{
		fetcher:  fetcher,
		cache:    store,
		fallback: fallback,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithRecorder attaches a lookup recorder.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

func (s *Service) record(source string) {
	if s.recorder != nil {
		s.recorder.RecordFXLookup(source)
	}
}

var cacheKey = shared.FXRateKey(SourceBCV)

// Current returns the cached rate, fetching it once when the cache is cold.
// It never fails: upstream errors yield the default rate.
func (s *Service) Current(ctx context.Context) (Rate, error) {
	var cached Rate
	found, err := s.cache.GetJSON(ctx, cacheKey, &cached)
	if err != nil {
		s.logger.Warn("fx cache read failed", slog.Any("error", err))
	}
	if found {
		s.record(cached.Source)
		return cached, nil
	}

	ch := s.group.DoChan(cacheKey, func() (any, error) {
		return s.Refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return Rate{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.logger.Warn("fx rate unavailable, using default",
				slog.Any("error", res.Err),
				slog.String("default", s.fallback.String()))
			s.record(SourceDefault)
			return s.Default(), nil
		}
		rate := res.Val.(Rate)
		s.record(rate.Source)
		return rate, nil
	}
}

// Refresh fetches the upstream rate and stores it in the cache.
func (s *Service) Refresh(ctx context.Context) (Rate, error) {
	rate, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return Rate{}, err
	}
	if err := s.cache.SetJSON(ctx, cacheKey, rate); err != nil {
		s.logger.Warn("fx cache write failed", slog.Any("error", err))
	}
	s.logger.Debug("fx rate refreshed", slog.String("rate", rate.Value.String()))
	return rate, nil
}

// Default is the configured fallback rate.
func (s *Service) Default() Rate {
	now := s.now()
	return Rate{Value: s.fallback, Source: SourceDefault, UpdatedAt: now, FetchedAt: now}
}

// Convert returns the USD equivalent of a bolivar amount at the current rate.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, Rate, error) {
	rate, err := s.Current(ctx)
	if err != nil {
		return decimal.Zero, Rate{}, err
	}
	usd, err := USDEquivalent(amount, rate.Value)
	if err != nil {
		return decimal.Zero, rate, fmt.Errorf("convert %s: %w", amount, err)
	}
	return usd, rate, nil
}
