package fxrates

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
)

type stubFetcher struct {
	calls atomic.Int32
	rate  Rate
	err   error
	delay time.Duration
}

func (f *stubFetcher) Fetch(ctx context.Context) (Rate, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.rate, f.err
}

func newTestService(t *testing.T, fetcher Fetcher) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(fetcher, cache.NewStore(client, 30*time.Minute), decimal.RequireFromString("36.50"), logger), mr
}

func TestCurrentCachesUpstreamRate(t *testing.T) {
	fetcher := &stubFetcher{rate: Rate{Value: decimal.RequireFromString("40.10"), Source: SourceBCV}}
	svc, mr := newTestService(t, fetcher)
	ctx := context.Background()

	first, err := svc.Current(ctx)
	require.NoError(t, err)
	second, err := svc.Current(ctx)
	require.NoError(t, err)

	assert.Equal(t, "40.1", first.Value.String())
	assert.True(t, first.Value.Equal(second.Value))
	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.True(t, mr.Exists("fx:rate:BCV"))

	mr.FastForward(31 * time.Minute)
	_, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestCurrentFallsBackToDefault(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("dial tcp: connection refused")}
	svc, mr := newTestService(t, fetcher)

	rate, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.IsFallback())
	assert.Equal(t, "36.5", rate.Value.String())
	assert.False(t, mr.Exists("fx:rate:BCV"))
}

func TestCurrentCoalescesConcurrentMisses(t *testing.T) {
	fetcher := &stubFetcher{rate: Rate{Value: decimal.NewFromInt(41), Source: SourceBCV}, delay: 50 * time.Millisecond}
	svc, _ := newTestService(t, fetcher)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rate, err := svc.Current(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "41", rate.Value.String())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestCurrentWithoutRedis(t *testing.T) {
	fetcher := &stubFetcher{rate: Rate{Value: decimal.NewFromInt(39), Source: SourceBCV}}
	svc := NewService(fetcher, nil, decimal.NewFromInt(36), slog.New(slog.NewTextHandler(io.Discard, nil)))

	rate, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "39", rate.Value.String())
}

func TestRefreshPropagatesErrors(t *testing.T) {
	svc, _ := newTestService(t, &stubFetcher{err: errors.New("boom")})
	_, err := svc.Refresh(context.Background())
	assert.Error(t, err)
}

func TestConvert(t *testing.T) {
	svc, _ := newTestService(t, &stubFetcher{rate: Rate{Value: decimal.RequireFromString("36.50"), Source: SourceBCV}})
	usd, rate, err := svc.Convert(context.Background(), decimal.RequireFromString("29.00"))
	require.NoError(t, err)
	assert.Equal(t, "0.79", usd.StringFixed(2))
	assert.Equal(t, SourceBCV, rate.Source)
}

func TestUSDEquivalent(t *testing.T) {
	tests := []struct {
		total, rate, want string
		wantErr          bool
	}{
		{total: "29.00", rate: "36.50", want: "0.79"},
		{total: "3650", rate: "36.50", want: "100.00"},
		{total: "1", rate: "3", want: "0.33"},
		{total: "2", rate: "3", want: "0.67"},
		{total: "10", rate: "0", wantErr: true},
		{total: "10", rate: "-1", wantErr: true},
	}
	for _, tt := range tests {
		got, err := USDEquivalent(decimal.RequireFromString(tt.total), decimal.RequireFromString(tt.rate))
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidRate)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.StringFixed(2))
	}
}

type stubRates struct{ rate Rate }

func (s stubRates) Current(ctx context.Context) (Rate, error) { return s.rate, nil }

func TestRateEndpointConvertsAmount(t *testing.T) {
	h := NewHandler(stubRates{rate: Rate{Value: decimal.NewFromInt(40), Source: SourceBCV}})
	req := httptest.NewRequest(http.MethodGet, "/tasa?monto=100", nil)
	rr := httptest.NewRecorder()
	h.current(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"equivalente_usd":"2.5"`)
	assert.Contains(t, rr.Body.String(), `"fuente":"BCV"`)

	req = httptest.NewRequest(http.MethodGet, "/tasa?monto=abc", nil)
	rr = httptest.NewRecorder()
	h.current(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
