package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"scm-scheduler/src/logger"
	"scm-scheduler/src/models"

	"cloud.google.com/go/civil"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls atomic.Int32
	rows  []models.MRow
	err   error
}

func (p *countingProvider) Name() string { return "shift_a" }

func (p *countingProvider) RowsFor(_ context.Context, _ civil.Date) ([]models.MRow, error) {
	p.calls.Add(1)
	return p.rows, p.err
}

var testDate = civil.Date{Year: 2018, Month: time.January, Day: 1}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(models.MCacheConfig{Enabled: true, RedisAddr: mr.Addr(), TTLSeconds: 60}, logger.NewNopLogger("cache"))
	t.Cleanup(func() { c.Close() })
	require.True(t, c.IsAvailable())
	return c, mr
}

func TestCachedProviderServesRepeatedReadsFromRedis(t *testing.T) {
	c, mr := newTestCache(t)
	inner := &countingProvider{rows: []models.MRow{
		models.NewRow([]string{"Scheduled_Date", "Station", "Unit"}, []interface{}{"2018-01-01", "Casting", int64(1)}),
	}}
	p := NewCachedProvider(inner, c)

	first, err := p.RowsFor(context.Background(), testDate)
	require.NoError(t, err)
	second, err := p.RowsFor(context.Background(), testDate)
	require.NoError(t, err)

	assert.Equal(t, int32(1), inner.calls.Load())
	assert.True(t, mr.Exists(KeyProviderRows+"shift_a:2018-01-01"))

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.JSONEq(t, string(a), string(b))
	assert.Equal(t, "shift_a", p.Name())
}

func TestCachedProviderCachesEmptyResults(t *testing.T) {
	c, _ := newTestCache(t)
	inner := &countingProvider{rows: []models.MRow{}}
	p := NewCachedProvider(inner, c)

	for i := 0; i < 3; i++ {
		rows, err := p.RowsFor(context.Background(), testDate)
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	}
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachedProviderDoesNotCacheErrors(t *testing.T) {
	c, mr := newTestCache(t)
	inner := &countingProvider{err: errors.New("table gone")}
	p := NewCachedProvider(inner, c)

	_, err := p.RowsFor(context.Background(), testDate)
	assert.Error(t, err)
	assert.Empty(t, mr.Keys())
}

func TestCacheDisablesItselfOnRedisError(t *testing.T) {
	c, mr := newTestCache(t)
	inner := &countingProvider{rows: []models.MRow{}}
	p := NewCachedProvider(inner, c)

	mr.Close()

	_, err := p.RowsFor(context.Background(), testDate)
	require.NoError(t, err)
	assert.False(t, c.IsAvailable())

	_, err = p.RowsFor(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestNewWithUnreachableRedisRunsWithoutCache(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	c := New(models.MCacheConfig{RedisAddr: addr, TTLSeconds: 60}, logger.NewNopLogger("cache"))
	assert.False(t, c.IsAvailable())
	assert.NoError(t, c.InvalidateProvider(context.Background(), "shift_a"))
	assert.NoError(t, c.Close())
}

func TestInvalidateProvider(t *testing.T) {
	c, mr := newTestCache(t)
	inner := &countingProvider{rows: []models.MRow{}}
	p := NewCachedProvider(inner, c)

	_, err := p.RowsFor(context.Background(), testDate)
	require.NoError(t, err)
	_, err = p.RowsFor(context.Background(), testDate.AddDays(1))
	require.NoError(t, err)
	require.NoError(t, mr.Set(KeyProviderRows+"forecast:2018-01-01", "[]"))

	require.NoError(t, c.InvalidateProvider(context.Background(), "shift_a"))
	assert.Equal(t, []string{KeyProviderRows + "forecast:2018-01-01"}, mr.Keys())
}
