// Package aggregator assembles the daily scheduling snapshot from the row providers.
package aggregator

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"scm-scheduler/src/config"
	"scm-scheduler/src/helpers"
	"scm-scheduler/src/interfaces"
	"scm-scheduler/src/logger"
	"scm-scheduler/src/metrics"
	"scm-scheduler/src/models"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// TimestampLayout renders the generation instant in UTC with six fractional
// digits.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// -----------------------------------------------------------------------------

// DayAggregator joins the five datasets of one calendar date. It holds no
// mutable state and is shared by every session.
type DayAggregator struct {
	providers    map[string]interfaces.IRowProvider
	datasets     map[string]models.MDatasetConfig
	productLines []models.MProductLine
	logger       *logger.Logger

	// Now is the snapshot clock, replaceable in tests.
	Now func() time.Time
}

// -----------------------------------------------------------------------------

// Lookup resolves a provider by dataset name (ProviderSet satisfies it).
type Lookup interface {
	GetProvider(name string) (interfaces.IRowProvider, error)
}

// -----------------------------------------------------------------------------

func NewDayAggregator(cfg *config.Config, providers Lookup, log *logger.Logger) (*DayAggregator, error) {
	a := &DayAggregator{
		providers:    make(map[string]interfaces.IRowProvider, len(models.ProviderNames)),
		datasets:     cfg.Datasets(),
		productLines: cfg.Providers.ProductLines,
		logger:       log,
		Now:          time.Now,
	}

	for _, name := range models.ProviderNames {
		p, err := providers.GetProvider(name)
		if err != nil {
			return nil, err
		}
		a.providers[name] = p
	}
	return a, nil
}

// -----------------------------------------------------------------------------

// Aggregate queries every provider for date and builds the snapshot. The
// first provider failure is returned wrapped in a helpers.ProviderError.
func (a *DayAggregator) Aggregate(ctx context.Context, date civil.Date) (*models.MDailySnapshot, error) {
	start := time.Now()
	defer func() {
		metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	}()

	results := make([][]models.MRow, len(models.ProviderNames))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range models.ProviderNames {
		g.Go(func() error {
			rows, err := a.providers[name].RowsFor(gctx, date)
			if err != nil {
				metrics.ProviderErrors.WithLabelValues(name).Inc()
				return helpers.NewProviderError(name, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byName := make(map[string][]models.MRow, len(results))
	for i, name := range models.ProviderNames {
		byName[name] = results[i]
	}

	demand, err := a.forecastedDemand(byName[models.ProviderForecast])
	if err != nil {
		return nil, helpers.NewProviderError(models.ProviderForecast, err)
	}

	scheduleCfg := a.datasets[models.ProviderProductionSchedule]
	total, err := sumColumn(byName[models.ProviderProductionSchedule], scheduleCfg.QuantityColumn)
	if err != nil {
		return nil, helpers.NewProviderError(models.ProviderProductionSchedule, err)
	}

	snapshot := &models.MDailySnapshot{
		Date:                  date.String(),
		ForecastedDemand:      demand,
		ProductionOrders:      a.normalize(models.ProviderProductionOrders, byName),
		ProductionSchedule:    a.normalize(models.ProviderProductionSchedule, byName),
		TotalQtyScheduled:     truncate(total),
		StationScheduleShiftA: a.normalize(models.ProviderShiftA, byName),
		StationScheduleShiftB: a.normalize(models.ProviderShiftB, byName),
		Timestamp:             a.Now().UTC().Format(TimestampLayout),
	}

	a.logger.Debug("Snapshot %s: %d orders, %d schedule rows (qty %d), shifts %d/%d",
		snapshot.Date, len(snapshot.ProductionOrders), len(snapshot.ProductionSchedule),
		snapshot.TotalQtyScheduled, len(snapshot.StationScheduleShiftA), len(snapshot.StationScheduleShiftB))
	return snapshot, nil
}

// -----------------------------------------------------------------------------

// forecastedDemand sums the quantity of every tracked product line, matching
// names case-insensitively. Lines without rows report 0.
func (a *DayAggregator) forecastedDemand(rows []models.MRow) (map[string]int64, error) {
	ds := a.datasets[models.ProviderForecast]
	sums := make(map[string]float64, len(a.productLines))
	for _, pl := range a.productLines {
		sums[pl.Key] = 0
	}

	for i, r := range rows {
		raw, ok := r.Get(ds.ProductColumn)
		if !ok {
			return nil, errors.Errorf("row %d has no column %q", i, ds.ProductColumn)
		}
		product, ok := raw.(string)
		if !ok {
			continue
		}

		for _, pl := range a.productLines {
			if strings.ToLower(product) != strings.ToLower(pl.Name) {
				continue
			}
			qty, ok, err := quantity(r, ds.QuantityColumn)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d", i)
			}
			if ok {
				sums[pl.Key] += qty
			}
		}
	}

	out := make(map[string]int64, len(sums))
	for k, v := range sums {
		out[k] = truncate(v)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (a *DayAggregator) normalize(name string, byName map[string][]models.MRow) []models.MRow {
	rows := byName[name]
	dateColumn := a.datasets[name].DateColumn
	out := make([]models.MRow, len(rows))
	for i, r := range rows {
		out[i] = r.Normalized(dateColumn)
	}
	return out
}

// -----------------------------------------------------------------------------

// sumColumn adds up col over rows; null cells are skipped.
func sumColumn(rows []models.MRow, col string) (float64, error) {
	var total float64
	for i, r := range rows {
		qty, ok, err := quantity(r, col)
		if err != nil {
			return 0, errors.Wrapf(err, "row %d", i)
		}
		if ok {
			total += qty
		}
	}
	return total, nil
}

// -----------------------------------------------------------------------------

// quantity reads a numeric cell. ok is false for null and NaN cells.
func quantity(r models.MRow, col string) (float64, bool, error) {
	raw, found := r.Get(col)
	if !found {
		return 0, false, errors.Errorf("no column %q", col)
	}

	switch v := models.NormalizeValue(raw).(type) {
	case nil:
		return 0, false, nil
	case int64:
		return float64(v), true, nil
	case float64:
		return v, true, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false, errors.Errorf("column %q: %q is not a number", col, v)
		}
		if math.IsNaN(f) {
			return 0, false, nil
		}
		return f, true, nil
	default:
		return 0, false, errors.Errorf("column %q: unsupported value %v (%T)", col, raw, raw)
	}
}

// -----------------------------------------------------------------------------

func truncate(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}
