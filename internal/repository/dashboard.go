package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mr1hm/quake-etl/internal/metrics"
	"github.com/mr1hm/quake-etl/internal/models"
)

const (
	DefaultPreviewLimit  = 500
	MaxPreviewLimit      = 5000
	DefaultHistogramBins = 30
)

// Filter narrows the dashboard queries. A nil Year means every year and an
// empty Countries means every country.
type Filter struct {
	Year      *int
	Countries []string
}

func (f Filter) where() (string, []any) {
	var clauses []string
	var args []any
	if f.Year != nil {
		clauses = append(clauses, "year = ?")
		args = append(args, *f.Year)
	}
	if len(f.Countries) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(f.Countries)), ", ")
		clauses = append(clauses, "country IN ("+marks+")")
		for _, c := range f.Countries {
			args = append(args, c)
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type FilterOptions struct {
	Years     []int    `json:"years"`
	Countries []string `json:"countries"`
}

// KPIs are nil-valued when the filter matches nothing.
type KPIs struct {
	Count        int64    `json:"count"`
	MaxMagnitude *float64 `json:"max_magnitude"`
	AvgDepthKm   *float64 `json:"avg_depth_km"`
}

type YearCount struct {
	Year  int   `json:"year"`
	Count int64 `json:"count"`
}

type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int64   `json:"count"`
}

func (s *Store) observe(query string, start time.Time) {
	metrics.QueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

func (s *Store) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	defer s.observe("filters", time.Now())

	opts := &FilterOptions{Years: []int{}, Countries: []string{}}

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT year FROM "+TableName+" WHERE year IS NOT NULL ORDER BY year")
	if err != nil {
		return nil, fmt.Errorf("error listing years: %w", err)
	}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning year: %w", err)
		}
		opts.Years = append(opts.Years, y)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, "SELECT DISTINCT country FROM "+TableName+" ORDER BY country")
	if err != nil {
		return nil, fmt.Errorf("error listing countries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("error scanning country: %w", err)
		}
		opts.Countries = append(opts.Countries, c)
	}
	return opts, rows.Err()
}

func (s *Store) KPIs(ctx context.Context, f Filter) (*KPIs, error) {
	defer s.observe("kpis", time.Now())

	where, args := f.where()
	query := s.dialect.rebind("SELECT COUNT(*), MAX(magnitude), AVG(depth_km) FROM " + TableName + where)

	var k KPIs
	var maxMag, avgDepth sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&k.Count, &maxMag, &avgDepth); err != nil {
		return nil, fmt.Errorf("error computing kpis: %w", err)
	}
	if maxMag.Valid {
		v := round2(maxMag.Float64)
		k.MaxMagnitude = &v
	}
	if avgDepth.Valid {
		v := round2(avgDepth.Float64)
		k.AvgDepthKm = &v
	}
	return &k, nil
}

// YearlyCounts ignores the filter and counts every dated row.
func (s *Store) YearlyCounts(ctx context.Context) ([]YearCount, error) {
	defer s.observe("yearly", time.Now())

	rows, err := s.db.QueryContext(ctx,
		"SELECT year, COUNT(*) FROM "+TableName+" WHERE year IS NOT NULL GROUP BY year ORDER BY year")
	if err != nil {
		return nil, fmt.Errorf("error counting per year: %w", err)
	}
	defer rows.Close()

	counts := []YearCount{}
	for rows.Next() {
		var yc YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, fmt.Errorf("error scanning year count: %w", err)
		}
		counts = append(counts, yc)
	}
	return counts, rows.Err()
}

// MagnitudeHistogram splits [min, max] of the filtered magnitudes into bins
// of equal width. The last bin is closed on the right.
func (s *Store) MagnitudeHistogram(ctx context.Context, f Filter, bins int) ([]HistogramBin, error) {
	defer s.observe("magnitudes", time.Now())

	if bins < 1 {
		bins = DefaultHistogramBins
	}

	where, args := f.where()
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind("SELECT magnitude FROM "+TableName+where), args...)
	if err != nil {
		return nil, fmt.Errorf("error reading magnitudes: %w", err)
	}
	defer rows.Close()

	var mags []float64
	for rows.Next() {
		var m float64
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("error scanning magnitude: %w", err)
		}
		mags = append(mags, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return histogram(mags, bins), nil
}

func histogram(values []float64, bins int) []HistogramBin {
	if len(values) == 0 {
		return []HistogramBin{}
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []HistogramBin{{Low: lo, High: hi, Count: int64(len(values))}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]HistogramBin, bins)
	for i := range out {
		out[i].Low = lo + float64(i)*width
		out[i].High = lo + float64(i+1)*width
	}
	out[bins-1].High = hi

	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

// ListEarthquakes returns at most limit filtered rows in storage order.
func (s *Store) ListEarthquakes(ctx context.Context, f Filter, limit int) ([]models.Earthquake, error) {
	defer s.observe("earthquakes", time.Now())

	if limit < 1 {
		limit = DefaultPreviewLimit
	}
	limit = min(limit, MaxPreviewLimit)

	where, args := f.where()
	query := fmt.Sprintf("SELECT %s FROM %s%s LIMIT %d", strings.Join(ColumnNames(), ", "), TableName, where, limit)

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("error listing earthquakes: %w", err)
	}
	defer rows.Close()

	quakes := []models.Earthquake{}
	for rows.Next() {
		eq, err := scanEarthquake(rows)
		if err != nil {
			return nil, err
		}
		quakes = append(quakes, eq)
	}
	return quakes, rows.Err()
}

func scanEarthquake(rows *sql.Rows) (models.Earthquake, error) {
	var (
		eq               models.Earthquake
		tm, updated      sql.NullTime
		year, month, day sql.NullInt64
		dayOfWeek        sql.NullString
	)
	err := rows.Scan(
		&eq.ID, &tm, &updated, &eq.Magnitude, &eq.MagnitudeType, &eq.Place, &eq.Status,
		&eq.Tsunami, &eq.Significance, &eq.Network, &eq.StationCount, &eq.MinStationDistance,
		&eq.RMSError, &eq.AzimuthalGap, &eq.MagnitudeError, &eq.DepthError,
		&eq.MagnitudeStationCount, &eq.LocationSource, &eq.MagnitudeSource, &eq.Types, &eq.IDs,
		&eq.Sources, &eq.EventType, &eq.Longitude, &eq.Latitude, &eq.DepthKm, &eq.Country,
		&year, &month, &day, &dayOfWeek, &eq.DepthFlag, &eq.MagFlag,
	)
	if err != nil {
		return eq, fmt.Errorf("error scanning earthquake: %w", err)
	}

	if tm.Valid {
		t := tm.Time.UTC()
		eq.Time = &t
	}
	if updated.Valid {
		t := updated.Time.UTC()
		eq.Updated = &t
	}
	if year.Valid {
		eq.Year = intPtr(year.Int64)
	}
	if month.Valid {
		eq.Month = intPtr(month.Int64)
	}
	if day.Valid {
		eq.Day = intPtr(day.Int64)
	}
	if dayOfWeek.Valid {
		eq.DayOfWeek = &dayOfWeek.String
	}
	return eq, nil
}

func intPtr(v int64) *int {
	i := int(v)
	return &i
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
