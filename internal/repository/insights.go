package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/quake-etl/internal/logging"
)

var (
	ErrUnknownInsight     = errors.New("unknown insight")
	ErrUnsupportedInsight = errors.New("insight references columns the table does not have")
)

// Insight is a named analytical query over the earthquakes table. Query uses
// ? placeholders and the {hour} token for the dialect's hour-of-day
// expression. Insights with Missing columns are listed but never executed.
type Insight struct {
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Missing  []string `json:"missing_columns,omitempty"`

	Query string                    `json:"-"`
	Args  func(now time.Time) []any `json:"-"`
}

func (i Insight) Supported() bool {
	return len(i.Missing) == 0
}

// Result is a generic result set. Values are string, int64, float64, bool,
// time.Time or nil.
type Result struct {
	Insight string   `json:"insight"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

const continentCase = `CASE
	WHEN place LIKE '%Asia%' THEN 'Asia'
	WHEN place LIKE '%Europe%' THEN 'Europe'
	WHEN place LIKE '%Africa%' THEN 'Africa'
	WHEN place LIKE '%America%' THEN 'America'
	WHEN place LIKE '%Australia%' THEN 'Australia'
	WHEN place LIKE '%Antarctica%' THEN 'Antarctica'
	ELSE 'Other' END`

const countryCase = `CASE
	WHEN place LIKE '%Japan%' THEN 'Japan'
	WHEN place LIKE '%Indonesia%' THEN 'Indonesia'
	WHEN place LIKE '%Chile%' THEN 'Chile'
	WHEN place LIKE '%Mexico%' THEN 'Mexico'
	WHEN place LIKE '%USA%' OR place LIKE '%United States%' THEN 'USA'
	WHEN place LIKE '%China%' THEN 'China'
	WHEN place LIKE '%India%' THEN 'India'
	ELSE 'Other' END`

const beltCase = `CASE
	WHEN place LIKE '%Ring of Fire%' OR place LIKE '%Japan%' OR place LIKE '%Indonesia%' OR place LIKE '%Chile%' THEN 'Pacific Ring of Fire'
	WHEN place LIKE '%Himalaya%' OR place LIKE '%India%' OR place LIKE '%Nepal%' THEN 'Himalayan Belt'
	WHEN place LIKE '%Mediterranean%' OR place LIKE '%Turkey%' OR place LIKE '%Italy%' THEN 'Mediterranean Belt'
	ELSE 'Other' END`

var catalog = []Insight{
	{
		Name: "top-strongest", Title: "Top 10 strongest earthquakes", Category: "magnitude & depth",
		Query: "SELECT id, magnitude, depth_km, place, time FROM earthquakes ORDER BY magnitude DESC LIMIT 10",
	},
	{
		Name: "top-deepest", Title: "Top 10 deepest earthquakes", Category: "magnitude & depth",
		Query: "SELECT id, depth_km, magnitude, place FROM earthquakes ORDER BY depth_km DESC LIMIT 10",
	},
	{
		Name: "shallow-strong", Title: "Shallow (< 50 km) earthquakes above magnitude 7.5", Category: "magnitude & depth",
		Query: "SELECT id, magnitude, depth_km, place, time FROM earthquakes WHERE depth_km < 50 AND magnitude > 7.5 ORDER BY magnitude DESC",
	},
	{
		Name: "avg-depth-by-continent", Title: "Average depth per continent", Category: "magnitude & depth",
		Query: "SELECT " + continentCase + " AS continent, AVG(depth_km) AS avg_depth_km FROM earthquakes GROUP BY continent ORDER BY continent",
	},
	{
		Name: "avg-magnitude-by-type", Title: "Average magnitude per magnitude type", Category: "magnitude & depth",
		Query: "SELECT magnitude_type, AVG(magnitude) AS avg_magnitude FROM earthquakes GROUP BY magnitude_type ORDER BY avg_magnitude DESC",
	},
	{
		Name: "busiest-year", Title: "Year with the most earthquakes", Category: "time",
		Query: "SELECT year, COUNT(*) AS total FROM earthquakes WHERE year IS NOT NULL GROUP BY year ORDER BY total DESC, year LIMIT 1",
	},
	{
		Name: "busiest-month", Title: "Month with the most earthquakes", Category: "time",
		Query: "SELECT month, COUNT(*) AS total FROM earthquakes WHERE month IS NOT NULL GROUP BY month ORDER BY total DESC, month LIMIT 1",
	},
	{
		Name: "busiest-weekday", Title: "Day of week with the most earthquakes", Category: "time",
		Query: "SELECT day_of_week, COUNT(*) AS total FROM earthquakes WHERE day_of_week IS NOT NULL GROUP BY day_of_week ORDER BY total DESC, day_of_week LIMIT 1",
	},
	{
		Name: "events-per-hour", Title: "Earthquakes per hour of day (UTC)", Category: "time",
		Query: "SELECT {hour} AS hour, COUNT(*) AS total FROM earthquakes WHERE time IS NOT NULL GROUP BY {hour} ORDER BY hour",
	},
	{
		Name: "most-active-network", Title: "Most active reporting network", Category: "time",
		Query: "SELECT network, COUNT(*) AS total FROM earthquakes GROUP BY network ORDER BY total DESC, network LIMIT 1",
	},
	{
		Name: "casualties-by-place", Title: "Top 5 places by casualties", Category: "casualties & economic loss",
		Missing: []string{"casualties"},
	},
	{
		Name: "economic-loss-by-continent", Title: "Estimated economic loss per continent", Category: "casualties & economic loss",
		Missing: []string{"economic_loss"},
	},
	{
		Name: "economic-loss-by-alert-level", Title: "Average economic loss by alert level", Category: "casualties & economic loss",
		Missing: []string{"economic_loss", "alert_level"},
	},
	{
		Name: "status-counts", Title: "Reviewed vs automatic earthquakes", Category: "event type & quality",
		Query: "SELECT status, COUNT(*) AS total FROM earthquakes GROUP BY status ORDER BY total DESC, status",
	},
	{
		Name: "event-type-counts", Title: "Earthquakes by event type", Category: "event type & quality",
		Query: "SELECT event_type, COUNT(*) AS total FROM earthquakes GROUP BY event_type ORDER BY total DESC, event_type",
	},
	{
		Name: "data-type-counts", Title: "Earthquakes by data types", Category: "event type & quality",
		Query: "SELECT types, COUNT(*) AS total FROM earthquakes GROUP BY types ORDER BY total DESC, types",
	},
	{
		Name: "rms-gap-by-continent", Title: "Average RMS and azimuthal gap per continent", Category: "event type & quality",
		Query: "SELECT " + continentCase + " AS continent, AVG(rms_error) AS avg_rms, AVG(azimuthal_gap) AS avg_gap FROM earthquakes GROUP BY continent ORDER BY continent",
	},
	{
		Name: "high-station-coverage", Title: "Events reported by more than 100 stations", Category: "event type & quality",
		Query: "SELECT id, station_count, magnitude, place, time FROM earthquakes WHERE station_count > 100 ORDER BY station_count DESC",
	},
	{
		Name: "tsunamis-per-year", Title: "Tsunamis triggered per year", Category: "tsunamis & alerts",
		Query: "SELECT year, COUNT(*) AS tsunami_count FROM earthquakes WHERE tsunami = 1 AND year IS NOT NULL GROUP BY year ORDER BY year",
	},
	{
		Name: "alert-level-counts", Title: "Earthquakes by alert level", Category: "tsunamis & alerts",
		Missing: []string{"alert_level"},
	},
	{
		Name: "top-countries-avg-magnitude", Title: "Top 5 countries by average magnitude, last 10 years", Category: "patterns & trends",
		Query: "SELECT country, AVG(magnitude) AS avg_magnitude FROM (SELECT " + countryCase +
			" AS country, magnitude FROM earthquakes WHERE time >= ?) t GROUP BY country ORDER BY avg_magnitude DESC LIMIT 5",
		Args: func(now time.Time) []any { return []any{now.UTC().AddDate(-10, 0, 0)} },
	},
	{
		Name: "yoy-growth", Title: "Year-over-year growth of earthquake counts", Category: "patterns & trends",
		Query: "SELECT year, (total - LAG(total) OVER (ORDER BY year)) * 100.0 / LAG(total) OVER (ORDER BY year) AS yoy_growth_pct " +
			"FROM (SELECT year, COUNT(*) AS total FROM earthquakes WHERE year IS NOT NULL GROUP BY year) t ORDER BY year",
	},
	{
		Name: "most-active-regions", Title: "Top 3 most seismically active belts", Category: "patterns & trends",
		Query: "SELECT region, COUNT(*) AS frequency, AVG(magnitude) AS avg_magnitude, COUNT(*) * AVG(magnitude) AS activity_score " +
			"FROM (SELECT " + beltCase + " AS region, magnitude FROM earthquakes) t GROUP BY region ORDER BY activity_score DESC LIMIT 3",
	},
	{
		Name: "equatorial-depth-by-country", Title: "Average depth within 5 degrees of the equator", Category: "depth & location",
		Query: "SELECT country, AVG(depth_km) AS avg_depth FROM (SELECT " + countryCase +
			" AS country, depth_km FROM earthquakes WHERE latitude BETWEEN -5 AND 5) t GROUP BY country ORDER BY country",
	},
	{
		Name: "shallow-deep-ratio", Title: "Shallow (< 70 km) to deep (> 300 km) ratio per country", Category: "depth & location",
		Query: "SELECT country, SUM(CASE WHEN depth_km < 70 THEN 1 ELSE 0 END) * 1.0 / NULLIF(SUM(CASE WHEN depth_km > 300 THEN 1 ELSE 0 END), 0) AS shallow_to_deep_ratio " +
			"FROM (SELECT " + countryCase + " AS country, depth_km FROM earthquakes) t GROUP BY country ORDER BY shallow_to_deep_ratio DESC, country",
	},
	{
		Name: "tsunami-magnitude-difference", Title: "Average magnitude with vs without tsunami", Category: "depth & location",
		Query: "SELECT (SELECT AVG(magnitude) FROM earthquakes WHERE tsunami = 1) - (SELECT AVG(magnitude) FROM earthquakes WHERE tsunami = 0) AS avg_magnitude_difference",
	},
	{
		Name: "lowest-reliability", Title: "Events with the highest average error margin", Category: "depth & location",
		Query: "SELECT id, place, (azimuthal_gap + rms_error) / 2 AS avg_error FROM earthquakes ORDER BY avg_error DESC LIMIT 10",
	},
	{
		Name: "deep-focus-regions", Title: "Belts with the most deep-focus (> 300 km) earthquakes", Category: "depth & location",
		Query: "SELECT region, COUNT(*) AS deep_event_count FROM (SELECT " + beltCase +
			" AS region FROM earthquakes WHERE depth_km > 300) t GROUP BY region ORDER BY deep_event_count DESC, region",
	},
}

// Insights returns the catalog in display order.
func Insights() []Insight {
	return slices.Clone(catalog)
}

func LookupInsight(name string) (Insight, error) {
	for _, in := range catalog {
		if in.Name == name {
			return in, nil
		}
	}
	return Insight{}, fmt.Errorf("%w: %q", ErrUnknownInsight, name)
}

// RunInsight executes a catalogued query. Unsupported insights fail with
// ErrUnsupportedInsight without touching the database.
func (s *Store) RunInsight(ctx context.Context, name string) (*Result, error) {
	in, err := LookupInsight(name)
	if err != nil {
		return nil, err
	}
	if !in.Supported() {
		return nil, fmt.Errorf("%w: %s needs %s", ErrUnsupportedInsight, name, strings.Join(in.Missing, ", "))
	}
	defer s.observe(name, time.Now())

	query := strings.ReplaceAll(in.Query, "{hour}", s.dialect.hourOfDay)
	var args []any
	if in.Args != nil {
		args = in.Args(time.Now())
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		slog.Error("insight query failed", logging.Insight(name), logging.Driver(s.dialect.name), logging.Error(err))
		return nil, fmt.Errorf("error running insight %s: %w", name, err)
	}
	defer rows.Close()

	res, err := scanResult(rows)
	if err != nil {
		return nil, fmt.Errorf("error reading insight %s: %w", name, err)
	}
	res.Insight = name
	slog.Debug("insight executed", logging.Insight(name), logging.Count(len(res.Rows)))
	return res, nil
}

func scanResult(rows *sql.Rows) (*Result, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: make([]string, len(types)), Rows: [][]any{}}
	for i, t := range types {
		res.Columns[i] = t.Name()
	}

	for rows.Next() {
		vals := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			vals[i] = plainValue(v, types[i].DatabaseTypeName())
		}
		res.Rows = append(res.Rows, vals)
	}
	return res, rows.Err()
}

// plainValue turns driver values into JSON-friendly ones. Decimal aggregates
// arrive as text from mysql and pgx.
func plainValue(v any, dbType string) any {
	switch x := v.(type) {
	case []byte:
		return plainValue(string(x), dbType)
	case string:
		switch strings.ToUpper(dbType) {
		case "DECIMAL", "NUMERIC", "NEWDECIMAL":
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return f
			}
		}
		return x
	case time.Time:
		return x.UTC()
	default:
		return v
	}
}
