package repository

import (
	"errors"
	"fmt"
	"math"

	"github.com/mr1hm/quake-etl/internal/models"
)

// SchemaVersion is the migration version the loader writes against. Open
// refuses a database whose applied version differs.
const SchemaVersion uint = 2

const TableName = "earthquakes"

type ColumnKind int

const (
	KindText ColumnKind = iota
	KindFloat
	KindInt
	KindTime
)

type Column struct {
	Name     string
	Kind     ColumnKind
	Nullable bool
}

// Schema is the column order of the earthquakes table.
var Schema = []Column{
	{Name: "id", Kind: KindText},
	{Name: "time", Kind: KindTime, Nullable: true},
	{Name: "updated", Kind: KindTime, Nullable: true},
	{Name: "magnitude", Kind: KindFloat},
	{Name: "magnitude_type", Kind: KindText},
	{Name: "place", Kind: KindText},
	{Name: "status", Kind: KindText},
	{Name: "tsunami", Kind: KindInt},
	{Name: "significance", Kind: KindFloat},
	{Name: "network", Kind: KindText},
	{Name: "station_count", Kind: KindFloat},
	{Name: "min_station_distance", Kind: KindFloat},
	{Name: "rms_error", Kind: KindFloat},
	{Name: "azimuthal_gap", Kind: KindFloat},
	{Name: "magnitude_error", Kind: KindFloat},
	{Name: "depth_error", Kind: KindFloat},
	{Name: "magnitude_station_count", Kind: KindFloat},
	{Name: "location_source", Kind: KindText},
	{Name: "magnitude_source", Kind: KindText},
	{Name: "types", Kind: KindText},
	{Name: "ids", Kind: KindText},
	{Name: "sources", Kind: KindText},
	{Name: "event_type", Kind: KindText},
	{Name: "longitude", Kind: KindFloat},
	{Name: "latitude", Kind: KindFloat},
	{Name: "depth_km", Kind: KindFloat},
	{Name: "country", Kind: KindText},
	{Name: "year", Kind: KindInt, Nullable: true},
	{Name: "month", Kind: KindInt, Nullable: true},
	{Name: "day", Kind: KindInt, Nullable: true},
	{Name: "day_of_week", Kind: KindText, Nullable: true},
	{Name: "depth_flag", Kind: KindText},
	{Name: "magflag", Kind: KindText},
}

var ErrInvalidRecord = errors.New("invalid earthquake record")

func ColumnNames() []string {
	names := make([]string, len(Schema))
	for i, c := range Schema {
		names[i] = c.Name
	}
	return names
}

// rowValues returns the record's values in Schema order. Nil pointers become
// SQL NULLs.
func rowValues(e *models.Earthquake) []any {
	return []any{
		e.ID,
		nullTime(e.Time),
		nullTime(e.Updated),
		e.Magnitude,
		e.MagnitudeType,
		e.Place,
		e.Status,
		e.Tsunami,
		e.Significance,
		e.Network,
		e.StationCount,
		e.MinStationDistance,
		e.RMSError,
		e.AzimuthalGap,
		e.MagnitudeError,
		e.DepthError,
		e.MagnitudeStationCount,
		e.LocationSource,
		e.MagnitudeSource,
		e.Types,
		e.IDs,
		e.Sources,
		e.EventType,
		e.Longitude,
		e.Latitude,
		e.DepthKm,
		e.Country,
		nullInt(e.Year),
		nullInt(e.Month),
		nullInt(e.Day),
		nullString(e.DayOfWeek),
		e.DepthFlag,
		e.MagFlag,
	}
}

// ValidateRecord checks a row against the schema invariants: sentinels
// instead of gaps, flags from their closed sets, and date parts present
// exactly when time is.
func ValidateRecord(e *models.Earthquake) error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	}
	if e.Country == "" {
		return fmt.Errorf("%w: %s: empty country", ErrInvalidRecord, e.ID)
	}

	floats := map[string]float64{
		"magnitude": e.Magnitude, "significance": e.Significance,
		"station_count": e.StationCount, "min_station_distance": e.MinStationDistance,
		"rms_error": e.RMSError, "azimuthal_gap": e.AzimuthalGap,
		"magnitude_error": e.MagnitudeError, "depth_error": e.DepthError,
		"magnitude_station_count": e.MagnitudeStationCount,
		"longitude": e.Longitude, "latitude": e.Latitude, "depth_km": e.DepthKm,
	}
	for name, v := range floats {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s: %s is not finite", ErrInvalidRecord, e.ID, name)
		}
	}

	if e.Tsunami != 0 && e.Tsunami != 1 {
		return fmt.Errorf("%w: %s: tsunami must be 0 or 1, got %d", ErrInvalidRecord, e.ID, e.Tsunami)
	}
	if e.DepthFlag != models.DepthShallow && e.DepthFlag != models.DepthDeep {
		return fmt.Errorf("%w: %s: depth_flag %q", ErrInvalidRecord, e.ID, e.DepthFlag)
	}
	if e.MagFlag != models.MagStrong && e.MagFlag != models.MagDestructive {
		return fmt.Errorf("%w: %s: magflag %q", ErrInvalidRecord, e.ID, e.MagFlag)
	}

	parts := []bool{e.Year != nil, e.Month != nil, e.Day != nil, e.DayOfWeek != nil}
	for _, present := range parts {
		if present != (e.Time != nil) {
			return fmt.Errorf("%w: %s: date parts must be set exactly when time is", ErrInvalidRecord, e.ID)
		}
	}
	if e.Time != nil {
		t := e.Time.UTC()
		if *e.Year != t.Year() || *e.Month != int(t.Month()) || *e.Day != t.Day() || *e.DayOfWeek != t.Weekday().String() {
			return fmt.Errorf("%w: %s: date parts disagree with time", ErrInvalidRecord, e.ID)
		}
	}

	return nil
}
