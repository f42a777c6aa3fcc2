package transform

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mr1hm/quake-etl/internal/models"
)

const (
	shallowDepthKm       = 70.0
	destructiveMagnitude = 6.0
)

var countryPattern = regexp.MustCompile(`,\s*([^,]+)$`)

// Normalize coerces, fills and derives a persisted row from a flat record,
// renaming feed-native fields (mag, nst, dmin, ...) to their column names.
// It is pure: the same input always yields the same row.
func Normalize(rec models.FlatRecord) models.Earthquake {
	eq := models.Earthquake{
		ID:      text(rec, models.FieldID),
		Time:    toTime(rec[models.FieldTime]),
		Updated: toTime(rec[models.FieldUpdated]),

		Magnitude:             number(rec, models.FieldMag),
		MagnitudeType:         text(rec, models.FieldMagType),
		Place:                 text(rec, models.FieldPlace),
		Status:                text(rec, models.FieldStatus),
		Tsunami:               flag(rec, models.FieldTsunami),
		Significance:          number(rec, models.FieldSig),
		Network:               text(rec, models.FieldNet),
		StationCount:          number(rec, models.FieldNst),
		MinStationDistance:    number(rec, models.FieldDmin),
		RMSError:              number(rec, models.FieldRms),
		AzimuthalGap:          number(rec, models.FieldGap),
		MagnitudeError:        number(rec, models.FieldMagError),
		DepthError:            number(rec, models.FieldDepthError),
		MagnitudeStationCount: number(rec, models.FieldMagNst),
		LocationSource:        text(rec, models.FieldLocationSource),
		MagnitudeSource:       text(rec, models.FieldMagSource),
		Types:                 text(rec, models.FieldTypes),
		IDs:                   text(rec, models.FieldIDs),
		Sources:               text(rec, models.FieldSources),
		EventType:             text(rec, models.FieldType),
		Longitude:             number(rec, models.FieldLongitude),
		Latitude:              number(rec, models.FieldLatitude),
		DepthKm:               number(rec, models.FieldDepthKm),
	}

	eq.Country = Country(eq.Place)

	if eq.Time != nil {
		year, month, day := eq.Time.Year(), int(eq.Time.Month()), eq.Time.Day()
		weekday := eq.Time.Weekday().String()
		eq.Year, eq.Month, eq.Day, eq.DayOfWeek = &year, &month, &day, &weekday
	}

	eq.DepthFlag = DepthFlag(eq.DepthKm)
	eq.MagFlag = MagFlag(eq.Magnitude)

	return eq
}

func NormalizeAll(recs []models.FlatRecord) []models.Earthquake {
	out := make([]models.Earthquake, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Normalize(rec))
	}
	return out
}

// Country returns the last comma separated segment of place. Note the
// capitalised sentinel, which differs from the text field sentinel.
func Country(place string) string {
	m := countryPattern.FindStringSubmatch(place)
	if m == nil {
		return models.UnknownCountry
	}
	return m[1]
}

func DepthFlag(depthKm float64) string {
	if depthKm < shallowDepthKm {
		return models.DepthShallow
	}
	return models.DepthDeep
}

func MagFlag(magnitude float64) string {
	if magnitude >= destructiveMagnitude {
		return models.MagDestructive
	}
	return models.MagStrong
}

func number(rec models.FlatRecord, field string) float64 {
	f, ok := toFloat(rec[field])
	if !ok {
		return 0
	}
	return f
}

func text(rec models.FlatRecord, field string) string {
	if rec.Missing(field) {
		return models.UnknownText
	}
	s, _ := toText(rec[field])
	return s
}

// flag reads a 0/1 field. Non-zero numbers and true, as a bool or as text
// such as "true" or "T", count as set.
func flag(rec models.FlatRecord, field string) int {
	if f, ok := toFloat(rec[field]); ok && f != 0 {
		return 1
	}
	switch v := rec[field].(type) {
	case bool:
		if v {
			return 1
		}
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil && b {
			return 1
		}
	}
	return 0
}
