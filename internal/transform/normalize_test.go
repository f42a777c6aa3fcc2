package transform

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/quake-etl/internal/models"
)

func TestNormalize_TokyoEvent(t *testing.T) {
	ev := models.RawEvent{
		ID: "ev1",
		Properties: map[string]any{
			"time":  json.Number("1577836800000"),
			"mag":   json.Number("5.2"),
			"place": "10km N of Tokyo, Japan",
		},
		Geometry: &models.Geometry{Coordinates: []any{json.Number("139.7"), json.Number("35.7"), json.Number("10.0")}},
	}

	eq := Normalize(Flatten(ev))

	require.NotNil(t, eq.Time)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), *eq.Time)
	assert.Equal(t, "ev1", eq.ID)
	assert.Equal(t, 5.2, eq.Magnitude)
	assert.Equal(t, 10.0, eq.DepthKm)
	assert.Equal(t, 139.7, eq.Longitude)
	assert.Equal(t, 35.7, eq.Latitude)
	assert.Equal(t, "Japan", eq.Country)
	assert.Equal(t, models.DepthShallow, eq.DepthFlag)
	assert.Equal(t, models.MagStrong, eq.MagFlag)

	require.NotNil(t, eq.Year)
	assert.Equal(t, 2020, *eq.Year)
	assert.Equal(t, 1, *eq.Month)
	assert.Equal(t, 1, *eq.Day)
	assert.Equal(t, "Wednesday", *eq.DayOfWeek)

	// absent text fields fall back to the sentinel
	assert.Equal(t, models.UnknownText, eq.MagnitudeType)
	assert.Equal(t, models.UnknownText, eq.Network)
	assert.Nil(t, eq.Updated)
}

func TestNormalize_EmptyEvent(t *testing.T) {
	ev := models.RawEvent{Properties: map[string]any{}, Geometry: &models.Geometry{}}

	eq := Normalize(Flatten(ev))

	assert.Equal(t, 0.0, eq.Magnitude)
	assert.Equal(t, 0.0, eq.DepthKm)
	assert.Equal(t, models.UnknownText, eq.Place)
	assert.Equal(t, models.UnknownCountry, eq.Country)
	assert.Nil(t, eq.Time)
	assert.Nil(t, eq.Year)
	assert.Nil(t, eq.Month)
	assert.Nil(t, eq.Day)
	assert.Nil(t, eq.DayOfWeek)
	assert.Equal(t, 0, eq.Tsunami)
	assert.Equal(t, models.DepthShallow, eq.DepthFlag)
	assert.Equal(t, models.MagStrong, eq.MagFlag)
}

func TestNormalize_NoNullTextOrNumbers(t *testing.T) {
	eq := Normalize(Flatten(models.RawEvent{}))

	texts := []string{
		eq.ID, eq.Place, eq.MagnitudeType, eq.Status, eq.EventType, eq.Network,
		eq.Sources, eq.IDs, eq.Types, eq.LocationSource, eq.MagnitudeSource,
	}
	for _, s := range texts {
		assert.Equal(t, models.UnknownText, s)
	}

	numbers := []float64{
		eq.Magnitude, eq.DepthKm, eq.Latitude, eq.Longitude, eq.StationCount,
		eq.MinStationDistance, eq.RMSError, eq.AzimuthalGap, eq.MagnitudeError,
		eq.DepthError, eq.MagnitudeStationCount, eq.Significance,
	}
	for _, n := range numbers {
		assert.Zero(t, n)
	}
}

func TestNormalize_UnparseableTimestamps(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{name: "text", in: "yesterday"},
		{name: "object", in: map[string]any{"ms": 1}},
		{name: "out of range", in: json.Number("1e20")},
		{name: "bool", in: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eq := Normalize(models.FlatRecord{models.FieldTime: tt.in, models.FieldUpdated: tt.in})
			assert.Nil(t, eq.Time)
			assert.Nil(t, eq.Updated)
			assert.Nil(t, eq.Year)
		})
	}
}

func TestNormalize_LenientNumbers(t *testing.T) {
	rec := models.FlatRecord{
		models.FieldMag:     "6.1",
		models.FieldNst:     json.Number("42"),
		models.FieldGap:     "n/a",
		models.FieldTsunami: json.Number("1"),
		models.FieldTime:    float64(1577836800000),
	}

	eq := Normalize(rec)

	assert.Equal(t, 6.1, eq.Magnitude)
	assert.Equal(t, models.MagDestructive, eq.MagFlag)
	assert.Equal(t, 42.0, eq.StationCount)
	assert.Equal(t, 0.0, eq.AzimuthalGap)
	assert.Equal(t, 1, eq.Tsunami)
	require.NotNil(t, eq.Time)
	assert.Equal(t, 2020, eq.Time.Year())
}

func TestNormalize_TsunamiFlag(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"number one", json.Number("1"), 1},
		{"number zero", json.Number("0"), 0},
		{"any non-zero", json.Number("3"), 1},
		{"bool true", true, 1},
		{"bool false", false, 0},
		{"text true", "true", 1},
		{"text T", " T ", 1},
		{"text false", "false", 0},
		{"text one", "1", 1},
		{"garbage", "maybe", 0},
		{"missing", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eq := Normalize(models.FlatRecord{models.FieldTsunami: tt.in})
			assert.Equal(t, tt.want, eq.Tsunami)
		})
	}
}

func TestNormalize_Flags(t *testing.T) {
	assert.Equal(t, models.DepthShallow, DepthFlag(69.99))
	assert.Equal(t, models.DepthDeep, DepthFlag(70))
	assert.Equal(t, models.MagStrong, MagFlag(5.99))
	assert.Equal(t, models.MagDestructive, MagFlag(6.0))
}

func TestCountry(t *testing.T) {
	tests := []struct {
		place string
		want  string
	}{
		{"10km N of Tokyo, Japan", "Japan"},
		{"Kermadec Islands, New Zealand", "New Zealand"},
		{"south of the Fiji Islands", models.UnknownCountry},
		{"unknown", models.UnknownCountry},
		{"a, b,c", "c"},
		{"trailing comma,", models.UnknownCountry},
		{"", models.UnknownCountry},
	}

	for _, tt := range tests {
		t.Run(tt.place, func(t *testing.T) {
			assert.Equal(t, tt.want, Country(tt.place))
		})
	}
}

func TestNormalize_CompleteRecordUnchanged(t *testing.T) {
	rec := models.FlatRecord{
		models.FieldID:             "us6000m0n6",
		models.FieldTime:           json.Number("1704067200000"),
		models.FieldUpdated:        json.Number("1704153600000"),
		models.FieldMag:            json.Number("7.5"),
		models.FieldMagType:        "mww",
		models.FieldPlace:          "Noto Peninsula, Japan",
		models.FieldStatus:         "reviewed",
		models.FieldTsunami:        json.Number("1"),
		models.FieldSig:            json.Number("1050"),
		models.FieldNet:            "us",
		models.FieldNst:            json.Number("190"),
		models.FieldDmin:           json.Number("2.4"),
		models.FieldRms:            json.Number("0.84"),
		models.FieldGap:            json.Number("25"),
		models.FieldMagError:       json.Number("0.03"),
		models.FieldDepthError:     json.Number("1.8"),
		models.FieldMagNst:         json.Number("104"),
		models.FieldLocationSource: "us",
		models.FieldMagSource:      "us",
		models.FieldTypes:          ",origin,phase-data,",
		models.FieldIDs:            ",us6000m0n6,",
		models.FieldSources:        ",us,",
		models.FieldType:           "earthquake",
		models.FieldLongitude:      json.Number("137.2"),
		models.FieldLatitude:       json.Number("37.5"),
		models.FieldDepthKm:        json.Number("10"),
	}

	eq := Normalize(rec)

	assert.Equal(t, "us6000m0n6", eq.ID)
	assert.Equal(t, int64(1704067200000), eq.Time.UnixMilli())
	assert.Equal(t, int64(1704153600000), eq.Updated.UnixMilli())
	assert.Equal(t, 7.5, eq.Magnitude)
	assert.Equal(t, "mww", eq.MagnitudeType)
	assert.Equal(t, "Noto Peninsula, Japan", eq.Place)
	assert.Equal(t, "reviewed", eq.Status)
	assert.Equal(t, 1, eq.Tsunami)
	assert.Equal(t, 1050.0, eq.Significance)
	assert.Equal(t, "us", eq.Network)
	assert.Equal(t, 190.0, eq.StationCount)
	assert.Equal(t, 2.4, eq.MinStationDistance)
	assert.Equal(t, 0.84, eq.RMSError)
	assert.Equal(t, 25.0, eq.AzimuthalGap)
	assert.Equal(t, 0.03, eq.MagnitudeError)
	assert.Equal(t, 1.8, eq.DepthError)
	assert.Equal(t, 104.0, eq.MagnitudeStationCount)
	assert.Equal(t, "us", eq.LocationSource)
	assert.Equal(t, "us", eq.MagnitudeSource)
	assert.Equal(t, ",origin,phase-data,", eq.Types)
	assert.Equal(t, ",us6000m0n6,", eq.IDs)
	assert.Equal(t, ",us,", eq.Sources)
	assert.Equal(t, "earthquake", eq.EventType)
	assert.Equal(t, 137.2, eq.Longitude)
	assert.Equal(t, 37.5, eq.Latitude)
	assert.Equal(t, 10.0, eq.DepthKm)
	assert.Equal(t, models.MagDestructive, eq.MagFlag)
	assert.Equal(t, "Monday", *eq.DayOfWeek)
}

func TestNormalizeAll_Deterministic(t *testing.T) {
	events := fakeEvents(gofakeit.New(42), 200)

	first := NormalizeAll(FlattenAll(events))
	second := NormalizeAll(FlattenAll(events))

	require.Len(t, first, len(events))
	assert.Equal(t, first, second)
	for i, eq := range first {
		assert.Equal(t, events[i].ID, eq.ID)
	}
}

func fakeEvents(f *gofakeit.Faker, n int) []models.RawEvent {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	events := make([]models.RawEvent, 0, n)
	for i := 0; i < n; i++ {
		props := map[string]any{
			"mag":     f.Float64Range(4.5, 9.1),
			"place":   f.City() + ", " + f.Country(),
			"magType": f.RandomString([]string{"mb", "mww", "ml"}),
			"tsunami": f.Number(0, 1),
		}
		if f.Bool() {
			props["time"] = f.DateRange(start, end).UnixMilli()
		}
		if f.Bool() {
			delete(props, "place")
		}

		ev := models.RawEvent{ID: f.UUID(), Properties: props}
		if f.Bool() {
			ev.Geometry = &models.Geometry{Coordinates: []any{
				f.Float64Range(-180, 180), f.Float64Range(-90, 90), f.Float64Range(0, 700),
			}}
		}
		events = append(events, ev)
	}
	return events
}
