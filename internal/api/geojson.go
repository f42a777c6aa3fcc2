package api

import (
	"time"

	"github.com/mr1hm/quake-etl/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// toGeoJSON places each row at [longitude, latitude, depth_km] and carries
// the remaining columns as properties.
func toGeoJSON(quakes []models.Earthquake) FeatureCollection {
	features := make([]Feature, 0, len(quakes))

	for _, q := range quakes {
		f := Feature{
			ID:   q.ID,
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{q.Longitude, q.Latitude, q.DepthKm},
			},
			Properties: map[string]any{
				"time":                    timeOrNil(q.Time),
				"updated":                 timeOrNil(q.Updated),
				"magnitude":               q.Magnitude,
				"magnitude_type":          q.MagnitudeType,
				"place":                   q.Place,
				"country":                 q.Country,
				"status":                  q.Status,
				"tsunami":                 q.Tsunami,
				"significance":            q.Significance,
				"network":                 q.Network,
				"station_count":           q.StationCount,
				"min_station_distance":    q.MinStationDistance,
				"rms_error":               q.RMSError,
				"azimuthal_gap":           q.AzimuthalGap,
				"magnitude_error":         q.MagnitudeError,
				"depth_error":             q.DepthError,
				"magnitude_station_count": q.MagnitudeStationCount,
				"location_source":         q.LocationSource,
				"magnitude_source":        q.MagnitudeSource,
				"types":                   q.Types,
				"ids":                     q.IDs,
				"sources":                 q.Sources,
				"event_type":              q.EventType,
				"depth_km":                q.DepthKm,
				"year":                    q.Year,
				"month":                   q.Month,
				"day":                     q.Day,
				"day_of_week":             q.DayOfWeek,
				"depth_flag":              q.DepthFlag,
				"magflag":                 q.MagFlag,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
