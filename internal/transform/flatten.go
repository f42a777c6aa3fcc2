package transform

import "github.com/mr1hm/quake-etl/internal/models"

// Flatten lifts the nested properties and geometry of a feature into a flat
// record. It never fails: anything absent becomes a nil value.
func Flatten(ev models.RawEvent) models.FlatRecord {
	rec := make(models.FlatRecord, len(models.PropertyFields)+4)

	if ev.ID != "" {
		rec[models.FieldID] = ev.ID
	} else {
		rec[models.FieldID] = nil
	}

	for _, field := range models.PropertyFields {
		// reading a nil map yields nil, which is the missing marker
		rec[field] = ev.Properties[field]
	}

	// Feed order is lon, lat, depth.
	var coords []any
	if ev.Geometry != nil {
		coords = ev.Geometry.Coordinates
	}
	rec[models.FieldLongitude] = coordinate(coords, 0)
	rec[models.FieldLatitude] = coordinate(coords, 1)
	rec[models.FieldDepthKm] = coordinate(coords, 2)

	return rec
}

func FlattenAll(events []models.RawEvent) []models.FlatRecord {
	out := make([]models.FlatRecord, 0, len(events))
	for _, ev := range events {
		out = append(out, Flatten(ev))
	}
	return out
}

func coordinate(coords []any, i int) any {
	if i >= len(coords) {
		return nil
	}
	return coords[i]
}
