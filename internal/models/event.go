package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errNotObject = errors.New("feature is not a JSON object")

// RawEvent is a single GeoJSON feature as delivered by the catalog feed.
// Decoding is lenient: a field of the wrong type is dropped and later
// becomes a missing marker, so one odd feature never fails a whole window.
type RawEvent struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties,omitempty"`
	Geometry   *Geometry      `json:"geometry,omitempty"`
}

type Geometry struct {
	Type        string `json:"type,omitempty"`
	Coordinates []any  `json:"coordinates,omitempty"` // [lon, lat, depth]
}

// UnmarshalJSON fails only when the feature itself is not an object.
// A numeric id keeps its literal text.
func (e *RawEvent) UnmarshalJSON(data []byte) error {
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return errNotObject
	}

	var raw struct {
		ID         json.RawMessage `json:"id"`
		Properties json.RawMessage `json:"properties"`
		Geometry   json.RawMessage `json:"geometry"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = RawEvent{ID: lenientID(raw.ID)}

	var props map[string]any
	if decodeNumbers(raw.Properties, &props) == nil {
		e.Properties = props
	}

	var geom *Geometry
	if decodeNumbers(raw.Geometry, &geom) == nil {
		e.Geometry = geom
	}
	return nil
}

func (g *Geometry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        json.RawMessage `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*g = Geometry{}
	var typ string
	if json.Unmarshal(raw.Type, &typ) == nil {
		g.Type = typ
	}

	var coords []any
	if decodeNumbers(raw.Coordinates, &coords) == nil {
		g.Coordinates = coords
	}
	return nil
}

func lenientID(raw json.RawMessage) string {
	var id string
	if json.Unmarshal(raw, &id) == nil {
		return id
	}
	var n json.Number
	if decodeNumbers(raw, &n) == nil {
		return n.String()
	}
	return ""
}

// decodeNumbers decodes data into v keeping numbers as json.Number. Empty
// input is an error, which leaves the target unset.
func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// Feed-native field names. The flattener emits exactly these keys.
const (
	FieldID             = "id"
	FieldTime           = "time"
	FieldUpdated        = "updated"
	FieldMag            = "mag"
	FieldMagType        = "magType"
	FieldPlace          = "place"
	FieldStatus         = "status"
	FieldTsunami        = "tsunami"
	FieldSig            = "sig"
	FieldNet            = "net"
	FieldNst            = "nst"
	FieldDmin           = "dmin"
	FieldRms            = "rms"
	FieldGap            = "gap"
	FieldMagError       = "magError"
	FieldDepthError     = "depthError"
	FieldMagNst         = "magNst"
	FieldLocationSource = "locationSource"
	FieldMagSource      = "magSource"
	FieldTypes          = "types"
	FieldIDs            = "ids"
	FieldSources        = "sources"
	FieldType           = "type"
	FieldLongitude      = "longitude"
	FieldLatitude       = "latitude"
	FieldDepthKm        = "depth_km"
)

// PropertyFields lists the properties copied verbatim from a feature.
var PropertyFields = []string{
	FieldTime, FieldUpdated, FieldMag, FieldMagType, FieldPlace, FieldStatus,
	FieldTsunami, FieldSig, FieldNet, FieldNst, FieldDmin, FieldRms, FieldGap,
	FieldMagError, FieldDepthError, FieldMagNst, FieldLocationSource,
	FieldMagSource, FieldTypes, FieldIDs, FieldSources, FieldType,
}

// FlatRecord maps feed-native field names to raw values. Every field is
// present; a nil value marks an input that was absent.
type FlatRecord map[string]any

// Missing reports whether the field is absent or explicitly null.
func (r FlatRecord) Missing(field string) bool {
	v, ok := r[field]
	return !ok || v == nil
}
