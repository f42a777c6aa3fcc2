package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawEvent_UnmarshalLenient(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		check func(t *testing.T, ev RawEvent)
	}{
		{
			name: "numeric id keeps its text",
			in:   `{"id":12345,"properties":{"mag":5.1}}`,
			check: func(t *testing.T, ev RawEvent) {
				assert.Equal(t, "12345", ev.ID)
				assert.Equal(t, json.Number("5.1"), ev.Properties["mag"])
			},
		},
		{
			name: "object id is dropped",
			in:   `{"id":{"v":1},"properties":{}}`,
			check: func(t *testing.T, ev RawEvent) {
				assert.Empty(t, ev.ID)
				assert.NotNil(t, ev.Properties)
			},
		},
		{
			name: "properties not an object",
			in:   `{"id":"a","properties":["x"]}`,
			check: func(t *testing.T, ev RawEvent) {
				assert.Equal(t, "a", ev.ID)
				assert.Nil(t, ev.Properties)
			},
		},
		{
			name: "coordinates not an array",
			in:   `{"id":"b","geometry":{"type":"Point","coordinates":"n/a"}}`,
			check: func(t *testing.T, ev RawEvent) {
				require.NotNil(t, ev.Geometry)
				assert.Equal(t, "Point", ev.Geometry.Type)
				assert.Nil(t, ev.Geometry.Coordinates)
			},
		},
		{
			name: "geometry not an object",
			in:   `{"id":"c","geometry":42}`,
			check: func(t *testing.T, ev RawEvent) {
				assert.Nil(t, ev.Geometry)
			},
		},
		{
			name: "coordinates keep numbers exact",
			in:   `{"id":"d","geometry":{"coordinates":[139.7,35.7,10.0]}}`,
			check: func(t *testing.T, ev RawEvent) {
				require.NotNil(t, ev.Geometry)
				assert.Equal(t, []any{json.Number("139.7"), json.Number("35.7"), json.Number("10.0")}, ev.Geometry.Coordinates)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ev RawEvent
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ev))
			tt.check(t, ev)
		})
	}
}

func TestRawEvent_UnmarshalRejectsNonObjects(t *testing.T) {
	for _, in := range []string{`null`, `7`, `"feature"`, `[1,2]`} {
		var ev RawEvent
		assert.Error(t, json.Unmarshal([]byte(in), &ev), in)
	}
}

func TestRawEvent_RoundTrip(t *testing.T) {
	in := RawEvent{
		ID:         "us7000abcd",
		Properties: map[string]any{"time": json.Number("1577836800000"), "place": "Tokyo, Japan"},
		Geometry:   &Geometry{Type: "Point", Coordinates: []any{json.Number("139.7"), json.Number("35.7"), json.Number("10")}},
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out RawEvent
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}
