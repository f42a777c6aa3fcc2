package models

import "time"

const (
	UnknownText    = "unknown" // sentinel for absent text fields
	UnknownCountry = "Unknown" // sentinel for a place without a comma segment

	DepthShallow = "shallow"
	DepthDeep    = "deep"

	MagDestructive = "destructive"
	MagStrong      = "strong"
)

// Earthquake is the persisted row of the earthquakes table. Only the date
// parts may be nil, and only when Time is nil.
type Earthquake struct {
	ID                    string
	Time                  *time.Time
	Updated               *time.Time
	Magnitude             float64
	MagnitudeType         string
	Place                 string
	Status                string
	Tsunami               int
	Significance          float64
	Network               string
	StationCount          float64
	MinStationDistance    float64
	RMSError              float64
	AzimuthalGap          float64
	MagnitudeError        float64
	DepthError            float64
	MagnitudeStationCount float64
	LocationSource        string
	MagnitudeSource       string
	Types                 string
	IDs                   string
	Sources               string
	EventType             string
	Longitude             float64
	Latitude              float64
	DepthKm               float64
	Country               string
	Year                  *int
	Month                 *int
	Day                   *int
	DayOfWeek             *string
	DepthFlag             string
	MagFlag               string
}

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

func (e *Earthquake) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
	}
}
