package ingestion

import (
	"fmt"
	"time"
)

// Window is a half-open [Start, End) range requested from the feed.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) String() string {
	return w.Start.Format(dateLayout) + ".." + w.End.Format(dateLayout)
}

const dateLayout = "2006-01-02"

// MonthWindows splits the years startYear..endYear (inclusive) into
// calendar months in UTC. December ends on January 1 of the next year.
func MonthWindows(startYear, endYear int) ([]Window, error) {
	if endYear < startYear {
		return nil, fmt.Errorf("end year %d is before start year %d", endYear, startYear)
	}

	windows := make([]Window, 0, (endYear-startYear+1)*12)
	for year := startYear; year <= endYear; year++ {
		for month := time.January; month <= time.December; month++ {
			start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
			windows = append(windows, Window{
				Start: start,
				End:   start.AddDate(0, 1, 0),
			})
		}
	}
	return windows, nil
}
