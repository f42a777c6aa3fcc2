package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mr1hm/quake-etl/internal/logging"
	"github.com/mr1hm/quake-etl/internal/models"
)

// Features stay raw so each one is decoded on its own.
type usgsResponse struct {
	Features []json.RawMessage `json:"features"`
}

// StatusError is returned for a window whose response was not 2xx.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d - status: %s", e.Code, e.Status)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

func (f *Fetcher) windowURL(w Window) string {
	q := url.Values{}
	q.Set("format", "geojson")
	q.Set("starttime", w.Start.Format(dateLayout))
	q.Set("endtime", w.End.Format(dateLayout))
	q.Set("minmagnitude", strconv.FormatFloat(f.minMagnitude, 'f', -1, 64))
	q.Set("orderby", "time")
	q.Set("limit", strconv.Itoa(f.limit))
	return f.baseURL + "?" + q.Encode()
}

func (f *Fetcher) queryUSGS(ctx context.Context, w Window) ([]models.RawEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.windowURL(w), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	var data usgsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	return decodeFeatures(w, data.Features), nil
}

// decodeFeatures skips features that are not JSON objects. Fields of the
// wrong type inside a feature are handled by RawEvent itself.
func decodeFeatures(w Window, features []json.RawMessage) []models.RawEvent {
	events := make([]models.RawEvent, 0, len(features))
	skipped := 0
	for _, raw := range features {
		var ev models.RawEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	if skipped > 0 {
		slog.Warn("skipped features that are not objects", logging.Window(w.Start, w.End), logging.Count(skipped))
	}
	return events
}
