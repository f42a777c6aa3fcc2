package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mr1hm/quake-etl/internal/config"
	"github.com/mr1hm/quake-etl/internal/logging"
	"github.com/mr1hm/quake-etl/internal/metrics"
	"github.com/mr1hm/quake-etl/internal/models"
	"github.com/mr1hm/quake-etl/internal/progress"
	"github.com/mr1hm/quake-etl/internal/worker"
)

// ErrNotFetched marks a window that was never requested because the run was
// cancelled first.
var ErrNotFetched = errors.New("window not fetched")

// WindowResult is the outcome of one window: either Events or Err is set.
type WindowResult struct {
	Window   Window
	Events   []models.RawEvent
	Err      error
	Duration time.Duration
}

func (r WindowResult) OK() bool {
	return r.Err == nil
}

type Fetcher struct {
	client       *http.Client
	baseURL      string
	minMagnitude float64
	limit        int
	concurrency  int
	progress     *progress.Broadcaster[WindowResult]
}

func NewFetcher(cfg config.FeedConfig) *Fetcher {
	return &Fetcher{
		client:       newHTTPClient(cfg.Timeout),
		baseURL:      cfg.URL,
		minMagnitude: cfg.MinMagnitude,
		limit:        cfg.Limit,
		concurrency:  cfg.Concurrency,
	}
}

// SetProgress publishes every finished window to b.
func (f *Fetcher) SetProgress(b *progress.Broadcaster[WindowResult]) {
	f.progress = b
}

func (f *Fetcher) report(res WindowResult) WindowResult {
	if f.progress != nil {
		f.progress.Broadcast(res)
	}
	return res
}

// FetchWindow requests a single window. Failures are reported in the result,
// never retried.
func (f *Fetcher) FetchWindow(ctx context.Context, w Window) WindowResult {
	slog.Info("fetching window", logging.Window(w.Start, w.End))

	start := time.Now()
	events, err := f.queryUSGS(ctx, w)
	res := WindowResult{Window: w, Events: events, Err: err, Duration: time.Since(start)}
	metrics.FetchDuration.Observe(res.Duration.Seconds())

	if err != nil {
		metrics.WindowsTotal.WithLabelValues("failed").Inc()
		slog.Warn("window failed", logging.Window(w.Start, w.End), logging.Error(err))
		return f.report(res)
	}

	metrics.WindowsTotal.WithLabelValues("ok").Inc()
	metrics.RawEventsTotal.Add(float64(len(events)))
	slog.Info("window fetched", logging.Window(w.Start, w.End), logging.Count(len(events)))
	if len(events) >= f.limit {
		slog.Warn("window hit the per-request limit, records may be missing",
			logging.Window(w.Start, w.End), logging.Count(f.limit))
	}
	return f.report(res)
}

// Fetch requests every window and returns the results in window order,
// whether the windows ran sequentially or on the worker pool.
func (f *Fetcher) Fetch(ctx context.Context, windows []Window) []WindowResult {
	results := make([]WindowResult, len(windows))
	for i, w := range windows {
		results[i] = WindowResult{Window: w, Err: ErrNotFetched}
	}

	if f.concurrency <= 1 {
		for i, w := range windows {
			if ctx.Err() != nil {
				break
			}
			results[i] = f.FetchWindow(ctx, w)
		}
		return results
	}

	// Each job owns its slot, so no locking is needed.
	pool := worker.NewWorkerPool(f.concurrency, len(windows), func(ctx context.Context, i int) error {
		results[i] = f.FetchWindow(ctx, windows[i])
		return results[i].Err
	})
	pool.Start(ctx)
	for i := range windows {
		pool.Submit(i)
	}
	pool.Stop()

	return results
}

// Collect concatenates the events of the successful windows in window order.
func Collect(results []WindowResult) []models.RawEvent {
	total := 0
	for _, r := range results {
		total += len(r.Events)
	}

	events := make([]models.RawEvent, 0, total)
	for _, r := range results {
		if r.OK() {
			events = append(events, r.Events...)
		}
	}
	return events
}

// Failed returns the windows that contributed nothing because of an error.
func Failed(results []WindowResult) []WindowResult {
	var failed []WindowResult
	for _, r := range results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}

// Close releases idle keep-alive connections held by the HTTP client.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}
