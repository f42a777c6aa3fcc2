package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/quake-etl/internal/ingestion"
	"github.com/mr1hm/quake-etl/internal/logging"
	"github.com/mr1hm/quake-etl/internal/metrics"
	"github.com/mr1hm/quake-etl/internal/models"
	"github.com/mr1hm/quake-etl/internal/transform"
)

// Loader persists normalized rows. repository.Store is the production one.
type Loader interface {
	Append(ctx context.Context, records []models.Earthquake) (int64, error)
}

type Summary struct {
	RunID         string
	Windows       int
	FailedWindows []ingestion.WindowResult
	RawEvents     int
	Loaded        int64
	SnapshotPath  string
	Duration      time.Duration
}

// Pipeline wires Fetcher, Flattener, Normalizer and Loader together. A
// snapshot of the raw events is written between fetch and load when
// snapshotPath is set.
type Pipeline struct {
	fetcher      *ingestion.Fetcher
	loader       Loader
	snapshotPath string
}

func New(fetcher *ingestion.Fetcher, loader Loader, snapshotPath string) *Pipeline {
	return &Pipeline{
		fetcher:      fetcher,
		loader:       loader,
		snapshotPath: snapshotPath,
	}
}

// Run fetches every month of [startYear, endYear], then transforms and
// appends whatever the successful windows returned. Failed windows are
// reported in the summary, not as an error. A cancelled context aborts the
// run before anything is loaded.
func (p *Pipeline) Run(ctx context.Context, startYear, endYear int) (*Summary, error) {
	start := time.Now()
	sum, events, err := p.fetch(ctx, startYear, endYear)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return sum, err
	}

	sum.Loaded, err = p.load(ctx, sum.RunID, events)
	sum.Duration = time.Since(start)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return sum, err
	}

	p.finish(sum)
	return sum, nil
}

// Fetch runs the extraction only and leaves the raw events in the snapshot.
func (p *Pipeline) Fetch(ctx context.Context, startYear, endYear int) (*Summary, error) {
	if p.snapshotPath == "" {
		return nil, fmt.Errorf("fetch without load needs a snapshot path")
	}

	sum, _, err := p.fetch(ctx, startYear, endYear)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return sum, err
	}

	p.finish(sum)
	return sum, nil
}

// LoadSnapshot re-runs flatten, normalize and load over a snapshot file
// without touching the network.
func (p *Pipeline) LoadSnapshot(ctx context.Context, path string) (*Summary, error) {
	start := time.Now()
	sum := &Summary{RunID: uuid.NewString(), SnapshotPath: path}

	events, err := ingestion.LoadSnapshot(path)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return sum, err
	}
	sum.RawEvents = len(events)
	slog.Info("snapshot read", logging.RunID(sum.RunID), logging.Path(path), logging.Count(len(events)))

	sum.Loaded, err = p.load(ctx, sum.RunID, events)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return sum, err
	}

	sum.Duration = time.Since(start)
	p.finish(sum)
	return sum, nil
}

func (p *Pipeline) fetch(ctx context.Context, startYear, endYear int) (*Summary, []models.RawEvent, error) {
	start := time.Now()
	sum := &Summary{RunID: uuid.NewString()}
	defer func() { sum.Duration = time.Since(start) }()

	windows, err := ingestion.MonthWindows(startYear, endYear)
	if err != nil {
		return sum, nil, err
	}
	sum.Windows = len(windows)

	slog.Info("run started", logging.RunID(sum.RunID), logging.Stage("fetch"),
		slog.Int("start_year", startYear), slog.Int("end_year", endYear), slog.Int("windows", len(windows)))

	results := p.fetcher.Fetch(ctx, windows)
	if err := ctx.Err(); err != nil {
		return sum, nil, fmt.Errorf("run %s cancelled during fetch: %w", sum.RunID, err)
	}

	events := ingestion.Collect(results)
	sum.FailedWindows = ingestion.Failed(results)
	sum.RawEvents = len(events)

	// the fetcher already warned with each reason
	if n := len(sum.FailedWindows); n > 0 {
		slog.Warn("windows contributed no records", logging.RunID(sum.RunID), logging.Count(n))
	}

	if p.snapshotPath != "" {
		if err := ingestion.SaveSnapshot(p.snapshotPath, events); err != nil {
			return sum, nil, err
		}
		sum.SnapshotPath = p.snapshotPath
		slog.Info("snapshot written", logging.RunID(sum.RunID), logging.Path(p.snapshotPath), logging.Count(len(events)))
	}

	return sum, events, nil
}

func (p *Pipeline) load(ctx context.Context, runID string, events []models.RawEvent) (int64, error) {
	flat := transform.FlattenAll(events)
	slog.Debug("records flattened", logging.RunID(runID), logging.Stage("flatten"), logging.Count(len(flat)))

	rows := transform.NormalizeAll(flat)
	slog.Debug("records normalized", logging.RunID(runID), logging.Stage("normalize"), logging.Count(len(rows)))

	n, err := p.loader.Append(ctx, rows)
	if err != nil {
		slog.Error("load failed", logging.RunID(runID), logging.Stage("load"), logging.Error(err))
		return 0, fmt.Errorf("run %s: %w", runID, err)
	}
	return n, nil
}

func (p *Pipeline) finish(sum *Summary) {
	metrics.RunsTotal.WithLabelValues("ok").Inc()
	slog.Info("run finished",
		logging.RunID(sum.RunID),
		slog.Int("windows", sum.Windows),
		slog.Int("failed_windows", len(sum.FailedWindows)),
		slog.Int("raw_events", sum.RawEvents),
		slog.Int64("loaded", sum.Loaded),
		slog.Duration("duration", sum.Duration),
	)
}
