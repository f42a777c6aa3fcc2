package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/mr1hm/quake-etl/internal/logging"
	"github.com/mr1hm/quake-etl/internal/metrics"
	"github.com/mr1hm/quake-etl/internal/models"
)

//go:embed migrations
var migrationsFS embed.FS

var ErrSchemaMismatch = errors.New("database schema version mismatch")

const DefaultBatchSize = 500

// Store is the append-only earthquakes table on one of the supported
// engines. Rows are never updated or deduplicated; loading the same batch
// twice stores it twice.
type Store struct {
	db        *sql.DB
	dialect   dialect
	batchSize int
}

// Open connects, brings the schema up to SchemaVersion and refuses to
// continue if the database was migrated past it or left dirty.
func Open(ctx context.Context, driver, dsn string, batchSize int) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	dsn, err = d.prepareDSN(dsn)
	if err != nil {
		return nil, err
	}
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if limit := d.maxBatchSize(); batchSize > limit {
		slog.Warn("batch size exceeds the placeholder limit, clamping",
			logging.Driver(d.name), slog.Int("requested", batchSize), slog.Int("batch_size", limit))
		batchSize = limit
	}

	db, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if d.name == "sqlite" {
		// every :memory: connection is its own database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &Store{db: db, dialect: d, batchSize: batchSize}
	if err := s.migrate(dsn); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("database ready", logging.Driver(d.name), slog.Uint64("schema_version", uint64(SchemaVersion)))
	return s, nil
}

// NewSQLiteDB opens a sqlite store at path, ":memory:" included.
func NewSQLiteDB(path string) (*Store, error) {
	return Open(context.Background(), "sqlite", path, DefaultBatchSize)
}

func (s *Store) migrate(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations/"+s.dialect.name)
	if err != nil {
		return fmt.Errorf("error loading migrations: %w", err)
	}

	// mysql and pgx migration drivers own the pool they are handed. sqlite
	// shares s.db so a :memory: database sees its schema.
	db := s.db
	if s.dialect.name != "sqlite" {
		db, err = sql.Open(s.dialect.sqlDriver, dsn)
		if err != nil {
			src.Close()
			return fmt.Errorf("error opening migration connection: %w", err)
		}
	}

	drv, err := s.dialect.migrateDB(db)
	if err != nil {
		src.Close()
		if db != s.db {
			db.Close()
		}
		return fmt.Errorf("error preparing migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.dialect.name, drv)
	if err != nil {
		src.Close()
		if db != s.db {
			drv.Close()
		}
		return fmt.Errorf("error creating migrator: %w", err)
	}
	if db != s.db {
		defer m.Close()
	} else {
		defer src.Close()
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return fmt.Errorf("error reading schema version: %w", err)
	case dirty:
		return fmt.Errorf("%w: version %d is dirty", ErrSchemaMismatch, version)
	case version > SchemaVersion:
		return fmt.Errorf("%w: database at %d, loader expects %d", ErrSchemaMismatch, version, SchemaVersion)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error while migrating database: %w", err)
	}

	version, dirty, err = m.Version()
	if err != nil {
		return fmt.Errorf("error reading schema version: %w", err)
	}
	if dirty || version != SchemaVersion {
		return fmt.Errorf("%w: database at %d (dirty=%t), loader expects %d", ErrSchemaMismatch, version, dirty, SchemaVersion)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Driver() string {
	return s.dialect.name
}

// Append validates every record, then inserts them all in one transaction
// using multi-row INSERTs of at most batchSize rows. Nothing is written if
// any record is invalid or any batch fails.
func (s *Store) Append(ctx context.Context, records []models.Earthquake) (int64, error) {
	for i := range records {
		if err := ValidateRecord(&records[i]); err != nil {
			metrics.LoadErrors.Inc()
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if len(records) == 0 {
		return 0, nil
	}

	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.LoadErrors.Inc()
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	var inserted int64
	for lo := 0; lo < len(records); lo += s.batchSize {
		hi := min(lo+s.batchSize, len(records))
		query, args := s.insertStatement(records[lo:hi])

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			metrics.LoadErrors.Inc()
			return 0, fmt.Errorf("error inserting rows %d-%d: %w", lo, hi-1, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = int64(hi - lo)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		metrics.LoadErrors.Inc()
		return 0, fmt.Errorf("error committing load: %w", err)
	}

	metrics.RowsLoadedTotal.Add(float64(inserted))
	metrics.LoadDuration.Observe(time.Since(start).Seconds())
	slog.Info("rows appended", logging.Driver(s.dialect.name), logging.Count(int(inserted)), slog.Duration("duration", time.Since(start)))
	return inserted, nil
}

func (s *Store) insertStatement(batch []models.Earthquake) (string, []any) {
	cols := len(Schema)
	args := make([]any, 0, len(batch)*cols)

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(TableName)
	b.WriteString(" (")
	b.WriteString(strings.Join(ColumnNames(), ", "))
	b.WriteString(") VALUES ")

	n := 0
	for i := range batch {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			n++
			b.WriteString(s.dialect.placeholder(n))
		}
		b.WriteByte(')')
		args = append(args, rowValues(&batch[i])...)
	}
	return b.String(), args
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+TableName).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting rows: %w", err)
	}
	return n, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
