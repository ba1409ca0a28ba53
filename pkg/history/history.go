// Package history keeps an optional audit trail of query runs in
// postgres. It records tool telemetry only, never CRM data or
// credentials, and its absence must not affect a query's outcome.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Run is one recorded tool invocation.
type Run struct {
	ID          uuid.UUID
	Platform    string
	ObjectType  string
	QueryType   string
	RecordCount int
	Status      string
	Error       string
	StartedAt   time.Time
	Duration    time.Duration
}

// NewRun starts a run record with a fresh id.
func NewRun(platform, objectType, queryType string) Run {
	return Run{
		ID:         uuid.New(),
		Platform:   platform,
		ObjectType: objectType,
		QueryType:  queryType,
		StartedAt:  time.Now(),
	}
}

// Recorder persists run records. Record must never block the query path
// on storage latency and must swallow storage failures.
type Recorder interface {
	Record(run Run)
	Close()
}

// NopRecorder is used when no history database is configured.
type NopRecorder struct{}

func (NopRecorder) Record(Run) {}
func (NopRecorder) Close()     {}

// PostgresRecorder writes runs asynchronously through a bounded
// goroutine pool; Close drains outstanding writes.
type PostgresRecorder struct {
	db     *DB
	pool   *pool.Pool
	logger *zap.Logger
}

func NewPostgresRecorder(db *DB, logger *zap.Logger) *PostgresRecorder {
	return &PostgresRecorder{
		db:     db,
		pool:   pool.New().WithMaxGoroutines(4),
		logger: logger,
	}
}

func (r *PostgresRecorder) Record(run Run) {
	r.pool.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := r.db.pool.Exec(ctx, `
			INSERT INTO query_runs
				(id, platform, object_type, query_type, record_count, status, error, started_at, duration_ms)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			run.ID, run.Platform, run.ObjectType, run.QueryType,
			run.RecordCount, run.Status, run.Error, run.StartedAt,
			run.Duration.Milliseconds())
		if err != nil {
			// Auditing is best-effort; the query result already went out.
			r.logger.Warn("Failed to record query run",
				zap.String("run_id", run.ID.String()),
				zap.Error(err))
		}
	})
}

// Close waits for in-flight writes and releases the database.
func (r *PostgresRecorder) Close() {
	r.pool.Wait()
	r.db.Close()
}
