package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/bdougie/genvideo/internal/models"
)

// FingerprintDims is the width of the fingerprint column: mean R, G, B for 16 frames
const FingerprintDims = 48

// PostgresStorage records runs in PostgreSQL with a pgvector fingerprint column
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to the database at connString
func NewPostgresStorage(ctx context.Context, connString string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// Close closes the database connection
func (s *PostgresStorage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// fingerprintParam returns nil when the fingerprint does not fit the column
func fingerprintParam(fp []float32) *pgvector.Vector {
	if len(fp) != FingerprintDims {
		return nil
	}
	v := pgvector.NewVector(fp)
	return &v
}

// AddRun inserts a run record
func (s *PostgresStorage) AddRun(ctx context.Context, run models.Run) error {
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs
        (id, prompt, model_id, frame_count, fps, output_path, width, height, fingerprint, caption, elapsed_ms, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (id) DO UPDATE SET
            output_path = EXCLUDED.output_path,
            fingerprint = EXCLUDED.fingerprint,
            caption = EXCLUDED.caption,
            elapsed_ms = EXCLUDED.elapsed_ms`,
		run.ID, run.Prompt, run.ModelID, run.FrameCount, run.FPS, run.OutputPath,
		run.Width, run.Height, fingerprintParam(run.Fingerprint), run.Caption,
		run.Elapsed.Milliseconds(), createdAt)
	if err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	return nil
}

// Flush implements the Storage interface - no-op for Postgres as we save immediately
func (s *PostgresStorage) Flush() error {
	return nil
}

// SearchSimilarRuns finds runs whose clips look most like the given fingerprint
func (s *PostgresStorage) SearchSimilarRuns(ctx context.Context, fingerprint []float32, limit int) ([]models.RunSearchResult, error) {
	query := fingerprintParam(fingerprint)
	if query == nil {
		return nil, fmt.Errorf("fingerprint has %d values, want %d", len(fingerprint), FingerprintDims)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, prompt, output_path, 1 - (fingerprint <=> $1) AS similarity
        FROM runs
        WHERE fingerprint IS NOT NULL
        ORDER BY fingerprint <=> $1
        LIMIT $2`,
		*query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar runs: %w", err)
	}
	defer rows.Close()

	var results []models.RunSearchResult
	for rows.Next() {
		var result models.RunSearchResult
		if err := rows.Scan(&result.RunID, &result.Prompt, &result.OutputPath, &result.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search results: %w", err)
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// InitSchema creates the database schema if it doesn't exist
func InitSchema(ctx context.Context, connString string) error {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	// Check if vector extension exists
	var exists bool
	err = conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')").Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check for vector extension: %w", err)
	}

	if !exists {
		if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
			return fmt.Errorf("failed to create vector extension: %w", err)
		}
	}

	_, err = conn.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS runs (
            id VARCHAR(64) PRIMARY KEY,
            prompt TEXT NOT NULL,
            model_id VARCHAR(255) NOT NULL,
            frame_count INTEGER NOT NULL,
            fps INTEGER NOT NULL,
            output_path TEXT NOT NULL,
            width INTEGER NOT NULL,
            height INTEGER NOT NULL,
            fingerprint vector(%d),
            caption TEXT NOT NULL DEFAULT '',
            elapsed_ms BIGINT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        );

        CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
    `, FingerprintDims))
	if err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	return nil
}
