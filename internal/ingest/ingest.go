// Package ingest bulk-loads the drug brand index from a BrandMaster export.
// The load replaces the table contents wholesale; the API only ever reads it.
package ingest

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type Ingestor struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func New(pool *pgxpool.Pool, logger zerolog.Logger) *Ingestor {
	return &Ingestor{pool: pool, logger: logger}
}

// Run truncates drug_brands and streams the file in with COPY. The truncate
// and copy share a transaction, so readers never observe a half-loaded table.
func (ing *Ingestor) Run(ctx context.Context, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open brand master file: %w", err)
	}
	defer f.Close()

	tx, err := ing.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin ingest transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE TABLE drug_brands`); err != nil {
		return 0, fmt.Errorf("truncate drug_brands: %w", err)
	}

	rows := make(chan *BrandRow)
	parseErr := make(chan error, 1)
	go func() {
		defer close(rows)
		_, err := readBrandMaster(f, func(row *BrandRow) error {
			select {
			case rows <- row:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		parseErr <- err
	}()

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"drug_brands"}, brandMasterColumns, copySource(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into drug_brands: %w", err)
	}
	if err := <-parseErr; err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit ingest transaction: %w", err)
	}

	ing.logger.Info().Int64("rows", copied).Str("file", path).Msg("drug brand index loaded")
	return copied, nil
}

type rowSource struct {
	rows    <-chan *BrandRow
	current *BrandRow
}

func copySource(rows <-chan *BrandRow) pgx.CopyFromSource {
	return &rowSource{rows: rows}
}

func (s *rowSource) Next() bool {
	row, ok := <-s.rows
	s.current = row
	return ok
}

func (s *rowSource) Values() ([]interface{}, error) {
	return s.current.values(), nil
}

func (s *rowSource) Err() error { return nil }
