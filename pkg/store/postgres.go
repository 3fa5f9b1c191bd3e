package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xhad/filingmap/internal/models"
	"github.com/xhad/filingmap/internal/types"
)

// Verify interface compliance
var _ types.RecordStore = (*LinkStore)(nil)

type StoreConfig struct {
	ConnString string
	TableName  string
}

// LinkStore mirrors the CSV output into a Postgres table keyed by CIK.
type LinkStore struct {
	config StoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config StoreConfig) (*LinkStore, error) {
	if config.TableName == "" {
		config.TableName = "filing_links"
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ls := &LinkStore{
		config: config,
		pool:   pool,
	}

	if err := ls.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return ls, nil
}

func (ls *LinkStore) initialize(ctx context.Context) error {
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			ticker TEXT NOT NULL,
			name_source_a TEXT,
			name_source_b TEXT,
			added TEXT,
			sector TEXT,
			sub_industry TEXT,
			url TEXT,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, ls.tableName())

	if _, err := ls.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Store upserts records in a single transaction. A NULL url marks a CIK
// without a qualifying filing.
func (ls *LinkStore) Store(ctx context.Context, records []models.OutputRecord) error {
	tx, err := ls.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, ticker, name_source_a, name_source_b, added, sector, sub_industry, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			ticker = EXCLUDED.ticker,
			name_source_a = EXCLUDED.name_source_a,
			name_source_b = EXCLUDED.name_source_b,
			added = EXCLUDED.added,
			sector = EXCLUDED.sector,
			sub_industry = EXCLUDED.sub_industry,
			url = EXCLUDED.url,
			updated_at = now()`,
		ls.tableName())

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(stmt,
			r.ID,
			sanitizeUTF8(r.Ticker),
			sanitizeUTF8(r.NameA),
			sanitizeUTF8(r.NameB),
			r.DateAdded,
			sanitizeUTF8(r.Sector),
			sanitizeUTF8(r.SubIndustry),
			r.URL,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Load returns all stored records ordered by CIK.
func (ls *LinkStore) Load(ctx context.Context) ([]models.OutputRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, ticker, name_source_a, name_source_b, added, sector, sub_industry, url
		FROM %s
		ORDER BY id`, ls.tableName())

	rows, err := ls.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.OutputRecord
	for rows.Next() {
		var r models.OutputRecord
		err := rows.Scan(
			&r.ID,
			&r.Ticker,
			&r.NameA,
			&r.NameB,
			&r.DateAdded,
			&r.Sector,
			&r.SubIndustry,
			&r.URL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (ls *LinkStore) Close() {
	if ls.pool != nil {
		ls.pool.Close()
	}
}

func (ls *LinkStore) tableName() string {
	return pgx.Identifier{ls.config.TableName}.Sanitize()
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
