package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pfrederiksen/athens-bands/internal/config"
	"github.com/pfrederiksen/athens-bands/internal/event"
)

// PostgresStore keeps payloads in a key/jsonb table:
//
//	key text primary key, payload jsonb, fetched_at timestamptz, updated_at timestamptz
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string // sanitized
	key   string
}

// NewPostgresStore connects to dsn and creates the table if it is missing
func NewPostgresStore(ctx context.Context, dsn, table, key string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres storage requires a DSN")
	}
	if table == "" {
		table = config.DefaultTable
	}
	if key == "" {
		key = config.DefaultStorageKey
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	if cfg.MaxConns > 4 {
		cfg.MaxConns = 4
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	s := &PostgresStore{
		pool:  pool,
		table: pgx.Identifier{table}.Sanitize(),
		key:   key,
	}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		key        text PRIMARY KEY,
		payload    jsonb NOT NULL,
		fetched_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}

// Load reads the payload stored under the configured key
func (s *PostgresStore) Load(ctx context.Context) (*event.Payload, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM `+s.table+` WHERE key = $1`, s.key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying payload: %w", err)
	}

	var payload event.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing payload: %w", err)
	}
	return &payload, nil
}

// Save upserts the payload under the configured key
func (s *PostgresStore) Save(ctx context.Context, payload *event.Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO `+s.table+` (key, payload, fetched_at, updated_at)
		VALUES ($1, $2::jsonb, $3, now())
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at, updated_at = now()`,
		s.key, string(data), payload.FetchedAt)
	if err != nil {
		return fmt.Errorf("saving payload: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
