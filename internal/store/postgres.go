package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTokenStore keeps one token row per profile in PostgreSQL.
type PostgresTokenStore struct {
	db      *pgxpool.Pool
	profile string
}

// NewPostgresTokenStore builds a token store on the client_tokens table.
func NewPostgresTokenStore(db *pgxpool.Pool, profile string) *PostgresTokenStore {
	if profile == "" {
		profile = "default"
	}
	return &PostgresTokenStore{db: db, profile: profile}
}

// EnsureSchema creates the client_tokens table when missing.
func (s *PostgresTokenStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS client_tokens (
        profile    TEXT PRIMARY KEY,
        token      TEXT NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`)
	if err != nil {
		return fmt.Errorf("create client_tokens: %w", err)
	}
	return nil
}

func (s *PostgresTokenStore) Load(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRow(ctx, `SELECT token FROM client_tokens WHERE profile = $1`, s.profile).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

func (s *PostgresTokenStore) Save(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `INSERT INTO client_tokens (profile, token, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (profile) DO UPDATE SET token = EXCLUDED.token, updated_at = now()`, s.profile, token)
	return err
}

func (s *PostgresTokenStore) Delete(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM client_tokens WHERE profile = $1`, s.profile)
	return err
}
