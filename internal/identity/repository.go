package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estate-link/estate_link/internal/apiclient"
)

// Repository persists broker accounts.
type Repository interface {
	Create(ctx context.Context, account Account) error
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	Update(ctx context.Context, account Account) error
}

const uniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the brokers table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS brokers (
        id UUID PRIMARY KEY,
        email TEXT NOT NULL UNIQUE,
        name TEXT NOT NULL DEFAULT '',
        phone TEXT NOT NULL DEFAULT '',
        address TEXT NOT NULL DEFAULT '',
        image TEXT NOT NULL DEFAULT '',
        rera_number TEXT NOT NULL DEFAULT '',
        documents JSONB NOT NULL DEFAULT '[]',
        bank_name TEXT NOT NULL DEFAULT '',
        account_number TEXT NOT NULL DEFAULT '',
        ifsc_code TEXT NOT NULL DEFAULT '',
        recipient_name TEXT NOT NULL DEFAULT '',
        password_hash BYTEA,
        token_version INT NOT NULL DEFAULT 0,
        otp_login BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    )`)
	if err != nil {
		return fmt.Errorf("create brokers table: %w", err)
	}
	if _, err := r.db.Exec(ctx, `ALTER TABLE brokers ADD COLUMN IF NOT EXISTS otp_login BOOLEAN NOT NULL DEFAULT FALSE`); err != nil {
		return fmt.Errorf("migrate brokers table: %w", err)
	}
	return nil
}

// Create inserts a new account.
func (r *PostgresRepository) Create(ctx context.Context, a Account) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return err
	}
	docs, err := encodeDocuments(a.Documents)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO brokers (id, email, name, phone, address, image, rera_number, documents,
        bank_name, account_number, ifsc_code, recipient_name, password_hash, token_version, otp_login, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		id, a.Email, a.Name, a.Phone, a.Address, a.Image, a.ReraNumber, docs,
		a.BankName, a.AccountNumber, a.IFSCCode, a.RecipientName, a.PasswordHash, a.TokenVersion,
		a.OTPLogin, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return err
}

const selectAccount = `SELECT id, email, name, phone, address, image, rera_number, documents,
        bank_name, account_number, ifsc_code, recipient_name, password_hash, token_version, otp_login, created_at, updated_at
        FROM brokers`

// FindByEmail fetches an account by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, selectAccount+` WHERE email = $1`, email))
}

// FindByID fetches an account by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	return scanAccount(r.db.QueryRow(ctx, selectAccount+` WHERE id = $1`, uid))
}

// Update overwrites every mutable column.
func (r *PostgresRepository) Update(ctx context.Context, a Account) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return ErrNotFound
	}
	docs, err := encodeDocuments(a.Documents)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE brokers SET name = $2, phone = $3, address = $4, image = $5, rera_number = $6,
        documents = $7, bank_name = $8, account_number = $9, ifsc_code = $10, recipient_name = $11,
        password_hash = $12, token_version = $13, otp_login = $14, updated_at = $15 WHERE id = $1`,
		id, a.Name, a.Phone, a.Address, a.Image, a.ReraNumber, docs, a.BankName, a.AccountNumber,
		a.IFSCCode, a.RecipientName, a.PasswordHash, a.TokenVersion, a.OTPLogin, a.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		id      uuid.UUID
		docs    []byte
		account Account
	)
	err := row.Scan(&id, &account.Email, &account.Name, &account.Phone, &account.Address, &account.Image,
		&account.ReraNumber, &docs, &account.BankName, &account.AccountNumber, &account.IFSCCode,
		&account.RecipientName, &account.PasswordHash, &account.TokenVersion, &account.OTPLogin, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	if len(docs) > 0 {
		if err := json.Unmarshal(docs, &account.Documents); err != nil {
			return Account{}, fmt.Errorf("decode documents: %w", err)
		}
	}
	account.ID = id.String()
	account.CreatedAt = account.CreatedAt.UTC()
	account.UpdatedAt = account.UpdatedAt.UTC()
	return account, nil
}

func encodeDocuments(docs []apiclient.Document) ([]byte, error) {
	if docs == nil {
		docs = []apiclient.Document{}
	}
	return json.Marshal(docs)
}

