package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"greentea/internal/domain"
	"greentea/internal/repository"
)

const createAccountsTable = `
CREATE TABLE IF NOT EXISTS telegram_sso (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES gt_users(id),
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAccountsTable); err != nil {
		return fmt.Errorf("create telegram_sso table: %w", err)
	}
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (int64, error) {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO telegram_sso (user_id, username, email, password, created_at)
VALUES (?, ?, ?, ?, ?)`,
		account.IdentityID,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert account: %w: %v", repository.ErrConflict, err)
		}
		return 0, fmt.Errorf("insert account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("account last insert id: %w", err)
	}
	account.ID = id
	return id, nil
}

func (r *AccountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT id FROM telegram_sso WHERE email = ?`, email)
}

func (r *AccountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT id FROM telegram_sso WHERE username = ?`, username)
}

func (r *AccountRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query account: %w", err)
	}
	return true, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, username, email, password, created_at
FROM telegram_sso
WHERE email = ?`,
		email,
	)
	return scanAccount(row)
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, username, email, password, created_at
FROM telegram_sso
WHERE id = ?`,
		id,
	)
	return scanAccount(row)
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.IdentityID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &account, nil
}
