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

const createIdentitiesTable = `
CREATE TABLE IF NOT EXISTS gt_users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tg_user_id INTEGER NOT NULL UNIQUE,
	username TEXT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NULL,
	phone TEXT NULL,
	is_verified INTEGER NOT NULL DEFAULT 0,
	is_support INTEGER NOT NULL DEFAULT 0,
	is_scam INTEGER NOT NULL DEFAULT 0,
	bio TEXT NULL,
	type TEXT NOT NULL DEFAULT 'user',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NULL
);
`

type IdentityRepository struct {
	db *sql.DB
}

func NewIdentityRepository(db *sql.DB) repository.IdentityRepository {
	return &IdentityRepository{db: db}
}

func (r *IdentityRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createIdentitiesTable); err != nil {
		return fmt.Errorf("create gt_users table: %w", err)
	}
	return nil
}

func (r *IdentityRepository) GetByTgUserID(ctx context.Context, tgUserID string) (*domain.Identity, error) {
	var (
		identity  domain.Identity
		tgID      int64
		username  sql.NullString
		lastName  sql.NullString
		firstName string
	)
	err := r.db.QueryRowContext(ctx, `
SELECT id, tg_user_id, username, first_name, last_name
FROM gt_users
WHERE tg_user_id = ?`,
		tgUserID,
	).Scan(&identity.ID, &tgID, &username, &firstName, &lastName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("identity %s: %w", tgUserID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}

	identity.TgUserID = fmt.Sprint(tgID)
	identity.Username = username.String
	identity.FirstName = firstName
	identity.LastName = lastName.String
	return &identity, nil
}

func (r *IdentityRepository) Upsert(ctx context.Context, identity *domain.Identity) (int64, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO gt_users (tg_user_id, username, first_name, last_name, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(tg_user_id) DO UPDATE SET
	username = excluded.username,
	first_name = excluded.first_name,
	last_name = excluded.last_name,
	updated_at = ?`,
		identity.TgUserID,
		nullString(identity.Username),
		identity.FirstName,
		nullString(identity.LastName),
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert identity: %w", err)
	}

	stored, err := r.GetByTgUserID(ctx, identity.TgUserID)
	if err != nil {
		return 0, err
	}
	identity.ID = stored.ID
	return stored.ID, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
