package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"greentea/internal/domain"
	"greentea/internal/repository"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS login_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES telegram_sso(id),
	token TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL,
	expired_at DATETIME NOT NULL
);
`

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSessionsTable); err != nil {
		return fmt.Errorf("create login_sessions table: %w", err)
	}
	return nil
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO login_sessions (user_id, token, created_at, expired_at)
VALUES (?, ?, ?, ?)`,
		session.AccountID,
		session.Token,
		session.CreatedAt.UTC(),
		session.ExpiredAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert session: %w: %v", repository.ErrConflict, err)
		}
		return 0, fmt.Errorf("insert session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("session last insert id: %w", err)
	}
	session.ID = id
	return id, nil
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var session domain.Session
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, token, created_at, expired_at
FROM login_sessions
WHERE token = ?`,
		token,
	).Scan(&session.ID, &session.AccountID, &session.Token, &session.CreatedAt, &session.ExpiredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &session, nil
}
