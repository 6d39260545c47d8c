package repository

import (
	"context"

	"greentea/internal/domain"
)

// AccountRepository defines persistence operations for dashboard accounts (telegram_sso).
type AccountRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, account *domain.Account) (int64, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
}

// IdentityRepository reads Telegram users captured by the ingestion bot (gt_users).
type IdentityRepository interface {
	Init(ctx context.Context) error
	GetByTgUserID(ctx context.Context, tgUserID string) (*domain.Identity, error)
	// Upsert exists for seeding; the ingestion bot owns gt_users in production.
	Upsert(ctx context.Context, identity *domain.Identity) (int64, error)
}

// SessionRepository stores dashboard login sessions.
type SessionRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, session *domain.Session) (int64, error)
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
}
