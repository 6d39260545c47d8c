package repository

import (
	"context"
	"time"

	"greentea/internal/domain"
)

// GroupRepository exposes archived groups and their activity.
type GroupRepository interface {
	Init(ctx context.Context) error
	List(ctx context.Context, limit, offset int) ([]domain.Group, error)
	CountMessagesBetween(ctx context.Context, from, to time.Time) ([]domain.GroupMessageCount, error)
}

// MessageRepository exposes archived chat messages.
type MessageRepository interface {
	Init(ctx context.Context) error
	// ListByGroup returns the newest limit messages after skipping offset,
	// ordered oldest first.
	ListByGroup(ctx context.Context, tgGroupID int64, limit, offset int) ([]domain.ChatMessage, error)
}
