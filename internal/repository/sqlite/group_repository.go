package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"greentea/internal/domain"
	"greentea/internal/repository"
)

const createGroupTables = `
CREATE TABLE IF NOT EXISTS gt_groups (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tg_group_id INTEGER NOT NULL UNIQUE,
	username TEXT NULL,
	link TEXT NULL,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NULL
);
CREATE TABLE IF NOT EXISTS gt_chats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS gt_chat_group (
	group_id INTEGER NOT NULL REFERENCES gt_groups(id),
	chat_id INTEGER NOT NULL REFERENCES gt_chats(id),
	PRIMARY KEY (group_id, chat_id)
);
`

type GroupRepository struct {
	db *sql.DB
}

func NewGroupRepository(db *sql.DB) repository.GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createGroupTables); err != nil {
		return fmt.Errorf("create group tables: %w", err)
	}
	return nil
}

func (r *GroupRepository) List(ctx context.Context, limit, offset int) ([]domain.Group, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, tg_group_id, username, link, name, created_at, updated_at
FROM gt_groups
ORDER BY id ASC
LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	groups := []domain.Group{}
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}
	return groups, rows.Err()
}

// CountMessagesBetween counts messages per group whose telegram date falls in [from, to).
func (r *GroupRepository) CountMessagesBetween(ctx context.Context, from, to time.Time) ([]domain.GroupMessageCount, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT gt_groups.name, COUNT(1) AS msg_count
FROM gt_messages
INNER JOIN gt_message_content ON gt_messages.id = gt_message_content.message_id
INNER JOIN gt_chat_group ON gt_chat_group.chat_id = gt_messages.chat_id
INNER JOIN gt_groups ON gt_groups.id = gt_chat_group.group_id
WHERE datetime(gt_message_content.tg_date) >= datetime(?)
  AND datetime(gt_message_content.tg_date) < datetime(?)
GROUP BY gt_groups.id
ORDER BY msg_count DESC, gt_groups.id ASC`,
		from.UTC().Format(sqliteTimeLayout),
		to.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("count group messages: %w", err)
	}
	defer rows.Close()

	counts := []domain.GroupMessageCount{}
	for rows.Next() {
		var c domain.GroupMessageCount
		if err := rows.Scan(&c.Name, &c.MsgCount); err != nil {
			return nil, fmt.Errorf("scan group message count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func scanGroup(scanner rowScanner) (*domain.Group, error) {
	var (
		group     domain.Group
		username  sql.NullString
		link      sql.NullString
		updatedAt sql.NullTime
	)
	if err := scanner.Scan(
		&group.ID,
		&group.TgGroupID,
		&username,
		&link,
		&group.Name,
		&group.CreatedAt,
		&updatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan group: %w", err)
	}

	if username.Valid {
		group.Username = &username.String
	}
	if link.Valid {
		group.Link = &link.String
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		group.UpdatedAt = &t
	}
	return &group, nil
}
