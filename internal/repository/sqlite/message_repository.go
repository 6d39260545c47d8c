package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"greentea/internal/domain"
	"greentea/internal/repository"
)

const createMessageTables = `
CREATE TABLE IF NOT EXISTS gt_senders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS gt_sender_user (
	user_id INTEGER NOT NULL REFERENCES gt_users(id),
	sender_id INTEGER NOT NULL REFERENCES gt_senders(id),
	PRIMARY KEY (user_id, sender_id)
);
CREATE TABLE IF NOT EXISTS gt_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id INTEGER NOT NULL REFERENCES gt_chats(id),
	sender_id INTEGER NOT NULL REFERENCES gt_senders(id),
	tg_msg_id INTEGER NOT NULL,
	reply_to_tg_msg_id INTEGER NULL,
	msg_type TEXT NOT NULL DEFAULT 'text',
	has_edited_msg INTEGER NOT NULL DEFAULT 0,
	is_forwarded_msg INTEGER NOT NULL DEFAULT 0,
	is_deleted INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NULL
);
CREATE TABLE IF NOT EXISTS gt_message_content (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL REFERENCES gt_messages(id),
	text TEXT NULL,
	text_entities TEXT NULL,
	is_edited_msg INTEGER NOT NULL DEFAULT 0,
	tg_date DATETIME NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gt_message_content_tg_date ON gt_message_content (tg_date);
`

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) repository.MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createMessageTables); err != nil {
		return fmt.Errorf("create message tables: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListByGroup(ctx context.Context, tgGroupID int64, limit, offset int) ([]domain.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT
	gt_messages.id,
	gt_users.tg_user_id,
	gt_users.first_name,
	gt_users.last_name,
	gt_users.username,
	gt_messages.tg_msg_id,
	gt_messages.reply_to_tg_msg_id,
	gt_message_content.text,
	gt_messages.msg_type,
	gt_messages.has_edited_msg,
	gt_messages.is_forwarded_msg,
	gt_messages.is_deleted,
	gt_message_content.tg_date
FROM gt_messages
INNER JOIN gt_message_content ON gt_messages.id = gt_message_content.message_id
INNER JOIN gt_senders ON gt_senders.id = gt_messages.sender_id
INNER JOIN gt_sender_user ON gt_senders.id = gt_sender_user.sender_id
INNER JOIN gt_users ON gt_users.id = gt_sender_user.user_id
WHERE gt_messages.chat_id = (
	SELECT gt_chat_group.chat_id FROM gt_chat_group
	INNER JOIN gt_groups ON gt_groups.id = gt_chat_group.group_id
	WHERE gt_groups.tg_group_id = ? LIMIT 1
)
ORDER BY gt_message_content.tg_date DESC, gt_messages.id DESC
LIMIT ? OFFSET ?`,
		tgGroupID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}

	// newest page first from the query, oldest first for the reader
	slices.Reverse(messages)
	return messages, nil
}

func scanMessage(scanner rowScanner) (*domain.ChatMessage, error) {
	var (
		msg      domain.ChatMessage
		lastName sql.NullString
		username sql.NullString
		replyTo  sql.NullInt64
		text     sql.NullString
	)
	if err := scanner.Scan(
		&msg.ID,
		&msg.TgUserID,
		&msg.FirstName,
		&lastName,
		&username,
		&msg.TgMsgID,
		&replyTo,
		&text,
		&msg.MsgType,
		&msg.HasEditedMsg,
		&msg.IsForwardedMsg,
		&msg.IsDeleted,
		&msg.TgDate,
	); err != nil {
		return nil, fmt.Errorf("scan chat message: %w", err)
	}

	if lastName.Valid {
		msg.LastName = &lastName.String
	}
	if username.Valid {
		msg.Username = &username.String
	}
	if replyTo.Valid {
		v := replyTo.Int64
		msg.ReplyToTgMsgID = &v
	}
	if text.Valid {
		msg.Text = &text.String
	}
	return &msg, nil
}
