package domain

import "time"

// Group is an archived Telegram group.
type Group struct {
	ID        int64
	TgGroupID int64
	Username  *string
	Link      *string
	Name      string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// ChatMessage is a single archived message joined with its sender and content.
type ChatMessage struct {
	ID             int64
	TgUserID       int64
	FirstName      string
	LastName       *string
	Username       *string
	TgMsgID        int64
	ReplyToTgMsgID *int64
	Text           *string
	MsgType        string
	HasEditedMsg   bool
	IsForwardedMsg bool
	IsDeleted      bool
	TgDate         time.Time
}

// GroupMessageCount is the number of messages a group received in a period.
type GroupMessageCount struct {
	Name     string
	MsgCount int64
}
