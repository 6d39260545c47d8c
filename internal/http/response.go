package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"greentea/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

type envelope struct {
	Code int `json:"code"`
	Msg  any `json:"msg"`
}

// Result is the payload carried in the envelope's msg field.
type Result struct {
	IsOK  bool   `json:"is_ok"`
	Msg   any    `json:"msg"`
	Data  any    `json:"data"`
	Token string `json:"token,omitempty"`
}

func okResult(data any) Result {
	return Result{IsOK: true, Data: data}
}

func writeMessage(c *gin.Context, code int, msg string) {
	c.JSON(code, envelope{Code: code, Msg: msg})
}

type GroupResponse struct {
	ID        int64   `json:"id"`
	TgGroupID int64   `json:"tg_group_id"`
	Username  *string `json:"username"`
	Link      *string `json:"link"`
	Name      string  `json:"name"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

type ChatMessageResponse struct {
	ID             int64   `json:"id"`
	TgUserID       int64   `json:"tg_user_id"`
	FirstName      string  `json:"first_name"`
	LastName       *string `json:"last_name"`
	Username       *string `json:"username"`
	TgMsgID        int64   `json:"tg_msg_id"`
	ReplyToTgMsgID *int64  `json:"reply_to_tg_msg_id"`
	Text           *string `json:"text"`
	MsgType        string  `json:"msg_type"`
	HasEditedMsg   bool    `json:"has_edited_msg"`
	IsForwardedMsg bool    `json:"is_forwarded_msg"`
	IsDeleted      bool    `json:"is_deleted"`
	TgDate         string  `json:"tg_date"`
}

type MessageCountResponse struct {
	Name     string `json:"name"`
	MsgCount int64  `json:"msg_count"`
}

type AccountResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func groupToResponse(group domain.Group) GroupResponse {
	resp := GroupResponse{
		ID:        group.ID,
		TgGroupID: group.TgGroupID,
		Username:  group.Username,
		Link:      group.Link,
		Name:      group.Name,
		CreatedAt: formatTime(group.CreatedAt),
	}
	if group.UpdatedAt != nil {
		v := formatTime(*group.UpdatedAt)
		resp.UpdatedAt = &v
	}
	return resp
}

func messageToResponse(msg domain.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:             msg.ID,
		TgUserID:       msg.TgUserID,
		FirstName:      msg.FirstName,
		LastName:       msg.LastName,
		Username:       msg.Username,
		TgMsgID:        msg.TgMsgID,
		ReplyToTgMsgID: msg.ReplyToTgMsgID,
		Text:           msg.Text,
		MsgType:        msg.MsgType,
		HasEditedMsg:   msg.HasEditedMsg,
		IsForwardedMsg: msg.IsForwardedMsg,
		IsDeleted:      msg.IsDeleted,
		TgDate:         formatTime(msg.TgDate),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
