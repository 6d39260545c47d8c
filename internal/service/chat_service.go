package service

import (
	"context"
	"strconv"
	"time"

	"greentea/internal/domain"
	"greentea/internal/repository"
)

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 300
)

// hiddenGroupID never matches a stored tg_group_id; hidden groups resolve to it.
const hiddenGroupID int64 = -1

// ChatService serves read access to the archive.
type ChatService interface {
	ListGroups(ctx context.Context, limit, offset int) ([]domain.Group, error)
	ListMessages(ctx context.Context, groupID string, limit, offset int) ([]domain.ChatMessage, error)
	CountMessagesToday(ctx context.Context) ([]domain.GroupMessageCount, error)
}

type chatService struct {
	groups   repository.GroupRepository
	messages repository.MessageRepository
	hidden   map[int64]struct{}
	now      func() time.Time
}

func NewChatService(groups repository.GroupRepository, messages repository.MessageRepository, hiddenGroups []int64) ChatService {
	hidden := make(map[int64]struct{}, len(hiddenGroups))
	for _, id := range hiddenGroups {
		hidden[id] = struct{}{}
	}
	return &chatService{
		groups:   groups,
		messages: messages,
		hidden:   hidden,
		now:      time.Now,
	}
}

func (s *chatService) ListGroups(ctx context.Context, limit, offset int) ([]domain.Group, error) {
	if err := CheckPage(limit, offset); err != nil {
		return nil, err
	}
	groups, err := s.groups.List(ctx, limit, offset)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorKindInternal, err, "failed to list groups")
	}
	return groups, nil
}

func (s *chatService) ListMessages(ctx context.Context, groupID string, limit, offset int) ([]domain.ChatMessage, error) {
	if err := CheckPage(limit, offset); err != nil {
		return nil, err
	}

	id, err := strconv.ParseInt(groupID, 10, 64)
	if err != nil {
		// no group can have a non numeric id
		return []domain.ChatMessage{}, nil
	}
	if _, ok := s.hidden[id]; ok {
		id = hiddenGroupID
	}

	messages, err := s.messages.ListByGroup(ctx, id, limit, offset)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorKindInternal, err, "failed to list chat messages")
	}
	return messages, nil
}

// CountMessagesToday counts messages per group for the current UTC day.
func (s *chatService) CountMessagesToday(ctx context.Context) ([]domain.GroupMessageCount, error) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	counts, err := s.groups.CountMessagesBetween(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, domain.WrapError(domain.ErrorKindInternal, err, "failed to count messages")
	}
	return counts, nil
}

// CheckPage validates pagination bounds.
func CheckPage(limit, offset int) error {
	if limit < 0 {
		return domain.NewError(domain.ErrorKindInvalidRange, "limit cannot be negative (given limit %d)", limit)
	}
	if limit > MaxPageLimit {
		return domain.NewError(domain.ErrorKindInvalidRange, "limit cannot be greater than %d (given limit %d)", MaxPageLimit, limit)
	}
	if offset < 0 {
		return domain.NewError(domain.ErrorKindInvalidRange, "offset cannot be negative (given offset %d)", offset)
	}
	return nil
}
