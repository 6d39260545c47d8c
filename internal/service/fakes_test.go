package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"greentea/internal/domain"
	"greentea/internal/repository"
)

type memoryAccounts struct {
	mu        sync.Mutex
	accounts  []domain.Account
	createErr error
	lookupErr error
}

func (m *memoryAccounts) Init(context.Context) error { return nil }

func (m *memoryAccounts) Create(_ context.Context, account *domain.Account) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return 0, m.createErr
	}
	for _, a := range m.accounts {
		if a.Email == account.Email || a.Username == account.Username {
			return 0, fmt.Errorf("insert account: %w", repository.ErrConflict)
		}
	}
	account.ID = int64(len(m.accounts) + 1)
	m.accounts = append(m.accounts, *account)
	return account.ID, nil
}

func (m *memoryAccounts) EmailExists(_ context.Context, email string) (bool, error) {
	return m.exists(func(a domain.Account) bool { return a.Email == email })
}

func (m *memoryAccounts) UsernameExists(_ context.Context, username string) (bool, error) {
	return m.exists(func(a domain.Account) bool { return a.Username == username })
}

func (m *memoryAccounts) exists(match func(domain.Account) bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return false, m.lookupErr
	}
	for _, a := range m.accounts {
		if match(a) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	return m.find(func(a domain.Account) bool { return a.Email == email })
}

func (m *memoryAccounts) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	return m.find(func(a domain.Account) bool { return a.ID == id })
}

func (m *memoryAccounts) find(match func(domain.Account) bool) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, a := range m.accounts {
		if match(a) {
			found := a
			return &found, nil
		}
	}
	return nil, fmt.Errorf("account: %w", repository.ErrNotFound)
}

type memoryIdentities struct {
	byTgID map[string]domain.Identity
	err    error
}

func newMemoryIdentities(tgUserIDs ...string) *memoryIdentities {
	m := &memoryIdentities{byTgID: map[string]domain.Identity{}}
	for i, id := range tgUserIDs {
		m.byTgID[id] = domain.Identity{ID: int64(100 + i), TgUserID: id}
	}
	return m
}

func (m *memoryIdentities) Init(context.Context) error { return nil }

func (m *memoryIdentities) GetByTgUserID(_ context.Context, tgUserID string) (*domain.Identity, error) {
	if m.err != nil {
		return nil, m.err
	}
	identity, ok := m.byTgID[tgUserID]
	if !ok {
		return nil, fmt.Errorf("identity %s: %w", tgUserID, repository.ErrNotFound)
	}
	return &identity, nil
}

func (m *memoryIdentities) Upsert(_ context.Context, identity *domain.Identity) (int64, error) {
	identity.ID = int64(100 + len(m.byTgID))
	m.byTgID[identity.TgUserID] = *identity
	return identity.ID, nil
}

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	lookups  int
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[string]domain.Session{}}
}

func (m *memorySessions) Init(context.Context) error { return nil }

func (m *memorySessions) Create(_ context.Context, session *domain.Session) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.ID = int64(len(m.sessions) + 1)
	m.sessions[session.Token] = *session
	return session.ID, nil
}

func (m *memorySessions) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	session, ok := m.sessions[token]
	if !ok {
		return nil, fmt.Errorf("session: %w", repository.ErrNotFound)
	}
	return &session, nil
}

type memoryCache struct {
	sessions map[string]domain.Session
	getErr   error
}

func (m *memoryCache) Get(_ context.Context, token string) (*domain.Session, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	session, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (m *memoryCache) Set(_ context.Context, session *domain.Session) error {
	m.sessions[session.Token] = *session
	return nil
}

type memoryGroups struct {
	groups    []domain.Group
	counts    []domain.GroupMessageCount
	from, to  time.Time
	listCalls int
}

func (m *memoryGroups) Init(context.Context) error { return nil }

func (m *memoryGroups) List(_ context.Context, limit, offset int) ([]domain.Group, error) {
	m.listCalls++
	if offset >= len(m.groups) {
		return []domain.Group{}, nil
	}
	end := min(offset+limit, len(m.groups))
	return m.groups[offset:end], nil
}

func (m *memoryGroups) CountMessagesBetween(_ context.Context, from, to time.Time) ([]domain.GroupMessageCount, error) {
	m.from, m.to = from, to
	return m.counts, nil
}

type memoryMessages struct {
	byGroup map[int64][]domain.ChatMessage
	asked   []int64
	err     error
}

func (m *memoryMessages) Init(context.Context) error { return nil }

func (m *memoryMessages) ListByGroup(_ context.Context, tgGroupID int64, limit, offset int) ([]domain.ChatMessage, error) {
	m.asked = append(m.asked, tgGroupID)
	if m.err != nil {
		return nil, m.err
	}
	msgs := m.byGroup[tgGroupID]
	if offset >= len(msgs) {
		return []domain.ChatMessage{}, nil
	}
	end := min(offset+limit, len(msgs))
	return msgs[offset:end], nil
}

var errStoreDown = errors.New("store unavailable")

func ptr(s string) *string {
	return &s
}
