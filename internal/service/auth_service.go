package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"greentea/internal/domain"
	"greentea/internal/repository"
)

const (
	tokenIssuer       = "greentea"
	DefaultSessionTTL = 48 * time.Hour

	loginFailed    = "Login failed!"
	invalidSession = "invalid session"
)

// SessionCache keeps verified sessions close to the API. Get returns nil
// without an error on a miss.
type SessionCache interface {
	Get(ctx context.Context, token string) (*domain.Session, error)
	Set(ctx context.Context, session *domain.Session) error
}

// LoginResult carries the bearer token handed to the dashboard.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *domain.Account
}

// AuthService authenticates dashboard accounts and verifies their sessions.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Session(ctx context.Context, token string) (*domain.Account, error)
}

// AuthConfig tunes session issuance.
type AuthConfig struct {
	Secret     string
	SessionTTL time.Duration
	Cache      SessionCache
	Logger     *logrus.Logger
	Clock      func() time.Time
}

type authService struct {
	accounts repository.AccountRepository
	sessions repository.SessionRepository
	secret   []byte
	ttl      time.Duration
	cache    SessionCache
	logger   *logrus.Logger
	now      func() time.Time
}

func NewAuthService(accounts repository.AccountRepository, sessions repository.SessionRepository, cfg AuthConfig) (AuthService, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth secret is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &authService{
		accounts: accounts,
		sessions: sessions,
		secret:   []byte(cfg.Secret),
		ttl:      cfg.SessionTTL,
		cache:    cfg.Cache,
		logger:   cfg.Logger,
		now:      cfg.Clock,
	}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.ErrorKindInvalidCredentials, loginFailed)
		}
		return nil, domain.WrapError(domain.ErrorKindInternal, err, "failed to look up account")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), bcryptInput(password)); err != nil {
		return nil, domain.NewError(domain.ErrorKindInvalidCredentials, loginFailed)
	}

	now := s.now().UTC()
	session := &domain.Session{
		AccountID: account.ID,
		Token:     uuid.NewString(),
		CreatedAt: now,
		ExpiredAt: now.Add(s.ttl),
	}
	if _, err := s.sessions.Create(ctx, session); err != nil {
		return nil, domain.WrapError(domain.ErrorKindPersistenceFailure, err, "failed to create session")
	}

	claims := jwt.RegisteredClaims{
		ID:        session.Token,
		Subject:   strconv.FormatInt(account.ID, 10),
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiredAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorKindInternal, fmt.Errorf("sign token: %w", err), "failed to create session")
	}

	s.logger.WithField("account_id", account.ID).Info("account logged in")
	return &LoginResult{
		Token:     signed,
		ExpiresAt: session.ExpiredAt,
		Account:   sanitizeAccount(account),
	}, nil
}

func (s *authService) Session(ctx context.Context, token string) (*domain.Account, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorKindUnauthorized, err, invalidSession)
	}

	session, err := s.lookupSession(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) || strconv.FormatInt(session.AccountID, 10) != claims.Subject {
		return nil, domain.NewError(domain.ErrorKindUnauthorized, invalidSession)
	}

	account, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.ErrorKindUnauthorized, invalidSession)
		}
		return nil, domain.WrapError(domain.ErrorKindInternal, err, "failed to load account")
	}
	return sanitizeAccount(account), nil
}

func (s *authService) lookupSession(ctx context.Context, token string) (*domain.Session, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, token)
		if err != nil {
			s.logger.Warnf("session cache get: %v", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.ErrorKindUnauthorized, invalidSession)
		}
		return nil, domain.WrapError(domain.ErrorKindInternal, err, "failed to load session")
	}

	if s.cache != nil && !session.Expired(s.now()) {
		if err := s.cache.Set(ctx, session); err != nil {
			s.logger.Warnf("session cache set: %v", err)
		}
	}
	return session, nil
}

func sanitizeAccount(account *domain.Account) *domain.Account {
	if account == nil {
		return nil
	}
	return &domain.Account{
		ID:         account.ID,
		IdentityID: account.IdentityID,
		Username:   account.Username,
		Email:      account.Email,
		CreatedAt:  account.CreatedAt,
	}
}
