package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"greentea/internal/domain"
)

type RegistrarSuite struct {
	suite.Suite
	accounts   *memoryAccounts
	identities *memoryIdentities
	registrar  AccountRegistrar
	now        time.Time
}

func TestRegistrarSuite(t *testing.T) {
	suite.Run(t, new(RegistrarSuite))
}

func (s *RegistrarSuite) SetupTest() {
	s.accounts = &memoryAccounts{}
	s.identities = newMemoryIdentities("555", "777")
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	logger, _ := test.NewNullLogger()
	s.registrar = NewAccountRegistrar(s.accounts, s.identities, RegistrarConfig{
		BcryptCost: bcrypt.MinCost,
		Logger:     logger,
		Clock:      func() time.Time { return s.now },
	})
}

func validRequest() domain.RegistrationRequest {
	return domain.RegistrationRequest{
		Username:             ptr("alice"),
		TgUserID:             ptr("555"),
		Email:                ptr("a@b.com"),
		Password:             ptr("Abc123"),
		PasswordConfirmation: ptr("Abc123"),
	}
}

func (s *RegistrarSuite) register(req domain.RegistrationRequest) (domain.RegistrationResult, error) {
	return s.registrar.Register(context.Background(), req)
}

func (s *RegistrarSuite) requireFailure(req domain.RegistrationRequest, kind domain.ErrorKind, message string) {
	s.T().Helper()
	res, err := s.register(req)
	s.Require().Error(err)
	s.False(res.Success)
	s.Equal(message, res.Message)
	s.Equal(kind, domain.KindOf(err))
}

func (s *RegistrarSuite) TestRegistersLinkedAccount() {
	res, err := s.register(validRequest())
	s.Require().NoError(err)
	s.Equal(domain.RegistrationResult{Success: true, Message: "success!"}, res)

	s.Require().Len(s.accounts.accounts, 1)
	account := s.accounts.accounts[0]
	s.Equal("alice", account.Username)
	s.Equal("a@b.com", account.Email)
	s.Equal(int64(100), account.IdentityID)
	s.Equal(s.now, account.CreatedAt)
	s.NotEqual("Abc123", account.PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("Abc123")))
}

func (s *RegistrarSuite) TestHashesFirst72BytesOfLongPassword() {
	password := "Abc123" + strings.Repeat("x", 70)
	req := validRequest()
	req.Password = ptr(password)
	req.PasswordConfirmation = ptr(password)

	res, err := s.register(req)
	s.Require().NoError(err)
	s.True(res.Success)

	s.Require().Len(s.accounts.accounts, 1)
	hash := []byte(s.accounts.accounts[0].PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword(hash, []byte(password[:72])))
}

func (s *RegistrarSuite) TestMissingFields() {
	cases := []struct {
		field string
		clear func(*domain.RegistrationRequest)
	}{
		{"username", func(r *domain.RegistrationRequest) { r.Username = nil }},
		{"tg_user_id", func(r *domain.RegistrationRequest) { r.TgUserID = nil }},
		{"email", func(r *domain.RegistrationRequest) { r.Email = nil }},
		{"password", func(r *domain.RegistrationRequest) { r.Password = nil }},
		{"cpassword", func(r *domain.RegistrationRequest) { r.PasswordConfirmation = nil }},
	}
	for _, tc := range cases {
		s.Run(tc.field, func() {
			req := validRequest()
			tc.clear(&req)
			s.requireFailure(req, domain.ErrorKindMissingField, fmt.Sprintf("Missing %s string", tc.field))
		})
	}

	s.Run("reports the first missing field", func() {
		req := validRequest()
		req.Email = nil
		req.PasswordConfirmation = nil
		s.requireFailure(req, domain.ErrorKindMissingField, "Missing email string")
	})

	s.Run("empty value counts as present", func() {
		req := validRequest()
		req.Username = ptr("")
		res, err := s.register(req)
		s.Require().NoError(err)
		s.True(res.Success)
	})
}

func (s *RegistrarSuite) TestInvalidEmail() {
	for _, email := range []string{"", "not-an-email", "a@", "@b.com", "a b@c.com"} {
		s.Run(email, func() {
			req := validRequest()
			req.Email = ptr(email)
			s.requireFailure(req, domain.ErrorKindInvalidFormat, email+" is not a valid email")
		})
	}
}

func (s *RegistrarSuite) TestWeakPasswords() {
	s.Run("too short", func() {
		for _, pw := range []string{"", "A1b", "Ab1cd"} {
			req := validRequest()
			req.Password, req.PasswordConfirmation = ptr(pw), ptr(pw)
			s.requireFailure(req, domain.ErrorKindWeakPassword, "password must be at least 6 characters")
		}
	})

	s.Run("missing character class", func() {
		for _, pw := range []string{"abcdef1", "ABCDEF1", "Abcdefg", "123456", "ÄÖÜäöü1"} {
			req := validRequest()
			req.Password, req.PasswordConfirmation = ptr(pw), ptr(pw)
			s.requireFailure(req, domain.ErrorKindWeakPassword,
				"password must consist of numeric char, upper case letter and lower case letter")
		}
	})

	s.Run("length is checked before composition", func() {
		req := validRequest()
		req.Password, req.PasswordConfirmation = ptr("abc"), ptr("abc")
		s.requireFailure(req, domain.ErrorKindWeakPassword, "password must be at least 6 characters")
	})
}

func (s *RegistrarSuite) TestPasswordMismatch() {
	for _, confirmation := range []string{"abc123", "Abc1234", "Abc123 ", ""} {
		req := validRequest()
		req.PasswordConfirmation = ptr(confirmation)
		s.requireFailure(req, domain.ErrorKindPasswordMismatch, "password must be the same with cpassword")
	}
}

func (s *RegistrarSuite) TestDuplicates() {
	_, err := s.register(validRequest())
	s.Require().NoError(err)

	s.Run("email", func() {
		req := validRequest()
		req.Username = ptr("bob")
		req.TgUserID = ptr("does-not-matter")
		s.requireFailure(req, domain.ErrorKindDuplicateEmail,
			"Email a@b.com has been registered, please use another email")
	})

	s.Run("username", func() {
		req := validRequest()
		req.Email = ptr("other@b.com")
		s.requireFailure(req, domain.ErrorKindDuplicateUsername,
			"Username alice has been registered, please use another username")
	})

	s.Run("resubmission never succeeds twice", func() {
		res, err := s.register(validRequest())
		s.Require().Error(err)
		s.False(res.Success)
		s.Contains([]domain.ErrorKind{domain.ErrorKindDuplicateEmail, domain.ErrorKindDuplicateUsername}, domain.KindOf(err))
	})

	s.Len(s.accounts.accounts, 1)
}

func (s *RegistrarSuite) TestUnknownIdentity() {
	req := validRequest()
	req.TgUserID = ptr("999")
	s.requireFailure(req, domain.ErrorKindUnknownExternalIdentity, "tg_user_id 999 does not exist")
	s.Empty(s.accounts.accounts)
}

func (s *RegistrarSuite) TestStoreFailures() {
	s.Run("lookup failure is internal", func() {
		s.accounts.lookupErr = errStoreDown
		defer func() { s.accounts.lookupErr = nil }()

		res, err := s.register(validRequest())
		s.Require().Error(err)
		s.False(res.Success)
		s.Equal(domain.ErrorKindInternal, domain.KindOf(err))
		s.True(errors.Is(err, errStoreDown))
	})

	s.Run("identity failure is internal", func() {
		s.identities.err = errStoreDown
		defer func() { s.identities.err = nil }()

		_, err := s.register(validRequest())
		s.Equal(domain.ErrorKindInternal, domain.KindOf(err))
	})

	s.Run("insert failure is a persistence failure", func() {
		s.accounts.createErr = errStoreDown
		defer func() { s.accounts.createErr = nil }()

		s.requireFailure(validRequest(), domain.ErrorKindPersistenceFailure, "failed to create account")
	})
}

func (s *RegistrarSuite) TestConcurrentDuplicateLosesWithPersistenceFailure() {
	// both requests pass the existence checks before either inserts
	gate := &gatedAccounts{memoryAccounts: s.accounts, ready: make(chan struct{}), waiting: 2}
	logger, _ := test.NewNullLogger()
	registrar := NewAccountRegistrar(gate, s.identities, RegistrarConfig{BcryptCost: bcrypt.MinCost, Logger: logger})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = registrar.Register(context.Background(), validRequest())
		}(i)
	}
	wg.Wait()

	var succeeded, persistence int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case domain.KindOf(err) == domain.ErrorKindPersistenceFailure:
			persistence++
		}
	}
	s.Equal(1, succeeded)
	s.Equal(1, persistence)
	s.Len(s.accounts.accounts, 1)
}

// gatedAccounts holds every caller in UsernameExists until all have arrived.
type gatedAccounts struct {
	*memoryAccounts
	mu      sync.Mutex
	waiting int
	ready   chan struct{}
}

func (g *gatedAccounts) UsernameExists(ctx context.Context, username string) (bool, error) {
	exists, err := g.memoryAccounts.UsernameExists(ctx, username)
	g.mu.Lock()
	g.waiting--
	if g.waiting == 0 {
		close(g.ready)
	}
	g.mu.Unlock()
	<-g.ready
	return exists, err
}

func TestRegistrarDefaults(t *testing.T) {
	r := NewAccountRegistrar(&memoryAccounts{}, newMemoryIdentities(), RegistrarConfig{}).(*accountRegistrar)
	if r.cost != bcrypt.DefaultCost {
		t.Fatalf("got cost %d, want %d", r.cost, bcrypt.DefaultCost)
	}
	if r.logger == nil || r.now == nil {
		t.Fatal("expected logger and clock defaults")
	}
}
