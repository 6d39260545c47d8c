package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"greentea/internal/domain"
	"greentea/internal/repository"
)

const (
	minPasswordLength = 6
	registerSuccess   = "success!"
)

// bcrypt only reads this many bytes of a password.
const maxBcryptPasswordLength = 72

// AccountRegistrar creates dashboard accounts for Telegram users already in the archive.
type AccountRegistrar interface {
	Register(ctx context.Context, req domain.RegistrationRequest) (domain.RegistrationResult, error)
}

// RegistrarConfig tunes the registrar.
type RegistrarConfig struct {
	BcryptCost int
	Logger     *logrus.Logger
	Clock      func() time.Time
}

type accountRegistrar struct {
	accounts   repository.AccountRepository
	identities repository.IdentityRepository
	validate   *validator.Validate
	cost       int
	logger     *logrus.Logger
	now        func() time.Time
}

func NewAccountRegistrar(accounts repository.AccountRepository, identities repository.IdentityRepository, cfg RegistrarConfig) AccountRegistrar {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &accountRegistrar{
		accounts:   accounts,
		identities: identities,
		validate:   validator.New(),
		cost:       cfg.BcryptCost,
		logger:     cfg.Logger,
		now:        cfg.Clock,
	}
}

// Register runs the registration checks in order and stops at the first
// failure. A failed registration yields a non-successful result together
// with a *domain.Error describing it.
func (r *accountRegistrar) Register(ctx context.Context, req domain.RegistrationRequest) (domain.RegistrationResult, error) {
	if err := r.register(ctx, req); err != nil {
		return failure(err), err
	}
	return domain.RegistrationResult{Success: true, Message: registerSuccess}, nil
}

func (r *accountRegistrar) register(ctx context.Context, req domain.RegistrationRequest) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"username", req.Username},
		{"tg_user_id", req.TgUserID},
		{"email", req.Email},
		{"password", req.Password},
		{"cpassword", req.PasswordConfirmation},
	}
	for _, f := range fields {
		if f.value == nil {
			return domain.NewError(domain.ErrorKindMissingField, "Missing %s string", f.name)
		}
	}

	username, tgUserID, email := *req.Username, *req.TgUserID, *req.Email
	password, confirmation := *req.Password, *req.PasswordConfirmation

	if err := r.validate.Var(email, "required,email"); err != nil {
		return domain.NewError(domain.ErrorKindInvalidFormat, "%s is not a valid email", email)
	}
	if err := checkPasswordStrength(password); err != nil {
		return err
	}
	if password != confirmation {
		return domain.NewError(domain.ErrorKindPasswordMismatch, "password must be the same with cpassword")
	}

	exists, err := r.accounts.EmailExists(ctx, email)
	if err != nil {
		return domain.WrapError(domain.ErrorKindInternal, err, "failed to check email")
	}
	if exists {
		return domain.NewError(domain.ErrorKindDuplicateEmail, "Email %s has been registered, please use another email", email)
	}

	exists, err = r.accounts.UsernameExists(ctx, username)
	if err != nil {
		return domain.WrapError(domain.ErrorKindInternal, err, "failed to check username")
	}
	if exists {
		return domain.NewError(domain.ErrorKindDuplicateUsername, "Username %s has been registered, please use another username", username)
	}

	identity, err := r.identities.GetByTgUserID(ctx, tgUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewError(domain.ErrorKindUnknownExternalIdentity, "tg_user_id %s does not exist", tgUserID)
		}
		return domain.WrapError(domain.ErrorKindInternal, err, "failed to look up tg_user_id")
	}

	hash, err := bcrypt.GenerateFromPassword(bcryptInput(password), r.cost)
	if err != nil {
		return domain.WrapError(domain.ErrorKindInternal, fmt.Errorf("hash password: %w", err), "failed to create account")
	}

	account := &domain.Account{
		IdentityID:   identity.ID,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    r.now().UTC(),
	}
	if _, err := r.accounts.Create(ctx, account); err != nil {
		// a concurrent registration may win the unique constraint after our checks passed
		return domain.WrapError(domain.ErrorKindPersistenceFailure, err, "failed to create account")
	}

	r.logger.WithFields(logrus.Fields{
		"account_id": account.ID,
		"tg_user_id": tgUserID,
	}).Info("account registered")
	return nil
}

// bcryptInput trims password to the prefix bcrypt hashes. x/crypto rejects
// longer input instead of ignoring the tail.
func bcryptInput(password string) []byte {
	b := []byte(password)
	return b[:min(len(b), maxBcryptPasswordLength)]
}

func checkPasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return domain.NewError(domain.ErrorKindWeakPassword, "password must be at least %d characters", minPasswordLength)
	}

	var digit, lower, upper bool
	for _, c := range password {
		switch {
		case c >= '0' && c <= '9':
			digit = true
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		}
	}
	if !digit || !lower || !upper {
		return domain.NewError(domain.ErrorKindWeakPassword, "password must consist of numeric char, upper case letter and lower case letter")
	}
	return nil
}

func failure(err error) domain.RegistrationResult {
	var de *domain.Error
	if errors.As(err, &de) {
		return domain.RegistrationResult{Message: de.Message}
	}
	return domain.RegistrationResult{Message: "internal server error"}
}
