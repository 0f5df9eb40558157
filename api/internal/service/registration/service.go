package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/signupform/signup/api/internal/domain"
	"github.com/signupform/signup/api/internal/repository"
	"github.com/signupform/signup/pkg/crypto"
	"github.com/signupform/signup/pkg/validation"
)

// Service validates signups and persists accepted ones.
type Service struct {
	users    repository.UserRepository
	rules    validation.Rules
	logger   *slog.Logger
	hashCost int
	now      func() time.Time
}

// New constructs a Service enforcing validation.RegistrationRules.
func New(users repository.UserRepository, logger *slog.Logger, hashCost int) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{
		users:    users,
		rules:    validation.RegistrationRules(),
		logger:   logger,
		hashCost: hashCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register runs req through the registration rules and stores the user.
//
// A rule violation is returned as *validation.Failure, a taken email as
// repository.ErrDuplicateEmail. Any other error means nothing was stored
// because of a hashing or storage fault.
func (s Service) Register(ctx context.Context, req domain.RegistrationRequest) (*domain.User, error) {
	fields := validation.Fields{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Confirm:  req.ConfirmPassword,
	}
	if err := s.rules.Validate(fields); err != nil {
		var failure *validation.Failure
		if errors.As(err, &failure) {
			s.logger.Debug("registration rejected", "rule", failure.Rule.Name)
		}
		return nil, err
	}

	fullName := strings.TrimSpace(req.FullName)
	email := strings.TrimSpace(req.Email)
	password := strings.TrimSpace(req.Password)

	hash, err := crypto.HashPasswordCost(password, s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.logger.Info("registration rejected", "rule", "email-unique")
			return nil, repository.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("store user: %w", err)
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Health reports whether the backing store is reachable.
func (s Service) Health(ctx context.Context) error {
	return s.users.Ping(ctx)
}
