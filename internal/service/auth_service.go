package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sparked/internal/auth"
	apperrors "sparked/internal/errors"
	"sparked/internal/model"
	"sparked/internal/repository"
	"sparked/internal/session"
	"sparked/internal/turnstile"
)

// AuthService handles login, session gating and logout.
type AuthService interface {
	Login(ctx context.Context, sess *session.Session, email, password, botToken, remoteIP string) (*model.User, error)
	RequireSession(ctx context.Context, sess *session.Session) (*model.User, error)
	Logout(sess *session.Session)
}

type authService struct {
	repo      repository.UserRepository
	hasher    auth.PasswordHasher
	verifier  turnstile.Verifier
	log       *zap.Logger
	now       func() time.Time
	dummyHash string
}

// NewAuthService creates a new authentication service.
func NewAuthService(repo repository.UserRepository, hasher auth.PasswordHasher, verifier turnstile.Verifier, log *zap.Logger) AuthService {
	// compared against for unknown emails so both branches cost one hash
	dummy, err := hasher.Hash("sparked-unknown-user")
	if err != nil {
		log.Warn("failed to prepare dummy hash", zap.Error(err))
	}
	return &authService{
		repo:      repo,
		hasher:    hasher,
		verifier:  verifier,
		log:       log,
		now:       time.Now,
		dummyHash: dummy,
	}
}

// Login authenticates email and password. On success the session id is
// rotated and user_email is set. A correct password on an unverified account
// sets the pending email and returns ErrEmailNotVerified.
func (s *authService) Login(ctx context.Context, sess *session.Session, email, password, botToken, remoteIP string) (*model.User, error) {
	if err := checkBot(ctx, s.verifier, botToken, remoteIP, s.log); err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.ErrMissingCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.hasher.Verify(s.dummyHash, password)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, storeError("find user", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		if err := s.repo.IncrementFailedLogins(ctx, user.ID); err != nil {
			s.log.Warn("failed to record failed login", zap.Uint("user_id", user.ID), zap.Error(err))
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, apperrors.ErrAccountInactive
	}

	if !user.EmailVerified {
		sess.Set(session.KeyPendingEmail, user.Email)
		return nil, apperrors.ErrEmailNotVerified
	}

	at := s.now().UTC()
	if err := s.repo.RecordLogin(ctx, user.ID, at); err != nil {
		s.log.Warn("failed to record login", zap.Uint("user_id", user.ID), zap.Error(err))
	} else {
		user.FailedLogins = 0
		user.LastLoginAt = &at
	}

	sess.Renew()
	sess.Delete(session.KeyPendingEmail)
	sess.Set(session.KeyUserEmail, user.Email)

	s.log.Info("user logged in", zap.Uint("user_id", user.ID))
	return user, nil
}

// RequireSession resolves the logged-in user. A session naming a user that
// no longer exists, or is no longer eligible, is dropped.
func (s *authService) RequireSession(ctx context.Context, sess *session.Session) (*model.User, error) {
	email, ok := sess.Get(session.KeyUserEmail)
	if !ok || email == "" {
		return nil, apperrors.ErrSessionRequired
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sess.Delete(session.KeyUserEmail)
			return nil, apperrors.ErrSessionRequired
		}
		return nil, storeError("find user", err)
	}
	if !user.EmailVerified || !user.IsActive {
		sess.Delete(session.KeyUserEmail)
		return nil, apperrors.ErrSessionRequired
	}
	return user, nil
}

// Logout clears the whole session.
func (s *authService) Logout(sess *session.Session) {
	sess.Clear()
}
