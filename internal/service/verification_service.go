package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"sparked/internal/auth"
	apperrors "sparked/internal/errors"
	"sparked/internal/mail"
	"sparked/internal/model"
	"sparked/internal/repository"
	"sparked/internal/session"
	"sparked/internal/turnstile"
)

// RegisterInput is the registration form after binding.
type RegisterInput struct {
	FullName        string `form:"full_name" json:"full_name" validate:"required,max=150"`
	Email           string `form:"email" json:"email" validate:"required,email,max=255"`
	Phone           string `form:"phone" json:"phone" validate:"required,phone"`
	Password        string `form:"password" json:"password" validate:"required,password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password" validate:"required,eqfield=Password"`
}

func (in *RegisterInput) normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
}

// ConfirmOutcome says what a confirmation request resolved to.
type ConfirmOutcome int

const (
	// ConfirmNoContext means there was neither a token nor a pending email.
	ConfirmNoContext ConfirmOutcome = iota
	// ConfirmPending means no token was given but the session holds a pending email.
	ConfirmPending
	// ConfirmVerified means the token was redeemed and the user is verified.
	ConfirmVerified
)

// ConfirmResult carries the outcome and the email it applies to.
type ConfirmResult struct {
	Outcome ConfirmOutcome
	Email   string
}

// VerificationService drives registration and email confirmation.
type VerificationService interface {
	Register(ctx context.Context, sess *session.Session, in RegisterInput, botToken, remoteIP string) (*model.User, error)
	Confirm(ctx context.Context, sess *session.Session, token string) (ConfirmResult, error)
	CheckEmail(ctx context.Context, email string) (bool, error)
	Resend(ctx context.Context, sess *session.Session, email string) error
}

// VerificationOptions holds the non-collaborator settings of the flow.
type VerificationOptions struct {
	BaseURL string
	MaxAge  time.Duration
}

type verificationService struct {
	repo       repository.UserRepository
	codec      auth.TokenCodec
	hasher     auth.PasswordHasher
	verifier   turnstile.Verifier
	dispatcher mail.Dispatcher
	validate   *validator.Validate
	opts       VerificationOptions
	log        *zap.Logger
}

// NewVerificationService wires the registration flow.
func NewVerificationService(
	repo repository.UserRepository,
	codec auth.TokenCodec,
	hasher auth.PasswordHasher,
	verifier turnstile.Verifier,
	dispatcher mail.Dispatcher,
	validate *validator.Validate,
	opts VerificationOptions,
	log *zap.Logger,
) VerificationService {
	if opts.MaxAge <= 0 {
		opts.MaxAge = auth.DefaultMaxAge
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &verificationService{
		repo:       repo,
		codec:      codec,
		hasher:     hasher,
		verifier:   verifier,
		dispatcher: dispatcher,
		validate:   validate,
		opts:       opts,
		log:        log,
	}
}

// Register checks the bot token, validates the form, creates an unverified
// user and queues the verification email.
func (s *verificationService) Register(ctx context.Context, sess *session.Session, in RegisterInput, botToken, remoteIP string) (*model.User, error) {
	if err := checkBot(ctx, s.verifier, botToken, remoteIP, s.log); err != nil {
		return nil, err
	}

	in.normalize()
	if err := s.validate.Struct(&in); err != nil {
		return nil, toValidationError(err)
	}

	// Fast path only; the unique constraints decide on insert.
	if err := s.checkDuplicates(ctx, in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		FullName:      in.FullName,
		Email:         in.Email,
		Phone:         in.Phone,
		PasswordHash:  hash,
		IsAdmin:       false,
		IsActive:      true,
		EmailVerified: false,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.duplicateCause(ctx, in)
		}
		return nil, storeError("create user", err)
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("email", user.Email))

	if err := s.sendVerification(user.Email); err != nil {
		s.log.Error("verification email not queued",
			zap.String("email", user.Email), zap.Error(err))
	}
	sess.Set(session.KeyPendingEmail, user.Email)
	return user, nil
}

func (s *verificationService) checkDuplicates(ctx context.Context, in RegisterInput) error {
	checks := []struct {
		exists func(context.Context, string) (bool, error)
		value  string
		err    error
	}{
		{s.repo.ExistsByEmail, in.Email, apperrors.ErrDuplicateEmail},
		{s.repo.ExistsByPhone, in.Phone, apperrors.ErrDuplicatePhone},
		{s.repo.ExistsByFullName, in.FullName, apperrors.ErrDuplicateName},
	}
	for _, c := range checks {
		found, err := c.exists(ctx, c.value)
		if err != nil {
			return storeError("check duplicates", err)
		}
		if found {
			return c.err
		}
	}
	return nil
}

// duplicateCause works out which unique column a losing insert collided on.
func (s *verificationService) duplicateCause(ctx context.Context, in RegisterInput) error {
	if err := s.checkDuplicates(ctx, in); err != nil && !errors.Is(err, apperrors.ErrStoreUnavailable) {
		return err
	}
	return apperrors.ErrDuplicateEmail
}

func (s *verificationService) sendVerification(email string) error {
	token, err := s.codec.Issue(email)
	if err != nil {
		return fmt.Errorf("%w: issue token: %v", apperrors.ErrNotificationFailure, err)
	}
	link := s.opts.BaseURL + "/confirm?token=" + url.QueryEscape(token)
	msg, err := mail.NewVerificationMessage(email, link, s.opts.MaxAge)
	if err != nil {
		return fmt.Errorf("%w: render message: %v", apperrors.ErrNotificationFailure, err)
	}
	s.dispatcher.Dispatch(msg)
	return nil
}

// Confirm redeems token when given, otherwise reports the pending email held
// in the session. Activation is idempotent.
func (s *verificationService) Confirm(ctx context.Context, sess *session.Session, token string) (ConfirmResult, error) {
	if token == "" {
		if email, ok := sess.Get(session.KeyPendingEmail); ok && email != "" {
			return ConfirmResult{Outcome: ConfirmPending, Email: email}, nil
		}
		return ConfirmResult{Outcome: ConfirmNoContext}, nil
	}

	email, err := s.codec.Redeem(token, s.opts.MaxAge)
	if err != nil {
		return ConfirmResult{}, err
	}

	user, err := s.repo.MarkEmailVerified(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("verification token for unknown user", zap.String("email", email))
			return ConfirmResult{}, apperrors.ErrTokenInvalid
		}
		return ConfirmResult{}, storeError("mark email verified", err)
	}

	sess.Delete(session.KeyPendingEmail)
	s.log.Info("email verified", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	return ConfirmResult{Outcome: ConfirmVerified, Email: user.Email}, nil
}

// CheckEmail reports only whether the address is registered.
func (s *verificationService) CheckEmail(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return false, storeError("check email", err)
	}
	return exists, nil
}

// Resend issues a fresh link for an unverified user. The address falls back
// to the session's pending email. Unknown or already verified addresses are
// accepted silently.
func (s *verificationService) Resend(ctx context.Context, sess *session.Session, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email, _ = sess.Get(session.KeyPendingEmail)
	}
	if email == "" {
		return apperrors.NewValidationError(map[string]string{"email": "this field is required"})
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return storeError("find user", err)
	}
	if user.EmailVerified {
		return nil
	}

	if err := s.sendVerification(user.Email); err != nil {
		s.log.Error("verification email not queued",
			zap.String("email", user.Email), zap.Error(err))
	}
	sess.Set(session.KeyPendingEmail, user.Email)
	return nil
}

// checkBot fails closed: an unreachable verifier counts as a failed check.
func checkBot(ctx context.Context, v turnstile.Verifier, token, remoteIP string, log *zap.Logger) error {
	ok, err := v.Verify(ctx, token, remoteIP)
	if err != nil {
		log.Warn("bot check unavailable", zap.Error(err))
		return apperrors.ErrBotCheckFailed
	}
	if !ok {
		return apperrors.ErrBotCheckFailed
	}
	return nil
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperrors.ErrStoreUnavailable, op, err)
}
