// Package account owns user identity: registration, sign-in, session
// verification and the password-reset token lifecycle.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"trackApply/internal/auth"
	"trackApply/internal/database"
	"trackApply/internal/errcode"
	"trackApply/internal/validation"
)

// ResetAcknowledgement is returned for every forgot-password request.
const ResetAcknowledgement = "If an account with that email exists, a reset link has been sent."

var (
	errInvalidOrExpired = errcode.New(errcode.InvalidOrExpired, "Invalid or expired password reset token.")
	errNoSigner         = errors.New("account service has no session signer")
)

// Users is the persistence the service needs.
type Users interface {
	Create(ctx context.Context, user *database.User) error
	FindByUsernameOrEmail(ctx context.Context, username, email string) ([]database.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*database.User, error)
	FindByID(ctx context.Context, id uint) (*database.User, error)
	FindByEmail(ctx context.Context, email string) (*database.User, error)
	SetResetToken(ctx context.Context, userID uint, digest string, expiresAt time.Time) error
	FindByResetToken(ctx context.Context, digest string, now time.Time) (*database.User, error)
	ClearExpiredResetToken(ctx context.Context, digest string, now time.Time) error
	ConsumeResetToken(ctx context.Context, userID uint, digest string, now time.Time, passwordHash string) (bool, error)
}

// ResetNotifier delivers a reset link to the account's email address.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, email, link string, expiresAt time.Time) error
}

type Options struct {
	// ClientURL is the front-end base the reset link points at.
	ClientURL     string
	ResetTokenTTL time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

type Service struct {
	users     Users
	auth      *auth.AuthService
	notifier  ResetNotifier
	clientURL string
	resetTTL  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the account operations. authService signs and verifies
// sessions; tools that only issue reset links may pass nil, in which case
// Register, SignIn and VerifyToken fail.
func NewService(users Users, authService *auth.AuthService, notifier ResetNotifier, opts Options) *Service {
	ttl := opts.ResetTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:     users,
		auth:      authService,
		notifier:  notifier,
		clientURL: strings.TrimRight(opts.ClientURL, "/"),
		resetTTL:  ttl,
		logger:    logger.With(slog.String("component", "account")),
		now:       time.Now,
	}
}

// Session is what a successful sign-up or sign-in hands back.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   uint   `json:"-"`
}

type Profile struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,password"`
}

type resetInput struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,password"`
}

type SignInInput struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// Register creates the account and signs the caller in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check existing users: %w", err)
	}
	for _, u := range existing {
		if u.Username == in.Username {
			return nil, conflict("username")
		}
	}
	if len(existing) > 0 {
		return nil, conflict("email")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &database.User{Username: in.Username, Email: in.Email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if database.IsDuplicate(err) {
			// Lost a race with a concurrent sign-up for the same name or email.
			return nil, errcode.Wrap(errcode.Conflict, "Username or email already exists.", err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

// SignIn authenticates by username or email. Both unknown identifiers and
// wrong passwords produce the same InvalidCredentials error.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (*Session, error) {
	in.Identifier = strings.TrimSpace(in.Identifier)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.FindByIdentifier(ctx, in.Identifier)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		auth.BurnPasswordCheck(in.Password)
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !auth.CheckPasswordHash(in.Password, user.PasswordHash) {
		return nil, invalidCredentials()
	}

	return s.issue(user)
}

// VerifyToken checks signature and expiry without touching the store.
func (s *Service) VerifyToken(token string) (*auth.TokenClaims, error) {
	if s.auth == nil {
		return nil, errNoSigner
	}
	return s.auth.ValidateToken(token)
}

func (s *Service) Profile(ctx context.Context, userID uint) (*Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errcode.New(errcode.NotFound, "User not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &Profile{UserID: user.ID, Username: user.Username, Email: user.Email}, nil
}

// RequestPasswordReset issues a reset token when the email belongs to an
// account. The caller always answers with ResetAcknowledgement, so a failed
// dispatch is logged rather than returned.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errcode.ValidationFailed(map[string]string{"email": "is required"})
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user by email: %w", err)
	}

	raw, digest, err := auth.NewResetToken()
	if err != nil {
		return err
	}
	expiresAt := s.now().UTC().Add(s.resetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, digest, expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.notifier.NotifyPasswordReset(ctx, user.Email, s.ResetLink(raw), expiresAt); err != nil {
		s.logger.ErrorContext(ctx, "dispatch password reset email failed",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.Any("error", err),
		)
	}
	return nil
}

// ResetLink builds the front-end URL that carries token.
func (s *Service) ResetLink(token string) string {
	return s.clientURL + "/reset-password?token=" + url.QueryEscape(token)
}

// ValidateResetToken succeeds only for an unexpired, unconsumed token.
func (s *Service) ValidateResetToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return errcode.ValidationFailed(map[string]string{"token": "is required"})
	}
	digest := auth.DigestResetToken(token)
	now := s.now().UTC()
	_, err := s.users.FindByResetToken(ctx, digest, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.clearExpired(ctx, digest, now)
		return errInvalidOrExpired
	}
	if err != nil {
		return fmt.Errorf("find reset token: %w", err)
	}
	return nil
}

// ResetPassword swaps the password and clears the token in one update.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	in := resetInput{Token: strings.TrimSpace(token), NewPassword: newPassword}
	if err := validation.Struct(in); err != nil {
		return err
	}
	token = in.Token

	now := s.now().UTC()
	digest := auth.DigestResetToken(token)
	user, err := s.users.FindByResetToken(ctx, digest, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.clearExpired(ctx, digest, now)
		return errInvalidOrExpired
	}
	if err != nil {
		return fmt.Errorf("find reset token: %w", err)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	ok, err := s.users.ConsumeResetToken(ctx, user.ID, digest, now, hash)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if !ok {
		return errInvalidOrExpired
	}
	return nil
}

// clearExpired drops a lapsed token so it does not linger on the account.
func (s *Service) clearExpired(ctx context.Context, digest string, now time.Time) {
	if err := s.users.ClearExpiredResetToken(ctx, digest, now); err != nil {
		s.logger.WarnContext(ctx, "clear expired reset token failed", slog.Any("error", err))
	}
}

func (s *Service) issue(user *database.User) (*Session, error) {
	if s.auth == nil {
		return nil, errNoSigner
	}
	token, err := s.auth.IssueToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Username: user.Username, UserID: user.ID}, nil
}

func conflict(field string) *errcode.Error {
	e := errcode.New(errcode.Conflict, capitalize(field)+" already exists.")
	e.Fields = map[string]string{field: "already exists"}
	return e
}

func invalidCredentials() *errcode.Error {
	return errcode.New(errcode.InvalidCredentials, "Invalid credentials.")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
