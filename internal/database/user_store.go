package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// UserStore persists accounts and their reset-token state.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a user. A unique violation surfaces as gorm.ErrDuplicatedKey.
func (s *UserStore) Create(ctx context.Context, user *User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

// FindByUsernameOrEmail returns every user colliding with either value.
func (s *UserStore) FindByUsernameOrEmail(ctx context.Context, username, email string) ([]User, error) {
	var users []User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", username, email).
		Find(&users).Error
	return users, err
}

// FindByIdentifier matches a username or an email address. When one user's
// username equals another user's email the username match wins.
func (s *UserStore) FindByIdentifier(ctx context.Context, identifier string) (*User, error) {
	var users []User
	if err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		Order("id").
		Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	for i := range users {
		if users[i].Username == identifier {
			return &users[i], nil
		}
	}
	return &users[0], nil
}

func (s *UserStore) FindByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetResetToken stores a token digest together with its expiry.
func (s *UserStore) SetResetToken(ctx context.Context, userID uint, digest string, expiresAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"reset_token":         digest,
			"reset_token_expires": expiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByResetToken returns the user holding digest if it has not expired at now.
func (s *UserStore) FindByResetToken(ctx context.Context, digest string, now time.Time) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).
		Where("reset_token = ? AND reset_token_expires > ?", digest, now).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ClearExpiredResetToken drops digest from whichever account holds it once it
// has lapsed at now. An unknown or still valid digest is left alone.
func (s *UserStore) ClearExpiredResetToken(ctx context.Context, digest string, now time.Time) error {
	return s.db.WithContext(ctx).Model(&User{}).
		Where("reset_token = ? AND reset_token_expires <= ?", digest, now).
		Updates(map[string]any{
			"reset_token":         nil,
			"reset_token_expires": nil,
		}).Error
}

// ConsumeResetToken swaps the password hash and clears the token in one
// conditional UPDATE. It reports false when the token was already used or
// expired in the meantime.
func (s *UserStore) ConsumeResetToken(ctx context.Context, userID uint, digest string, now time.Time, passwordHash string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND reset_token = ? AND reset_token_expires > ?", userID, digest, now).
		Updates(map[string]any{
			"password_hash":       passwordHash,
			"reset_token":         nil,
			"reset_token_expires": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IsDuplicate reports a unique-constraint violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
