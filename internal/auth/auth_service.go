package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"trackApply/internal/errcode"
)

// AuthService 负责签发与校验会话令牌。
type AuthService struct {
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// TokenClaims 表示 JWT 中的业务字段，便于中间件读取用户信息。
type TokenClaims struct {
	UserID   uint   `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// NewAuthService builds an HS256 signer. The secret is read-only afterwards.
func NewAuthService(secret []byte, tokenTTL time.Duration) (*AuthService, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if tokenTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &AuthService{
		secret:   append([]byte(nil), secret...),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}, nil
}

// IssueToken signs a session token for the user.
func (s *AuthService) IssueToken(userID uint, username string) (string, error) {
	now := s.now()
	claims := TokenClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a session JWT. An empty token is
// Unauthorized; anything that fails signature, algorithm or expiry checks is
// Forbidden.
func (s *AuthService) ValidateToken(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, errcode.New(errcode.Unauthorized, "authentication required")
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errcode.Wrap(errcode.Forbidden, "invalid or expired token", err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errcode.New(errcode.Forbidden, "invalid or expired token")
	}
	return claims, nil
}

// TokenTTL 暴露会话令牌有效期。
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
