package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trackApply/internal/account"
	"trackApply/internal/api/middleware"
	"trackApply/internal/errcode"
	"trackApply/internal/metrics"
)

// AuthHandler 处理注册、登录、当前用户与密码重置。
type AuthHandler struct {
	accounts *account.Service
	limiter  LoginLimiter
}

// NewAuthHandler builds the handler. limiter may be nil to disable throttling.
func NewAuthHandler(accounts *account.Service, limiter LoginLimiter) *AuthHandler {
	return &AuthHandler{accounts: accounts, limiter: limiter}
}

// Signup 创建新用户账号并直接登录。
func (h *AuthHandler) Signup(c *gin.Context) {
	var req account.RegisterInput
	if !decodeBody(c, &req) {
		return
	}

	session, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	metrics.RecordAuthEvent(metrics.AuthSignUp)
	middleware.LoggerFromContext(c).Info("user registered", slog.Uint64("user_id", uint64(session.UserID)))
	c.JSON(http.StatusCreated, session)
}

// signinRequest accepts the identifier under its own key or as username/email.
type signinRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (r signinRequest) identifier() string {
	for _, v := range []string{r.Identifier, r.Username, r.Email} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Signin 校验口令并返回 Token。
func (h *AuthHandler) Signin(c *gin.Context) {
	var req signinRequest
	if !decodeBody(c, &req) {
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)
	identifier := req.identifier()

	if h.limiter != nil && identifier != "" {
		allowed, err := h.limiter.Allow(ctx, c.ClientIP(), identifier)
		if err != nil {
			logger.Warn("login limiter unavailable", slog.Any("error", err))
		}
		if !allowed {
			metrics.RecordAuthEvent(metrics.AuthSignInThrottled)
			respondError(c, errcode.New(errcode.RateLimited, "Too many sign-in attempts. Try again later."))
			return
		}
	}

	session, err := h.accounts.SignIn(ctx, account.SignInInput{Identifier: identifier, Password: req.Password})
	if err != nil {
		if errcode.Is(err, errcode.InvalidCredentials) {
			metrics.RecordAuthEvent(metrics.AuthSignInFailed)
			logger.Info("login failed")
			if h.limiter != nil {
				if err := h.limiter.RecordFailure(ctx, identifier); err != nil {
					logger.Warn("record login failure", slog.Any("error", err))
				}
			}
		}
		respondError(c, err)
		return
	}

	if h.limiter != nil {
		if err := h.limiter.Reset(ctx, identifier); err != nil {
			logger.Warn("reset login failures", slog.Any("error", err))
		}
	}
	metrics.RecordAuthEvent(metrics.AuthSignIn)
	c.JSON(http.StatusOK, session)
}

// Me 返回当前登录用户的资料。
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		respondError(c, errcode.New(errcode.Unauthorized, "Authentication required."))
		return
	}

	profile, err := h.accounts.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword answers identically whether or not the email is registered.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !decodeBody(c, &req) {
		return
	}

	if err := h.accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	metrics.RecordAuthEvent(metrics.AuthResetRequested)
	c.JSON(http.StatusOK, messageResponse{Message: account.ResetAcknowledgement})
}

// ValidateResetToken 校验重置令牌是否仍然有效。
func (h *AuthHandler) ValidateResetToken(c *gin.Context) {
	if err := h.accounts.ValidateResetToken(c.Request.Context(), c.Query("token")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Token is valid."})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword 使用重置令牌设置新密码。
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !decodeBody(c, &req) {
		return
	}

	if err := h.accounts.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	metrics.RecordAuthEvent(metrics.AuthResetCompleted)
	c.JSON(http.StatusOK, messageResponse{Message: "Password has been reset successfully."})
}
