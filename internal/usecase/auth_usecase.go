package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/logger"
	"github.com/fixora/tasktrail/internal/ports"
	"github.com/fixora/tasktrail/internal/requestctx"
)

// RegisterRequest represents the request to create an account
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	ClientIP string `json:"-"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	User        *domain.User `json:"user"`
}

// AuthUseCase handles registration and sessions
type AuthUseCase struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenService
	limiter  ports.LoginLimiter
	recorder ports.AuditRecorder
	log      logger.Logger
}

// NewAuthUseCase creates a new auth use case
func NewAuthUseCase(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenService,
	limiter ports.LoginLimiter,
	recorder ports.AuditRecorder,
	log logger.Logger,
) *AuthUseCase {
	return &AuthUseCase{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		limiter:  limiter,
		recorder: recorder,
		log:      log,
	}
}

// Register creates a member account. Self-registration has no
// authenticated caller, so the insert is attributed to the unknown actor
// explicitly and the scope switches to the new user afterwards.
func (uc *AuthUseCase) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if err := domain.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	user, err := domain.NewUser(req.Name, req.Email, "")
	if err != nil {
		return nil, err
	}

	if _, err := uc.users.FindByEmail(ctx, user.Email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	user.PasswordHash, err = uc.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	requestctx.SetActor(ctx, domain.UnknownActor)
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}
	requestctx.SetActor(ctx, user.ID)

	uc.log.Info(ctx, "User registered", map[string]interface{}{
		"user_id": user.ID,
	})

	return user, nil
}

// Login verifies credentials, records a LOGIN entry and issues a token
func (uc *AuthUseCase) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	keys := uc.limiterKeys(req)
	for _, key := range keys {
		allowed, err := uc.limiter.Allow(ctx, key)
		if err != nil {
			// Limiter errors fail open
			uc.log.Error(ctx, "Failed to check login rate limit", err, map[string]interface{}{"key": key})
			continue
		}
		if !allowed {
			logger.LogSecurityEvent(ctx, uc.log, "login_rate_limited", "MEDIUM", map[string]interface{}{
				"key": key,
			})
			return nil, domain.ErrTooManyAttempts
		}
	}

	start := time.Now()
	user, err := uc.authenticate(ctx, req)
	logger.LogPerformance(ctx, uc.log, "login_authenticate", time.Since(start), nil)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			uc.recordFailure(ctx, keys)
			logger.LogSecurityEvent(ctx, uc.log, "login_failed", "LOW", map[string]interface{}{
				"email": req.Email,
				"ip":    req.ClientIP,
			})
		}
		return nil, err
	}

	for _, key := range keys {
		if err := uc.limiter.Reset(ctx, key); err != nil {
			uc.log.Error(ctx, "Failed to reset login attempts", err, map[string]interface{}{"key": key})
		}
	}

	token, err := uc.tokens.GenerateAccessToken(ports.TokenClaims{UserID: user.ID, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	requestctx.SetActor(ctx, user.ID)
	uc.recorder.Record(ctx, domain.EntityUser, user.ID, domain.AuditActionLogin, map[string]interface{}{
		"ip": req.ClientIP,
	})

	return &LoginResponse{AccessToken: token, TokenType: "Bearer", User: user}, nil
}

// Logout records a LOGOUT entry. Tokens are stateless and simply expire.
func (uc *AuthUseCase) Logout(ctx context.Context, caller ports.TokenClaims) error {
	uc.recorder.Record(ctx, domain.EntityUser, caller.UserID, domain.AuditActionLogout, nil)
	return nil
}

// Me returns the account of the caller
func (uc *AuthUseCase) Me(ctx context.Context, caller ports.TokenClaims) (*domain.User, error) {
	return uc.users.FindByID(ctx, caller.UserID)
}

func (uc *AuthUseCase) authenticate(ctx context.Context, req LoginRequest) (*domain.User, error) {
	if req.Email == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := uc.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	ok, err := uc.hasher.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}

func (uc *AuthUseCase) limiterKeys(req LoginRequest) []string {
	keys := []string{"email:" + strings.ToLower(strings.TrimSpace(req.Email))}
	if req.ClientIP != "" {
		keys = append(keys, "ip:"+req.ClientIP)
	}
	return keys
}

func (uc *AuthUseCase) recordFailure(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := uc.limiter.RecordFailure(ctx, key); err != nil {
			uc.log.Error(ctx, "Failed to record login failure", err, map[string]interface{}{"key": key})
		}
	}
}
