package usecase

import (
	"context"
	"testing"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/logger"
	"github.com/fixora/tasktrail/internal/requestctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthUseCase(users *mockUserRepository, limiter *countingLimiter, rec *mockRecorder) *AuthUseCase {
	return NewAuthUseCase(users, fakeHasher{}, fakeTokens{}, limiter, rec, logger.Nop())
}

func TestAuthUseCase_Register(t *testing.T) {
	users := seedUsers()
	uc := newAuthUseCase(users, newCountingLimiter(5), &mockRecorder{})

	ctx := requestctx.BeginScope(context.Background())
	user, err := uc.Register(ctx, RegisterRequest{Name: "Nina", Email: "Nina@Example.com", Password: "secret9"})
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "nina@example.com", user.Email)
	assert.Equal(t, domain.RoleMember, user.Role)
	assert.Equal(t, "hashed:secret9", user.PasswordHash)

	actor, ok := requestctx.Actor(ctx)
	require.True(t, ok)
	assert.Equal(t, user.ID, actor)
}

func TestAuthUseCase_RegisterErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"weak password", RegisterRequest{Name: "A", Email: "a@example.com", Password: "123"}, domain.ErrWeakPassword},
		{"bad email", RegisterRequest{Name: "A", Email: "not-an-email", Password: "secret9"}, domain.ErrInvalidEmail},
		{"taken email", RegisterRequest{Name: "A", Email: "MIKA@example.com", Password: "secret9"}, domain.ErrEmailTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newAuthUseCase(seedUsers(), newCountingLimiter(5), &mockRecorder{})
			_, err := uc.Register(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAuthUseCase_LoginRecordsAction(t *testing.T) {
	rec := &mockRecorder{}
	uc := newAuthUseCase(seedUsers(), newCountingLimiter(5), rec)

	ctx := requestctx.BeginScope(context.Background())
	resp, err := uc.Login(ctx, LoginRequest{Email: "mika@example.com", Password: "secret2", ClientIP: "10.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "token-for-miembro", resp.AccessToken)
	assert.Equal(t, int64(2), resp.User.ID)

	actor, ok := requestctx.Actor(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(2), actor)

	require.Len(t, rec.actions, 1)
	assert.Equal(t, recordedAction{
		EntityType: domain.EntityUser,
		EntityID:   2,
		Action:     domain.AuditActionLogin,
		Details:    map[string]interface{}{"ip": "10.0.0.1"},
	}, rec.actions[0])
}

func TestAuthUseCase_LoginInvalidCredentials(t *testing.T) {
	rec := &mockRecorder{}
	limiter := newCountingLimiter(5)
	uc := newAuthUseCase(seedUsers(), limiter, rec)

	_, err := uc.Login(context.Background(), LoginRequest{Email: "mika@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = uc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	assert.Empty(t, rec.actions)
	assert.Equal(t, 1, limiter.failures["email:mika@example.com"])
}

func TestAuthUseCase_LoginRateLimited(t *testing.T) {
	limiter := newCountingLimiter(3)
	uc := newAuthUseCase(seedUsers(), limiter, &mockRecorder{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := uc.Login(ctx, LoginRequest{Email: "mika@example.com", Password: "wrong", ClientIP: "10.0.0.9"})
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	// Correct password is still refused while blocked
	_, err := uc.Login(ctx, LoginRequest{Email: "mika@example.com", Password: "secret2", ClientIP: "10.0.0.9"})
	assert.ErrorIs(t, err, domain.ErrTooManyAttempts)

	require.NoError(t, limiter.Reset(ctx, "email:mika@example.com"))
	require.NoError(t, limiter.Reset(ctx, "ip:10.0.0.9"))
	_, err = uc.Login(ctx, LoginRequest{Email: "mika@example.com", Password: "secret2", ClientIP: "10.0.0.9"})
	assert.NoError(t, err)
}

func TestAuthUseCase_LogoutAndMe(t *testing.T) {
	rec := &mockRecorder{}
	uc := newAuthUseCase(seedUsers(), newCountingLimiter(5), rec)

	require.NoError(t, uc.Logout(context.Background(), memberCaller))
	require.Len(t, rec.actions, 1)
	assert.Equal(t, domain.AuditActionLogout, rec.actions[0].Action)
	assert.Equal(t, memberCaller.UserID, rec.actions[0].EntityID)

	me, err := uc.Me(context.Background(), memberCaller)
	require.NoError(t, err)
	assert.Equal(t, "Mika", me.Name)
}
