package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkarpov/taskboard/internal/auth/storage"
	"github.com/dkarpov/taskboard/internal/token"
)

type memUsers struct {
	nextID int64
	byMail map[string]*storage.User
}

func newMemUsers() *memUsers {
	return &memUsers{nextID: 1, byMail: make(map[string]*storage.User)}
}

func (s *memUsers) CreateUser(ctx context.Context, email, passwordHash string) (int64, error) {
	if _, ok := s.byMail[email]; ok {
		return 0, storage.ErrUserAlreadyExists
	}
	user := &storage.User{ID: s.nextID, Email: email, PasswordHash: passwordHash}
	s.byMail[email] = user
	s.nextID++
	return user.ID, nil
}

func (s *memUsers) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	user, ok := s.byMail[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func newTestAuth() (*AuthService, *token.Codec) {
	codec := token.NewCodec("test-secret", time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(log, newMemUsers(), codec), codec
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, _ := newTestAuth()

	id, err := svc.Register(context.Background(), "u1@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.NotZero(t, id)

	user, err := svc.db.GetUserByEmail(context.Background(), "u1@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash)
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newTestAuth()

	_, err := svc.Register(context.Background(), "u1@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "u1@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, storage.ErrUserAlreadyExists)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc, codec := newTestAuth()

	id, err := svc.Register(context.Background(), "u1@example.com", "hunter2hunter2")
	require.NoError(t, err)

	accessToken, err := svc.Login(context.Background(), "u1@example.com", "hunter2hunter2")
	require.NoError(t, err)

	claims, err := token.NewVerifier(codec).Verify(accessToken)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "u1@example.com", claims.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestAuth()

	_, err := svc.Register(context.Background(), "u1@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "u1@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newTestAuth()

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
