package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/dkarpov/taskboard/internal/auth/storage"
	"github.com/dkarpov/taskboard/internal/token"
	"github.com/dkarpov/taskboard/pkg/logging"
)

// ErrInvalidCredentials covers both unknown email and wrong password,
// so login responses never reveal which one it was.
var ErrInvalidCredentials = errors.New("invalid email or password")

const bcryptCost = 8

type UserStorage interface {
	CreateUser(ctx context.Context, email, passwordHash string) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
}

type AuthService struct {
	log   *slog.Logger
	db    UserStorage
	codec *token.Codec
}

func NewAuthService(log *slog.Logger, db UserStorage, codec *token.Codec) *AuthService {
	return &AuthService{log: log, db: db, codec: codec}
}

func (s *AuthService) Register(ctx context.Context, email, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return 0, err
	}

	id, err := s.db.CreateUser(ctx, email, string(hash))
	if err != nil {
		if !errors.Is(err, storage.ErrUserAlreadyExists) {
			s.log.Error("db error", logging.DbErr("CreateUser", err))
		}
		return 0, err
	}

	s.log.Info("user registered", slog.Int64("user_id", id))
	return id, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		s.log.Error("db error", logging.DbErr("GetUserByEmail", err))
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	accessToken, err := s.codec.Issue(user.ID, user.Email)
	if err != nil {
		s.log.Error("token issue error", logging.Err(err))
		return "", err
	}

	s.log.Info("user logged in", slog.Int64("user_id", user.ID))
	return accessToken, nil
}
