package user

import (
	"context"
	"errors"
	"strings"

	"essenza-be/internal/logger"

	"go.uber.org/zap"
)

const minPasswordLength = 8

type Service interface {
	Register(ctx context.Context, email, password string) (string, *User, error)
	Login(ctx context.Context, email, password string) (string, *User, error)
}

type service struct {
	repo   Repository
	tokens *Tokens
}

func NewService(repo Repository, tokens *Tokens) Service {
	return &service{repo: repo, tokens: tokens}
}

func (s *service) Register(ctx context.Context, email, password string) (string, *User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Register"),
	)

	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") || len(password) < minPasswordLength {
		return "", nil, ErrInvalidInput
	}

	hashed, err := HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return "", nil, err
	}

	u, err := s.repo.Create(ctx, email, hashed, RoleCustomer)
	if err != nil {
		if !errors.Is(err, ErrEmailExists) {
			log.Error("failed to create user", zap.String("email", email), zap.Error(err))
		}
		return "", nil, err
	}

	token, err := s.tokens.Generate(u)
	if err != nil {
		log.Error("failed to generate jwt", zap.Uint("user_id", u.ID), zap.Error(err))
		return "", nil, err
	}

	log.Info("register service completed",
		zap.Uint("user_id", u.ID),
		zap.String("email", email),
	)

	return token, u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, *User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Login"),
	)

	u, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Info("email not found")
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !CheckPasswordHash(password, u.Password) {
		log.Info("password not match", zap.Uint("user_id", u.ID))
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}
