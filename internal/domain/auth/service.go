package auth

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"odysseum/internal/pkg/jwt"
)

type Service struct {
	users  *UserRepository
	tokens *jwt.Service
	log    logrus.FieldLogger
}

func NewService(users *UserRepository, tokens *jwt.Service, log logrus.FieldLogger) *Service {
	return &Service{users: users, tokens: tokens, log: log}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	role := UserRole(req.Role)
	if role == "" {
		role = RoleUser
	}
	if role == RoleAdmin || !role.Valid() {
		return nil, ErrInvalidRole
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &User{Email: req.Email, PasswordHash: hash, Name: req.Name, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user registered")

	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := CheckPassword(req.Password, u.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) issue(u *User) (*AuthResponse, error) {
	token, err := s.tokens.GenerateToken(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: u}, nil
}
