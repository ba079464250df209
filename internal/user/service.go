package user

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"sitterswap/internal/database"
	"sitterswap/pkg/token"
)

// Common errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyInUse  = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingFields      = errors.New("name, email and password are required")
)

// Service handles user business logic
type Service struct {
	repo   *Repository
	tokens *token.Manager
}

// NewService creates a new user service
func NewService(repo *Repository, tokens *token.Manager) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Register creates a new account and returns the user with a signed token
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, string, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" || req.Password == "" {
		return nil, "", ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user, err := s.repo.Create(ctx, name, email, string(hash))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, "", ErrEmailAlreadyInUse
		}
		return nil, "", err
	}

	signed, err := s.tokens.Mint(user.ID, 0)
	if err != nil {
		return nil, "", err
	}

	return user, signed, nil
}

// Login verifies credentials and returns the user with a signed token
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	var familyID int64
	if user.FamilyID != nil {
		familyID = *user.FamilyID
	}

	signed, err := s.tokens.Mint(user.ID, familyID)
	if err != nil {
		return nil, "", err
	}

	return user, signed, nil
}

// GetByID retrieves a user by their ID
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
