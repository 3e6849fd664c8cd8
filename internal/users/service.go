package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/routeguard/routeguard/internal/auth"
	"github.com/routeguard/routeguard/internal/guard"
	"github.com/routeguard/routeguard/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service manages user accounts and answers role lookups for the guard
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates a new users service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("service", "users").Logger(),
	}
}

// CreateParams holds the fields for a new local account
type CreateParams struct {
	Email    string
	Name     string
	Password string
	Role     guard.Role
}

// ExternalUser is a user record pushed by the identity provider
type ExternalUser struct {
	ExternalID string
	Email      string
	Name       string
	Role       guard.Role
}

// GetUserRole returns the stored role of a user. Every failure, including a
// missing record, is returned so the caller can fail closed.
func (s *Service) GetUserRole(ctx context.Context, userID string) (guard.Role, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "role").Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return "", fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	return guard.Role(user.Role), nil
}

// Create registers a local account with a password
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.User, error) {
	email := normalizeEmail(params.Email)

	taken, err := s.emailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	passwordHash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         params.Name,
		Role:         string(params.Role),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Str("role", user.Role).Msg("User created")

	return user, nil
}

// Authenticate checks an email and password pair
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// FindByID returns a user by ID
func (s *Service) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := models.FindByID(s.db.WithContext(ctx), id, &user); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindByEmail returns a user by email address
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// List returns all users, newest first
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SetRole changes the role of the user with the given email
func (s *Service) SetRole(ctx context.Context, email string, role guard.Role) (*models.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("role", string(role)).Error; err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	user.Role = string(role)

	s.logger.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("User role updated")

	return user, nil
}

// Upsert creates or updates a user provisioned by the identity provider.
// Records are matched by external ID first, then by email so an existing
// local account gets linked instead of duplicated.
func (s *Service) Upsert(ctx context.Context, ext ExternalUser) (*models.User, bool, error) {
	email := normalizeEmail(ext.Email)

	var user models.User
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("external_id = ?", ext.ExternalID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = tx.Where("email = ?", email).First(&user).Error
		}

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			externalID := ext.ExternalID
			user = models.User{
				ExternalID: &externalID,
				Email:      email,
				Name:       ext.Name,
				Role:       string(ext.Role),
			}
			created = true
			return tx.Create(&user).Error
		case err != nil:
			return err
		}

		externalID := ext.ExternalID
		user.ExternalID = &externalID
		user.Email = email
		user.Name = ext.Name
		user.Role = string(ext.Role)
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert user %s: %w", ext.ExternalID, err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("external_id", ext.ExternalID).
		Bool("created", created).
		Msg("User synced from identity provider")

	return &user, created, nil
}

// DeleteByExternalID removes the user provisioned under the provider's id.
// It reports false when no such user exists.
func (s *Service) DeleteByExternalID(ctx context.Context, externalID string) (bool, error) {
	result := s.db.WithContext(ctx).Where("external_id = ?", externalID).Delete(&models.User{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete user %s: %w", externalID, result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.Info().Str("external_id", externalID).Msg("User deleted by identity provider")
	}

	return result.RowsAffected > 0, nil
}

func (s *Service) emailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	return count > 0, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
