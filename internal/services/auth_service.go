package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/yukikurage/tenant-task-api/internal/auth"
	"github.com/yukikurage/tenant-task-api/internal/constants"
	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/repository"
	"github.com/yukikurage/tenant-task-api/internal/tenant"
	"github.com/yukikurage/tenant-task-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrNameRequired             = newError(ErrValidation, "name is required")
	ErrInvalidEmail             = newError(ErrValidation, "a valid email is required")
	ErrPasswordTooShort         = newError(ErrValidation, fmt.Sprintf("password must be at least %d characters", constants.MinPasswordLength))
	ErrOrganizationNameRequired = newError(ErrValidation, "organization name is required when no invite code is given")
	ErrInvalidInviteCode        = newError(ErrValidation, "invalid invite code")
	ErrEmailTaken               = newError(ErrConflict, "email is already registered")
	ErrInvalidCredentials       = newError(ErrUnauthorized, "invalid email or password")
	ErrUserNotFound             = newError(ErrUnauthorized, "user not found")
)

// AuthService handles registration, login and identity resolution.
type AuthService struct {
	repos  *repository.Repositories
	tokens auth.TokenService
}

// NewAuthService creates a new AuthService.
func NewAuthService(repos *repository.Repositories, tokens auth.TokenService) *AuthService {
	return &AuthService{
		repos:  repos,
		tokens: tokens,
	}
}

// RegisterInput represents the information needed to create a user.
type RegisterInput struct {
	Name             string
	Email            string
	Password         string
	InviteCode       string
	OrganizationName string
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is an authenticated user with a fresh bearer token.
type AuthResult struct {
	User  *models.User
	Token string
}

// Register creates a user. With an invite code the user joins that
// organization as Member; without one a new organization is created and the
// user becomes its Admin.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	inviteCode := strings.TrimSpace(input.InviteCode)
	orgName := strings.TrimSpace(input.OrganizationName)
	if inviteCode == "" && orgName == "" {
		return nil, ErrOrganizationNameRequired
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         models.RoleMember,
	}

	err = s.repos.Transaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		taken, err := tx.Users.ExistsByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return ErrEmailTaken
		}

		if inviteCode != "" {
			org, err := tx.Organizations.FindByInviteCode(ctx, inviteCode)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrInvalidInviteCode
				}
				return fmt.Errorf("failed to find organization: %w", err)
			}
			user.OrganizationID = org.ID
		} else {
			code, err := utils.GenerateInviteCode()
			if err != nil {
				return fmt.Errorf("failed to generate invite code: %w", err)
			}
			org := &models.Organization{Name: orgName, InviteCode: code}
			if err := tx.Organizations.Create(ctx, org); err != nil {
				return fmt.Errorf("failed to create organization: %w", err)
			}
			user.OrganizationID = org.ID
			user.Role = models.RoleAdmin
		}

		if err := tx.Users.Create(ctx, user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.issue(user)
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	user, err := s.repos.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// GetUser retrieves a live user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.repos.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// ResolveIdentity loads the user and trusts only its stored organization and role.
func (s *AuthService) ResolveIdentity(ctx context.Context, userID uint64) (tenant.Identity, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return tenant.Identity{}, err
	}

	return tenant.Identity{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Role:           user.Role,
	}, nil
}

// Authenticate verifies a bearer token and resolves its identity.
func (s *AuthService) Authenticate(ctx context.Context, token string) (tenant.Identity, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return tenant.Identity{}, newError(ErrUnauthorized, err.Error())
	}
	userID, err := claims.UserID()
	if err != nil {
		return tenant.Identity{}, newError(ErrUnauthorized, err.Error())
	}
	return s.ResolveIdentity(ctx, userID)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
