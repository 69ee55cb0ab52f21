package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is inactive")
)

const (
	maxFailedAttempts = 5
	lockDuration      = 15 * time.Minute
)

// dummyHash is compared against when the email is unknown so both paths
// cost one bcrypt comparison.
const dummyHash = "$2a$12$C6UzMDM.H6dfI/f/IKcEeO5e2lGpVQ9Gjv7u2d9r1JtkEtSxhzCyu"

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	RecordLoginFailure(ctx context.Context, id uuid.UUID, maxAttempts int, lockFor time.Duration) error
	RecordLoginSuccess(ctx context.Context, id uuid.UUID) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

// AuthService issues tokens for users of every role. A user whose role
// record link is missing cannot sign in, since no prescription operation
// could resolve them.
type AuthService struct {
	userRepo   UserRepository
	jwtManager *auth.JWTManager
	auditSvc   *AuditService
	log        *zap.Logger
}

func NewAuthService(userRepo UserRepository, jwtManager *auth.JWTManager, auditSvc *AuditService, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, jwtManager: jwtManager, auditSvc: auditSvc, log: log}
}

func (s *AuthService) Login(ctx context.Context, email, password string, ip string) (*domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.Error("failed to load user for login", zap.Error(err))
		}
		auth.CheckPassword(dummyHash, password)
		return nil, ErrInvalidCredentials
	}

	if err := s.usable(user); err != nil {
		s.log.Warn("login refused",
			zap.String("user_id", user.ID.String()),
			zap.String("ip", ip),
			zap.Error(err),
		)
		return nil, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		if err := s.userRepo.RecordLoginFailure(ctx, user.ID, maxFailedAttempts, lockDuration); err != nil {
			s.log.Error("failed to record login failure", zap.Error(err))
		}
		s.auditSvc.LogAsync(ctx, s.loginAudit(user, domain.ActionLoginFailed, ip, 401))
		s.log.Warn("failed login attempt",
			zap.String("user_id", user.ID.String()),
			zap.String("ip", ip),
		)
		return nil, ErrInvalidCredentials
	}

	if err := s.userRepo.RecordLoginSuccess(ctx, user.ID); err != nil {
		s.log.Error("failed to record login success", zap.Error(err))
	}

	pair, err := s.jwtManager.GenerateTokenPair(domain.ClaimsForUser(user))
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.auditSvc.LogAsync(ctx, s.loginAudit(user, domain.ActionLogin, ip, 200))
	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
		zap.String("ip", ip),
	)

	return pair, nil
}

// RefreshToken issues a new token pair given a valid refresh token. The
// user is reloaded so role or link changes since issue take effect.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || s.usable(user) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(domain.ClaimsForUser(user))
}

// Me returns the current identity of the token's user.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*domain.Claims, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return domain.ClaimsForUser(user), nil
}

// ChangePassword replaces a user's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !auth.CheckPassword(user.PasswordHash, currentPassword) {
		return ErrInvalidCredentials
	}

	v := &ValidationError{}
	if err := auth.ValidatePasswordStrength(newPassword); err != nil {
		v.Add("new_password", err.Error())
	} else if newPassword == currentPassword {
		v.Add("new_password", "must differ from the current password")
	}
	if err := v.OrNil(); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       user.ID,
		UserRole:     user.Role,
		Action:       domain.ActionPassword,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
	})
	s.log.Info("password changed", zap.String("user_id", userID.String()))
	return nil
}

func (s *AuthService) usable(user *domain.User) error {
	switch {
	case !user.IsActive, !user.HasRoleLink():
		return ErrAccountInactive
	case user.IsLocked():
		return ErrAccountLocked
	}
	return nil
}

func (s *AuthService) loginAudit(user *domain.User, action domain.AuditAction, ip string, status int) AuditEntry {
	return AuditEntry{
		UserID:       user.ID,
		UserRole:     user.Role,
		Action:       action,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
		IPAddress:    ip,
		StatusCode:   status,
	}
}
