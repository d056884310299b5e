// File: internal/admin/service.go
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/auth"
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/config"
	"wasa_admin_backend/internal/platform/crypto"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const temporaryPasswordLength = 12

// Service defines admin account management. It also serves as the account
// store for login.
type Service interface {
	auth.AccountProvider

	Create(ctx context.Context, actor common.Actor, req CreateAdminRequest) (*Admin, error)
	Get(ctx context.Context, id uuid.UUID) (*Admin, error)
	List(ctx context.Context, q ListQuery) ([]Admin, *common.Pagination, error)
	Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateAdminRequest) (*Admin, error)
	Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error
	ChangePassword(ctx context.Context, actor common.Actor, req ChangePasswordRequest) error
	ResetPassword(ctx context.Context, actor common.Actor, id uuid.UUID) (string, error)
	EnsureSuperAdmin(ctx context.Context, email, password, fullName string) (*Admin, bool, error)
}

type service struct {
	repo   Repository
	audit  audit.Recorder
	logger *zap.Logger
	config *config.Config
}

var _ auth.AccountProvider = (*service)(nil)

// NewService creates a new admin service.
func NewService(repo Repository, auditRecorder audit.Recorder, logger *zap.Logger, cfg *config.Config) Service {
	return &service{
		repo:   repo,
		audit:  auditRecorder,
		logger: logger.Named("admin"),
		config: cfg,
	}
}

// --- auth.AccountProvider ---

func (s *service) Authenticate(ctx context.Context, email, password string) (*auth.Account, error) {
	adminModel, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Info("Admin not found during login", zap.String("email", email))
			return nil, common.ErrUnauthorized.WithDetails("Invalid email or password.")
		}
		s.logger.Error("Error finding admin by email during login", zap.Error(err), zap.String("email", email))
		return nil, common.ErrInternalServer.WithDetails("Login failed due to an internal error.")
	}
	if !common.CheckPasswordHash(password, adminModel.PasswordHash) {
		s.logger.Warn("Invalid password attempt", zap.String("adminID", adminModel.ID.String()))
		return nil, common.ErrUnauthorized.WithDetails("Invalid email or password.")
	}
	return adminModel.ToAccount(), nil
}

func (s *service) GetAccount(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	adminModel, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return adminModel.ToAccount(), nil
}

func (s *service) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.repo.UpdateLastLogin(ctx, id, at)
}

// --- Management ---

func (s *service) Create(ctx context.Context, actor common.Actor, req CreateAdminRequest) (*Admin, error) {
	hashedPassword, err := common.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	adminModel := &Admin{
		Email:        req.Email,
		PasswordHash: hashedPassword,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        trimmedOrNil(req.Phone),
		Role:         req.Role,
		IsActive:     true,
	}
	if req.IsActive != nil {
		adminModel.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, adminModel); err != nil {
		s.logger.Error("Failed to create admin", zap.Error(err), zap.String("email", req.Email))
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		Actor: actor, Action: "admin.create", EntityType: "admin", EntityID: adminModel.ID.String(),
		ChangedFields: []string{"email", "full_name", "phone", "role", "is_active"},
	})
	s.logger.Info("Admin created successfully", zap.String("id", adminModel.ID.String()), zap.String("role", adminModel.Role))
	return adminModel, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Admin, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, q ListQuery) ([]Admin, *common.Pagination, error) {
	admins, total, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list admins", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve admins.")
	}
	return admins, common.NewPagination(total, q.Page, q.Limit()), nil
}

func (s *service) Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateAdminRequest) (*Admin, error) {
	adminModel, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var changed []string
	if req.FullName != nil && strings.TrimSpace(*req.FullName) != adminModel.FullName {
		adminModel.FullName = strings.TrimSpace(*req.FullName)
		changed = append(changed, "full_name")
	}
	if req.Phone != nil {
		adminModel.Phone = trimmedOrNil(req.Phone)
		changed = append(changed, "phone")
	}
	if req.Role != nil && *req.Role != adminModel.Role {
		if actor.ID == id {
			return nil, common.ErrBadRequest.WithDetails("You cannot change your own role.")
		}
		if err := s.ensureNotLastSuperAdmin(ctx, adminModel); err != nil {
			return nil, err
		}
		adminModel.Role = *req.Role
		changed = append(changed, "role")
	}
	if req.IsActive != nil && *req.IsActive != adminModel.IsActive {
		if actor.ID == id && !*req.IsActive {
			return nil, common.ErrBadRequest.WithDetails("You cannot deactivate your own account.")
		}
		if !*req.IsActive {
			if err := s.ensureNotLastSuperAdmin(ctx, adminModel); err != nil {
				return nil, err
			}
		}
		adminModel.IsActive = *req.IsActive
		changed = append(changed, "is_active")
	}

	if len(changed) == 0 {
		return adminModel, nil
	}
	if err := s.repo.Update(ctx, adminModel); err != nil {
		s.logger.Error("Failed to update admin", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "admin.update", EntityType: "admin", EntityID: id.String(), ChangedFields: changed})
	s.logger.Info("Admin updated successfully", zap.String("id", id.String()), zap.Strings("changed", changed))
	return adminModel, nil
}

func (s *service) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if actor.ID == id {
		return common.ErrBadRequest.WithDetails("You cannot delete your own account.")
	}
	adminModel, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ensureNotLastSuperAdmin(ctx, adminModel); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "admin.delete", EntityType: "admin", EntityID: id.String()})
	s.logger.Info("Admin deleted", zap.String("id", id.String()))
	return nil
}

func (s *service) ChangePassword(ctx context.Context, actor common.Actor, req ChangePasswordRequest) error {
	adminModel, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !common.CheckPasswordHash(req.CurrentPassword, adminModel.PasswordHash) {
		return common.ErrBadRequest.WithDetails("Current password is incorrect.")
	}
	if req.CurrentPassword == req.NewPassword {
		return common.ErrBadRequest.WithDetails("New password must differ from the current password.")
	}
	hashedPassword, err := common.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	adminModel.PasswordHash = hashedPassword
	if err := s.repo.Update(ctx, adminModel); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "admin.password_change", EntityType: "admin", EntityID: actor.ID.String(), ChangedFields: []string{"password"}})
	return nil
}

// ResetPassword replaces the password of another admin with a generated one
// and returns it. The plain value is not stored anywhere.
func (s *service) ResetPassword(ctx context.Context, actor common.Actor, id uuid.UUID) (string, error) {
	adminModel, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	password, err := crypto.GenerateTemporaryPassword(temporaryPasswordLength)
	if err != nil {
		s.logger.Error("Failed to generate temporary password", zap.Error(err))
		return "", common.ErrInternalServer.WithDetails("Could not generate a temporary password.")
	}
	hashedPassword, err := common.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	adminModel.PasswordHash = hashedPassword
	if err := s.repo.Update(ctx, adminModel); err != nil {
		return "", err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "admin.password_reset", EntityType: "admin", EntityID: id.String(), ChangedFields: []string{"password"}})
	s.logger.Info("Admin password reset", zap.String("id", id.String()), zap.String("by", actor.ID.String()))
	return password, nil
}

// EnsureSuperAdmin creates the initial super admin unless an account with the
// email already exists. The bool reports whether one was created.
func (s *service) EnsureSuperAdmin(ctx context.Context, email, password, fullName string) (*Admin, bool, error) {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up admin %s: %w", email, err)
	}
	if len(password) < 8 {
		return nil, false, fmt.Errorf("seed admin password must be at least 8 characters")
	}
	if strings.TrimSpace(fullName) == "" {
		fullName = "Super Admin"
	}
	created, err := s.Create(ctx, common.Actor{Email: "system"}, CreateAdminRequest{
		Email:    email,
		Password: password,
		FullName: fullName,
		Role:     common.RoleSuperAdmin,
	})
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (s *service) ensureNotLastSuperAdmin(ctx context.Context, adminModel *Admin) error {
	if adminModel.Role != common.RoleSuperAdmin || !adminModel.IsActive {
		return nil
	}
	n, err := s.repo.CountActiveByRole(ctx, common.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return common.ErrConflict.WithDetails("At least one active super admin must remain.")
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
