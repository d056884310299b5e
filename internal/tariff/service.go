// File: internal/tariff/service.go
package tariff

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wasa_admin_backend/internal/approval"
	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const ratioEpsilon = 1e-9

// Service defines tariff category and settings management.
type Service interface {
	CreateCategory(ctx context.Context, actor common.Actor, req CreateCategoryRequest) (*TariffCategory, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*TariffCategory, error)
	FindCategoryByCode(ctx context.Context, code string) (*TariffCategory, error)
	ListCategories(ctx context.Context, q CategoryListQuery) ([]TariffCategory, *common.Pagination, error)
	UpdateCategory(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateCategoryRequest) (*TariffCategory, error)
	DeleteCategory(ctx context.Context, actor common.Actor, id uuid.UUID) error
	CountCategories(ctx context.Context) (int64, error)

	CreateSettings(ctx context.Context, actor common.Actor, req CreateSettingsRequest) (*TariffCategorySettings, error)
	GetSettings(ctx context.Context, id uuid.UUID) (*TariffCategorySettings, error)
	ListSettings(ctx context.Context, q SettingsListQuery) ([]TariffCategorySettings, *common.Pagination, error)
	UpdateSettings(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateSettingsRequest) (*TariffCategorySettings, error)
	DeleteSettings(ctx context.Context, actor common.Actor, id uuid.UUID) error
	SubmitSettings(ctx context.Context, actor common.Actor, id uuid.UUID) (*TariffCategorySettings, error)
	ActiveSettings(ctx context.Context, categoryID uuid.UUID) (*TariffCategorySettings, error)
}

type service struct {
	repo      Repository
	approvals approval.Submitter
	audit     audit.Recorder
	logger    *zap.Logger
}

// NewService creates the tariff service and registers the settings applier.
func NewService(repo Repository, approvals approval.Submitter, registry *approval.Registry, auditRecorder audit.Recorder, logger *zap.Logger) Service {
	s := &service{repo: repo, approvals: approvals, audit: auditRecorder, logger: logger.Named("tariff")}
	registry.Register(EntityTypeSettings, &settingsApplier{repo: repo, logger: s.logger})
	return s
}

// validateSettings checks the numeric parameters. Tubewell ratios are the
// shares of supply drawn from deep and shallow tubewells; the rest is surface
// water, so together they may not exceed 1.
func validateSettings(productionCost, baseRate, deep, shallow float64) error {
	details := map[string]string{}
	if productionCost <= 0 {
		details["production_cost"] = "Production cost must be greater than 0."
	}
	if baseRate <= 0 {
		details["base_rate"] = "Base rate must be greater than 0."
	}
	if deep < 0 || deep > 1 {
		details["deep_tubewell_ratio"] = "Deep tubewell ratio must be between 0 and 1."
	}
	if shallow < 0 || shallow > 1 {
		details["shallow_tubewell_ratio"] = "Shallow tubewell ratio must be between 0 and 1."
	}
	if len(details) == 0 && deep+shallow > 1+ratioEpsilon {
		details["tubewell_ratio"] = "Deep and shallow tubewell ratios together may not exceed 1."
	}
	if len(details) > 0 {
		return common.NewValidationAPIError(details)
	}
	return nil
}

func categoryCode(code, name string) string {
	if c := strings.TrimSpace(code); c != "" {
		return slug.Make(c)
	}
	return slug.Make(name)
}

// --- Categories ---

func (s *service) CreateCategory(ctx context.Context, actor common.Actor, req CreateCategoryRequest) (*TariffCategory, error) {
	cat := &TariffCategory{
		Name:         strings.TrimSpace(req.Name),
		Code:         categoryCode(req.Code, req.Name),
		Description:  req.Description,
		CustomerType: req.CustomerType,
		IsActive:     true,
	}
	if req.IsActive != nil {
		cat.IsActive = *req.IsActive
	}
	if err := s.repo.CreateCategory(ctx, cat); err != nil {
		s.logger.Error("Failed to create tariff category", zap.Error(err), zap.String("name", req.Name))
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "tariff_category.create", EntityType: "tariff_category", EntityID: cat.ID.String(),
		ChangedFields: []string{"name", "code", "description", "customer_type", "is_active"}})
	s.logger.Info("Tariff category created successfully", zap.String("id", cat.ID.String()), zap.String("code", cat.Code))
	return cat, nil
}

func (s *service) GetCategory(ctx context.Context, id uuid.UUID) (*TariffCategory, error) {
	return s.repo.FindCategoryByID(ctx, id)
}

func (s *service) FindCategoryByCode(ctx context.Context, code string) (*TariffCategory, error) {
	return s.repo.FindCategoryByCode(ctx, slug.Make(code))
}

func (s *service) ListCategories(ctx context.Context, q CategoryListQuery) ([]TariffCategory, *common.Pagination, error) {
	cats, total, err := s.repo.ListCategories(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list tariff categories", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve tariff categories.")
	}
	return cats, common.NewPagination(total, q.Page, q.Limit()), nil
}

func (s *service) UpdateCategory(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateCategoryRequest) (*TariffCategory, error) {
	cat, err := s.repo.FindCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var changed []string
	if req.Name != nil {
		cat.Name = strings.TrimSpace(*req.Name)
		changed = append(changed, "name")
	}
	if req.Code != nil {
		cat.Code = slug.Make(*req.Code)
		changed = append(changed, "code")
	}
	if req.Description != nil {
		cat.Description = req.Description
		changed = append(changed, "description")
	}
	if req.CustomerType != nil {
		cat.CustomerType = *req.CustomerType
		changed = append(changed, "customer_type")
	}
	if req.IsActive != nil {
		cat.IsActive = *req.IsActive
		changed = append(changed, "is_active")
	}
	if err := s.repo.UpdateCategory(ctx, cat); err != nil {
		s.logger.Error("Failed to update tariff category", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "tariff_category.update", EntityType: "tariff_category", EntityID: id.String(), ChangedFields: changed})
	return cat, nil
}

func (s *service) DeleteCategory(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "tariff_category.delete", EntityType: "tariff_category", EntityID: id.String()})
	return nil
}

func (s *service) CountCategories(ctx context.Context) (int64, error) {
	return s.repo.CountCategories(ctx)
}

// --- Settings ---

func (s *service) CreateSettings(ctx context.Context, actor common.Actor, req CreateSettingsRequest) (*TariffCategorySettings, error) {
	if err := validateSettings(req.ProductionCost, req.BaseRate, req.DeepTubewellRatio, req.ShallowTubewellRatio); err != nil {
		return nil, err
	}
	cat, err := s.repo.FindCategoryByID(ctx, req.TariffCategoryID)
	if err != nil {
		if apiErr, ok := common.IsAPIError(err); ok && apiErr.Is(common.ErrNotFound) {
			return nil, common.NewValidationAPIError(map[string]string{"tariff_category_id": "The selected tariff category does not exist."})
		}
		return nil, err
	}
	effective := time.Now().UTC()
	if req.EffectiveFrom != nil {
		effective = req.EffectiveFrom.UTC()
	}
	settings := &TariffCategorySettings{
		TariffCategoryID:     cat.ID,
		ProductionCost:       req.ProductionCost,
		BaseRate:             req.BaseRate,
		DeepTubewellRatio:    req.DeepTubewellRatio,
		ShallowTubewellRatio: req.ShallowTubewellRatio,
		EffectiveFrom:        effective,
		Status:               SettingsDraft,
		Notes:                req.Notes,
	}
	if actor.ID != uuid.Nil {
		settings.CreatedBy = &actor.ID
	}
	if err := s.repo.CreateSettings(ctx, settings); err != nil {
		s.logger.Error("Failed to create tariff settings", zap.Error(err), zap.String("category_id", cat.ID.String()))
		return nil, err
	}
	settings.TariffCategory = cat
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "tariff_settings.create", EntityType: EntityTypeSettings, EntityID: settings.ID.String(),
		ChangedFields: []string{"production_cost", "base_rate", "deep_tubewell_ratio", "shallow_tubewell_ratio", "effective_from"}})
	return settings, nil
}

func (s *service) GetSettings(ctx context.Context, id uuid.UUID) (*TariffCategorySettings, error) {
	return s.repo.FindSettingsByID(ctx, id)
}

func (s *service) ListSettings(ctx context.Context, q SettingsListQuery) ([]TariffCategorySettings, *common.Pagination, error) {
	out, total, err := s.repo.ListSettings(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list tariff settings", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve tariff settings.")
	}
	return out, common.NewPagination(total, q.Page, q.Limit()), nil
}

func notEditable(st *TariffCategorySettings) error {
	return common.ErrConflict.WithDetails(fmt.Sprintf("Settings in status %q can no longer be changed.", st.Status))
}

func (s *service) UpdateSettings(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateSettingsRequest) (*TariffCategorySettings, error) {
	st, err := s.repo.FindSettingsByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !st.Editable() {
		return nil, notEditable(st)
	}
	var changed []string
	if req.ProductionCost != nil {
		st.ProductionCost = *req.ProductionCost
		changed = append(changed, "production_cost")
	}
	if req.BaseRate != nil {
		st.BaseRate = *req.BaseRate
		changed = append(changed, "base_rate")
	}
	if req.DeepTubewellRatio != nil {
		st.DeepTubewellRatio = *req.DeepTubewellRatio
		changed = append(changed, "deep_tubewell_ratio")
	}
	if req.ShallowTubewellRatio != nil {
		st.ShallowTubewellRatio = *req.ShallowTubewellRatio
		changed = append(changed, "shallow_tubewell_ratio")
	}
	if req.EffectiveFrom != nil {
		st.EffectiveFrom = req.EffectiveFrom.UTC()
		changed = append(changed, "effective_from")
	}
	if req.Notes != nil {
		st.Notes = req.Notes
		changed = append(changed, "notes")
	}
	if err := validateSettings(st.ProductionCost, st.BaseRate, st.DeepTubewellRatio, st.ShallowTubewellRatio); err != nil {
		return nil, err
	}
	// Editing a rejected version turns it back into a draft.
	if st.Status == SettingsRejected {
		st.Status = SettingsDraft
		st.ApprovalRequestID = nil
		changed = append(changed, "status")
	}
	if err := s.repo.UpdateSettings(ctx, st); err != nil {
		s.logger.Error("Failed to update tariff settings", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "tariff_settings.update", EntityType: EntityTypeSettings, EntityID: id.String(), ChangedFields: changed})
	return st, nil
}

func (s *service) DeleteSettings(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	st, err := s.repo.FindSettingsByID(ctx, id)
	if err != nil {
		return err
	}
	if !st.Editable() {
		return notEditable(st)
	}
	if err := s.repo.DeleteSettings(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "tariff_settings.delete", EntityType: EntityTypeSettings, EntityID: id.String()})
	return nil
}

// SubmitSettings opens an activation request for a draft.
func (s *service) SubmitSettings(ctx context.Context, actor common.Actor, id uuid.UUID) (*TariffCategorySettings, error) {
	var submitted *TariffCategorySettings
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		st, err := repo.FindSettingsByID(ctx, id)
		if err != nil {
			return err
		}
		if !st.Editable() {
			return notEditable(st)
		}
		req, err := s.approvals.Submit(ctx, tx, actor, approval.SubmitInput{
			EntityType: EntityTypeSettings,
			EntityID:   st.ID,
			Action:     approval.ActionActivate,
			Payload:    ToSettingsResponse(st),
		})
		if err != nil {
			return err
		}
		st.Status = SettingsPendingApproval
		st.ApprovalRequestID = &req.ID
		if err := repo.UpdateSettings(ctx, st); err != nil {
			return err
		}
		submitted = st
		return nil
	})
	if err != nil {
		if _, ok := common.IsAPIError(err); !ok {
			s.logger.Error("Failed to submit tariff settings", zap.Error(err), zap.String("id", id.String()))
			return nil, common.ErrInternalServer.WithDetails("Could not submit the settings for approval.")
		}
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "tariff_settings.submit", EntityType: EntityTypeSettings, EntityID: id.String(), ChangedFields: []string{"status", "approval_request_id"}})
	s.logger.Info("Tariff settings submitted for approval", zap.String("id", id.String()))
	return submitted, nil
}

func (s *service) ActiveSettings(ctx context.Context, categoryID uuid.UUID) (*TariffCategorySettings, error) {
	if _, err := s.repo.FindCategoryByID(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.repo.FindActiveSettings(ctx, categoryID)
}

// settingsApplier activates or rejects settings once their review ends.
type settingsApplier struct {
	repo   Repository
	logger *zap.Logger
}

func (a *settingsApplier) load(ctx context.Context, tx *gorm.DB, req *approval.ApprovalRequest) (Repository, *TariffCategorySettings, error) {
	repo := a.repo.WithTx(tx)
	st, err := repo.FindSettingsByID(ctx, req.EntityID)
	if err != nil {
		return nil, nil, err
	}
	if st.Status != SettingsPendingApproval {
		return nil, nil, common.ErrConflict.WithDetails(fmt.Sprintf("Settings are %q, not pending approval.", st.Status))
	}
	return repo, st, nil
}

func (a *settingsApplier) Apply(ctx context.Context, tx *gorm.DB, req *approval.ApprovalRequest) error {
	repo, st, err := a.load(ctx, tx, req)
	if err != nil {
		return err
	}
	if err := repo.SupersedeActive(ctx, st.TariffCategoryID, st.ID); err != nil {
		return err
	}
	now := time.Now().UTC()
	st.Status = SettingsActive
	st.ActivatedAt = &now
	if err := repo.UpdateSettings(ctx, st); err != nil {
		return err
	}
	a.logger.Info("Tariff settings activated", zap.String("id", st.ID.String()), zap.String("category_id", st.TariffCategoryID.String()))
	return nil
}

func (a *settingsApplier) Revert(ctx context.Context, tx *gorm.DB, req *approval.ApprovalRequest) error {
	repo, st, err := a.load(ctx, tx, req)
	if err != nil {
		// Nothing to put back if the settings moved on or were removed.
		if apiErr, ok := common.IsAPIError(err); ok && (apiErr.Is(common.ErrNotFound) || apiErr.Is(common.ErrConflict)) {
			return nil
		}
		return err
	}
	st.Status = SettingsRejected
	return repo.UpdateSettings(ctx, st)
}
