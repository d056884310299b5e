// File: internal/agent/service.go
package agent

import (
	"context"
	"strings"
	"time"

	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChainValidator checks that a wasa/zone/area selection is consistent.
// location.Service satisfies it.
type ChainValidator interface {
	ValidateChain(ctx context.Context, wasaID, zoneID, areaID *uuid.UUID) error
}

// Service manages field users.
type Service interface {
	Create(ctx context.Context, actor common.Actor, req CreateAgentRequest) (*Agent, error)
	Get(ctx context.Context, id uuid.UUID) (*Agent, error)
	List(ctx context.Context, q ListQuery) ([]Agent, *common.Pagination, error)
	Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateAgentRequest) (*Agent, error)
	UpdateStatus(ctx context.Context, actor common.Actor, id uuid.UUID, status string) (*Agent, error)
	Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type service struct {
	repo      Repository
	locations ChainValidator
	audit     audit.Recorder
	logger    *zap.Logger
}

func NewService(repo Repository, locations ChainValidator, auditRecorder audit.Recorder, logger *zap.Logger) Service {
	return &service{repo: repo, locations: locations, audit: auditRecorder, logger: logger.Named("agent")}
}

func cleanEmail(email *string) *string {
	if email == nil {
		return nil
	}
	e := strings.ToLower(strings.TrimSpace(*email))
	if e == "" {
		return nil
	}
	return &e
}

func (s *service) Create(ctx context.Context, actor common.Actor, req CreateAgentRequest) (*Agent, error) {
	if err := s.locations.ValidateChain(ctx, req.WasaID, req.ZoneID, req.AreaID); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = StatusActive
	}
	joined := req.JoinedAt
	if joined == nil {
		now := time.Now().UTC()
		joined = &now
	}
	agent := &Agent{
		EmployeeCode: strings.ToUpper(strings.TrimSpace(req.EmployeeCode)),
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        strings.TrimSpace(req.Phone),
		Email:        cleanEmail(req.Email),
		Role:         req.Role,
		WasaID:       req.WasaID,
		ZoneID:       req.ZoneID,
		AreaID:       req.AreaID,
		Status:       status,
		JoinedAt:     joined,
	}
	if err := s.repo.Create(ctx, agent); err != nil {
		s.logger.Error("Failed to create user", zap.Error(err), zap.String("employee_code", agent.EmployeeCode))
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		Actor: actor, Action: "user.create", EntityType: "user", EntityID: agent.ID.String(),
		ChangedFields: []string{"employee_code", "full_name", "phone", "email", "role", "wasa_id", "zone_id", "area_id", "status"},
	})
	s.logger.Info("User created successfully", zap.String("id", agent.ID.String()), zap.String("role", agent.Role))
	return agent, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Agent, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, q ListQuery) ([]Agent, *common.Pagination, error) {
	agents, total, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve users.")
	}
	return agents, common.NewPagination(total, q.Page, q.Limit()), nil
}

func (s *service) Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateAgentRequest) (*Agent, error) {
	agent, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var changed []string
	if req.EmployeeCode != nil {
		agent.EmployeeCode = strings.ToUpper(strings.TrimSpace(*req.EmployeeCode))
		changed = append(changed, "employee_code")
	}
	if req.FullName != nil {
		agent.FullName = strings.TrimSpace(*req.FullName)
		changed = append(changed, "full_name")
	}
	if req.Phone != nil {
		agent.Phone = strings.TrimSpace(*req.Phone)
		changed = append(changed, "phone")
	}
	if req.Email != nil {
		agent.Email = cleanEmail(req.Email)
		changed = append(changed, "email")
	}
	if req.Role != nil {
		agent.Role = *req.Role
		changed = append(changed, "role")
	}
	if req.JoinedAt != nil {
		agent.JoinedAt = req.JoinedAt
		changed = append(changed, "joined_at")
	}

	if req.WasaID != nil || req.ZoneID != nil || req.AreaID != nil {
		// A new parent without a child clears the stale child.
		if req.WasaID != nil && (agent.WasaID == nil || *agent.WasaID != *req.WasaID) {
			agent.WasaID = req.WasaID
			agent.ZoneID, agent.AreaID = nil, nil
			changed = append(changed, "wasa_id")
		}
		if req.ZoneID != nil && (agent.ZoneID == nil || *agent.ZoneID != *req.ZoneID) {
			agent.ZoneID = req.ZoneID
			agent.AreaID = nil
			changed = append(changed, "zone_id")
		}
		if req.AreaID != nil {
			agent.AreaID = req.AreaID
			changed = append(changed, "area_id")
		}
		if err := s.locations.ValidateChain(ctx, agent.WasaID, agent.ZoneID, agent.AreaID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, agent); err != nil {
		s.logger.Error("Failed to update user", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "user.update", EntityType: "user", EntityID: id.String(), ChangedFields: changed})
	return agent, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor common.Actor, id uuid.UUID, status string) (*Agent, error) {
	switch status {
	case StatusActive, StatusInactive, StatusSuspended:
	default:
		return nil, common.NewValidationAPIError(map[string]string{"status": "Status must be active, inactive or suspended."})
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "user.status_change", EntityType: "user", EntityID: id.String(), ChangedFields: []string{"status"}})
	s.logger.Info("User status changed", zap.String("id", id.String()), zap.String("status", status))
	return s.repo.FindByID(ctx, id)
}

func (s *service) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "user.delete", EntityType: "user", EntityID: id.String()})
	return nil
}

func (s *service) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.repo.CountByStatus(ctx, status)
}
