// File: internal/meter/service.go
package meter

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/customer"
	"wasa_admin_backend/internal/filestorage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CustomerLookup finds customers for assignment and CSV linking.
// customer.Service satisfies it.
type CustomerLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*customer.Customer, error)
	FindByInspectionCode(ctx context.Context, code string) (*customer.Customer, error)
}

// Service manages meters and their readings.
type Service interface {
	Create(ctx context.Context, actor common.Actor, req CreateMeterRequest) (*Meter, error)
	Get(ctx context.Context, id uuid.UUID) (*Meter, error)
	List(ctx context.Context, q ListQuery) ([]Meter, *common.Pagination, error)
	Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateMeterRequest) (*Meter, error)
	Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error
	Assign(ctx context.Context, actor common.Actor, id uuid.UUID, customerID *uuid.UUID) (*Meter, error)
	CountByStatus(ctx context.Context, status string) (int64, error)

	RecordReading(ctx context.Context, actor common.Actor, id uuid.UUID, req RecordReadingRequest) (*MeterReading, error)
	ListReadings(ctx context.Context, id uuid.UUID, pq common.PaginationQuery) ([]MeterReading, *common.Pagination, error)

	Import(ctx context.Context, actor common.Actor, r io.Reader, dryRun bool, archiveKey string) (*ImportReport, error)
	ImportUpload(ctx context.Context, actor common.Actor, fileHeader *multipart.FileHeader, dryRun bool) (*ImportReport, error)
}

type service struct {
	repo      Repository
	customers CustomerLookup
	store     filestorage.Store
	audit     audit.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates the meter service. store may be nil.
func NewService(repo Repository, customers CustomerLookup, store filestorage.Store, auditRecorder audit.Recorder, logger *zap.Logger) Service {
	return &service{
		repo:      repo,
		customers: customers,
		store:     store,
		audit:     auditRecorder,
		logger:    logger.Named("meter"),
		now:       time.Now,
	}
}

func normalizeMeterNumber(n string) string {
	return strings.ToUpper(strings.TrimSpace(n))
}

// linkCustomer copies the customer's inspection code onto the meter.
func (s *service) linkCustomer(ctx context.Context, m *Meter, customerID *uuid.UUID) error {
	if customerID == nil {
		m.CustomerID = nil
		m.InspectionCode = nil
		return nil
	}
	c, err := s.customers.Get(ctx, *customerID)
	if err != nil {
		if apiErr, ok := common.IsAPIError(err); ok && apiErr.Is(common.ErrNotFound) {
			return common.NewValidationAPIError(map[string]string{"customer_id": "The selected customer does not exist."})
		}
		return err
	}
	code := c.InspectionCode
	m.CustomerID = &c.ID
	m.InspectionCode = &code
	return nil
}

func (s *service) Create(ctx context.Context, actor common.Actor, req CreateMeterRequest) (*Meter, error) {
	m := &Meter{
		MeterNumber: normalizeMeterNumber(req.MeterNumber),
		MeterType:   req.MeterType,
		SizeMM:      req.SizeMM,
		InstalledAt: req.InstalledAt,
		Status:      req.Status,
	}
	if m.MeterType == "" {
		m.MeterType = TypeMechanical
	}
	if m.Status == "" {
		m.Status = StatusActive
	}
	if err := s.linkCustomer(ctx, m, req.CustomerID); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		s.logger.Error("Failed to create meter", zap.Error(err), zap.String("meter_number", m.MeterNumber))
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		Actor: actor, Action: "meter.create", EntityType: "meter", EntityID: m.ID.String(),
		ChangedFields: []string{"meter_number", "customer_id", "meter_type", "size_mm", "installed_at", "status"},
	})
	s.logger.Info("Meter created successfully", zap.String("id", m.ID.String()), zap.String("meter_number", m.MeterNumber))
	return m, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Meter, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, q ListQuery) ([]Meter, *common.Pagination, error) {
	meters, total, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list meters", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve meters.")
	}
	return meters, common.NewPagination(total, q.Page, q.Limit()), nil
}

func (s *service) Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateMeterRequest) (*Meter, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var changed []string
	if req.MeterNumber != nil {
		m.MeterNumber = normalizeMeterNumber(*req.MeterNumber)
		changed = append(changed, "meter_number")
	}
	if req.MeterType != nil {
		m.MeterType = *req.MeterType
		changed = append(changed, "meter_type")
	}
	if req.SizeMM != nil {
		m.SizeMM = *req.SizeMM
		changed = append(changed, "size_mm")
	}
	if req.InstalledAt != nil {
		m.InstalledAt = req.InstalledAt
		changed = append(changed, "installed_at")
	}
	if req.Status != nil {
		m.Status = *req.Status
		changed = append(changed, "status")
	}
	if err := s.repo.Update(ctx, m); err != nil {
		s.logger.Error("Failed to update meter", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "meter.update", EntityType: "meter", EntityID: id.String(), ChangedFields: changed})
	return m, nil
}

func (s *service) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "meter.delete", EntityType: "meter", EntityID: id.String()})
	return nil
}

func (s *service) Assign(ctx context.Context, actor common.Actor, id uuid.UUID, customerID *uuid.UUID) (*Meter, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status == StatusRemoved && customerID != nil {
		return nil, common.ErrConflict.WithDetails("A removed meter cannot be assigned to a customer.")
	}
	if err := s.linkCustomer(ctx, m, customerID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "meter.assign", EntityType: "meter", EntityID: id.String(), ChangedFields: []string{"customer_id", "inspection_code"}})
	s.logger.Info("Meter assignment changed", zap.String("id", id.String()), zap.Bool("assigned", customerID != nil))
	return m, nil
}

func (s *service) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.repo.CountByStatus(ctx, status)
}

// RecordReading stores a register value. Readings never go backwards in
// time, and the value never decreases unless the register was replaced.
func (s *service) RecordReading(ctx context.Context, actor common.Actor, id uuid.UUID, req RecordReadingRequest) (*MeterReading, error) {
	now := s.now().UTC()
	readAt := now
	if req.ReadAt != nil {
		readAt = req.ReadAt.UTC()
	}
	if readAt.After(now) {
		return nil, common.NewValidationAPIError(map[string]string{"read_at": "The reading time cannot be in the future."})
	}
	if req.Value == nil {
		return nil, common.NewValidationAPIError(map[string]string{"value": "The value field is required."})
	}
	value := *req.Value

	var reading *MeterReading
	err := s.repo.Transaction(ctx, func(repo Repository) error {
		m, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if m.Status == StatusRemoved {
			return common.ErrConflict.WithDetails("Readings cannot be recorded for a removed meter.")
		}
		if m.LastReadingAt != nil && readAt.Before(*m.LastReadingAt) {
			return common.NewValidationAPIError(map[string]string{
				"read_at": fmt.Sprintf("The reading time cannot be earlier than the last reading (%s).", m.LastReadingAt.UTC().Format(time.RFC3339)),
			})
		}
		if !req.IsReplacement && value < m.LastReading {
			return common.NewValidationAPIError(map[string]string{
				"value": fmt.Sprintf("The value cannot be lower than the last reading (%g) unless the meter was replaced.", m.LastReading),
			})
		}

		reading = &MeterReading{
			MeterID:       m.ID,
			Value:         value,
			ReadAt:        readAt,
			IsReplacement: req.IsReplacement,
			Note:          req.Note,
		}
		if actor.ID != uuid.Nil {
			recordedBy := actor.ID
			reading.RecordedBy = &recordedBy
		}
		if m.LastReadingAt != nil && !req.IsReplacement {
			consumption := value - m.LastReading
			reading.Consumption = &consumption
		}
		if err := repo.CreateReading(ctx, reading); err != nil {
			return err
		}
		m.LastReading = value
		m.LastReadingAt = &readAt
		return repo.Update(ctx, m)
	})
	if err != nil {
		if _, ok := common.IsAPIError(err); !ok {
			s.logger.Error("Failed to record meter reading", zap.Error(err), zap.String("meter_id", id.String()))
		}
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "meter.reading", EntityType: "meter", EntityID: id.String(), ChangedFields: []string{"last_reading", "last_reading_at"}})
	return reading, nil
}

func (s *service) ListReadings(ctx context.Context, id uuid.UUID, pq common.PaginationQuery) ([]MeterReading, *common.Pagination, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, nil, err
	}
	readings, total, err := s.repo.ListReadings(ctx, id, pq)
	if err != nil {
		s.logger.Error("Failed to list meter readings", zap.Error(err), zap.String("meter_id", id.String()))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve meter readings.")
	}
	return readings, common.NewPagination(total, pq.Page, pq.Limit()), nil
}
