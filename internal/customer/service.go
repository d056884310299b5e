// File: internal/customer/service.go
package customer

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/filestorage"
	"wasa_admin_backend/internal/location"
	"wasa_admin_backend/internal/tariff"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	indexBatchSize  = 500
	exportBatchSize = 500
)

// LocationResolver validates location chains and resolves CSV codes.
// location.Service satisfies it.
type LocationResolver interface {
	ValidateChain(ctx context.Context, wasaID, zoneID, areaID *uuid.UUID) error
	Index(ctx context.Context) (*location.Index, error)
}

// TariffLookup finds tariff categories by id or code. tariff.Service satisfies it.
type TariffLookup interface {
	GetCategory(ctx context.Context, id uuid.UUID) (*tariff.TariffCategory, error)
	FindCategoryByCode(ctx context.Context, code string) (*tariff.TariffCategory, error)
}

// Service manages customers, their CSV import/export and search.
type Service interface {
	Create(ctx context.Context, actor common.Actor, req CreateCustomerRequest) (*Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindByInspectionCode(ctx context.Context, code string) (*Customer, error)
	List(ctx context.Context, q ListQuery) ([]Customer, *common.Pagination, error)
	Search(ctx context.Context, term string, page common.PaginationQuery) ([]Customer, *common.Pagination, error)
	Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateCustomerRequest) (*Customer, error)
	Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error
	CountByStatus(ctx context.Context, status string) (int64, error)

	Import(ctx context.Context, actor common.Actor, r io.Reader, opts ImportOptions) (*ImportReport, error)
	ImportUpload(ctx context.Context, actor common.Actor, fileHeader *multipart.FileHeader, dryRun bool) (*ImportReport, error)
	Export(ctx context.Context, w io.Writer, q ListQuery) (int, error)
	ArchiveExport(ctx context.Context, actor common.Actor, q ListQuery) (*ExportResult, error)
	Reindex(ctx context.Context, batchSize int) (ReindexResult, error)
}

type service struct {
	repo      Repository
	locations LocationResolver
	tariffs   TariffLookup
	indexer   Indexer
	store     filestorage.Store
	audit     audit.Recorder
	logger    *zap.Logger
	validate  *validator.Validate
	now       func() time.Time
}

// NewService creates the customer service. indexer and store may be nil.
func NewService(
	repo Repository,
	locations LocationResolver,
	tariffs TariffLookup,
	indexer Indexer,
	store filestorage.Store,
	auditRecorder audit.Recorder,
	logger *zap.Logger,
) Service {
	return &service{
		repo:      repo,
		locations: locations,
		tariffs:   tariffs,
		indexer:   indexer,
		store:     store,
		audit:     auditRecorder,
		logger:    logger.Named("customer"),
		validate:  validator.New(),
		now:       time.Now,
	}
}

func normalizeInspectionCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func newAccountNumber() string {
	return "AC-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func optionalString(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

// optionalEmail trims and lower-cases the address. The CSV import stores it the same way.
func optionalEmail(v *string) *string {
	e := optionalString(v)
	if e == nil {
		return nil
	}
	lower := strings.ToLower(*e)
	return &lower
}

func (s *service) checkTariff(ctx context.Context, id uuid.UUID) error {
	if _, err := s.tariffs.GetCategory(ctx, id); err != nil {
		if apiErr, ok := common.IsAPIError(err); ok && apiErr.Is(common.ErrNotFound) {
			return common.NewValidationAPIError(map[string]string{"tariff_category_id": "The selected tariff category does not exist."})
		}
		return err
	}
	return nil
}

// syncIndex pushes customers to the search index. Index failures are logged
// and never fail the request.
func (s *service) syncIndex(ctx context.Context, customers ...Customer) {
	if s.indexer == nil || len(customers) == 0 {
		return
	}
	for start := 0; start < len(customers); start += indexBatchSize {
		end := start + indexBatchSize
		if end > len(customers) {
			end = len(customers)
		}
		res, err := s.indexer.Index(ctx, customers[start:end])
		if err != nil || res.Failed > 0 {
			s.logger.Warn("Failed to index customers", zap.Error(err), zap.Int("failed", res.Failed))
		}
	}
}

func (s *service) Create(ctx context.Context, actor common.Actor, req CreateCustomerRequest) (*Customer, error) {
	if err := s.locations.ValidateChain(ctx, &req.WasaID, &req.ZoneID, &req.AreaID); err != nil {
		return nil, err
	}
	if err := s.checkTariff(ctx, req.TariffCategoryID); err != nil {
		return nil, err
	}

	customer := &Customer{
		AccountNumber:    strings.TrimSpace(req.AccountNumber),
		InspectionCode:   normalizeInspectionCode(req.InspectionCode),
		FullName:         strings.TrimSpace(req.FullName),
		Phone:            optionalString(req.Phone),
		Email:            optionalEmail(req.Email),
		Address:          optionalString(req.Address),
		WasaID:           req.WasaID,
		ZoneID:           req.ZoneID,
		AreaID:           req.AreaID,
		TariffCategoryID: req.TariffCategoryID,
		ConnectionType:   req.ConnectionType,
		Status:           req.Status,
		ConnectedAt:      req.ConnectedAt,
	}
	if customer.AccountNumber == "" {
		customer.AccountNumber = newAccountNumber()
	}
	if customer.ConnectionType == "" {
		customer.ConnectionType = ConnectionWater
	}
	if customer.Status == "" {
		customer.Status = StatusActive
	}

	if err := s.repo.Create(ctx, customer); err != nil {
		s.logger.Error("Failed to create customer", zap.Error(err), zap.String("inspection_code", customer.InspectionCode))
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		Actor: actor, Action: "customer.create", EntityType: "customer", EntityID: customer.ID.String(),
		ChangedFields: []string{"account_number", "inspection_code", "full_name", "phone", "email", "address", "wasa_id", "zone_id", "area_id", "tariff_category_id", "connection_type", "status"},
	})
	s.syncIndex(ctx, *customer)
	s.logger.Info("Customer created successfully", zap.String("id", customer.ID.String()), zap.String("inspection_code", customer.InspectionCode))
	return customer, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) FindByInspectionCode(ctx context.Context, code string) (*Customer, error) {
	customer, err := s.repo.FindByInspectionCode(ctx, normalizeInspectionCode(code))
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, common.ErrNotFound.WithDetails("Customer not found.")
	}
	return customer, nil
}

func (s *service) List(ctx context.Context, q ListQuery) ([]Customer, *common.Pagination, error) {
	customers, total, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list customers", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve customers.")
	}
	return customers, common.NewPagination(total, q.Page, q.Limit()), nil
}

// Search queries the search index when one is configured and falls back to
// the database when it is missing or failing.
func (s *service) Search(ctx context.Context, term string, page common.PaginationQuery) ([]Customer, *common.Pagination, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil, common.NewValidationAPIError(map[string]string{"q": "A search term is required."})
	}
	if s.indexer != nil {
		ids, total, err := s.indexer.Search(ctx, term, page.Offset(), page.Limit())
		if err == nil {
			customers, err := s.repo.FindByIDs(ctx, ids)
			if err != nil {
				s.logger.Error("Failed to load customers for search hits", zap.Error(err))
				return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve customers.")
			}
			return customers, common.NewPagination(total, page.Page, page.Limit()), nil
		}
		s.logger.Warn("Customer search index unavailable, using database", zap.Error(err))
	}
	return s.List(ctx, ListQuery{PaginationQuery: page, Search: term})
}

func (s *service) Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateCustomerRequest) (*Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var changed []string
	if req.AccountNumber != nil {
		customer.AccountNumber = strings.TrimSpace(*req.AccountNumber)
		changed = append(changed, "account_number")
	}
	if req.InspectionCode != nil {
		customer.InspectionCode = normalizeInspectionCode(*req.InspectionCode)
		changed = append(changed, "inspection_code")
	}
	if req.FullName != nil {
		customer.FullName = strings.TrimSpace(*req.FullName)
		changed = append(changed, "full_name")
	}
	if req.Phone != nil {
		customer.Phone = optionalString(req.Phone)
		changed = append(changed, "phone")
	}
	if req.Email != nil {
		customer.Email = optionalEmail(req.Email)
		changed = append(changed, "email")
	}
	if req.Address != nil {
		customer.Address = optionalString(req.Address)
		changed = append(changed, "address")
	}
	if req.ConnectionType != nil {
		customer.ConnectionType = *req.ConnectionType
		changed = append(changed, "connection_type")
	}
	if req.Status != nil {
		customer.Status = *req.Status
		changed = append(changed, "status")
	}
	if req.ConnectedAt != nil {
		customer.ConnectedAt = req.ConnectedAt
		changed = append(changed, "connected_at")
	}
	if req.TariffCategoryID != nil && *req.TariffCategoryID != customer.TariffCategoryID {
		if err := s.checkTariff(ctx, *req.TariffCategoryID); err != nil {
			return nil, err
		}
		customer.TariffCategoryID = *req.TariffCategoryID
		changed = append(changed, "tariff_category_id")
	}

	if req.WasaID != nil || req.ZoneID != nil || req.AreaID != nil {
		if req.WasaID != nil && *req.WasaID != customer.WasaID {
			customer.WasaID = *req.WasaID
			changed = append(changed, "wasa_id")
		}
		if req.ZoneID != nil && *req.ZoneID != customer.ZoneID {
			customer.ZoneID = *req.ZoneID
			changed = append(changed, "zone_id")
		}
		if req.AreaID != nil && *req.AreaID != customer.AreaID {
			customer.AreaID = *req.AreaID
			changed = append(changed, "area_id")
		}
		// Customers always carry a full chain, so a moved parent needs its
		// children in the same request.
		if err := s.locations.ValidateChain(ctx, &customer.WasaID, &customer.ZoneID, &customer.AreaID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, customer); err != nil {
		s.logger.Error("Failed to update customer", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "customer.update", EntityType: "customer", EntityID: id.String(), ChangedFields: changed})
	s.syncIndex(ctx, *customer)
	return customer, nil
}

func (s *service) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "customer.delete", EntityType: "customer", EntityID: id.String()})
	if s.indexer != nil {
		if err := s.indexer.Delete(ctx, id); err != nil {
			s.logger.Warn("Failed to remove customer from search index", zap.Error(err), zap.String("id", id.String()))
		}
	}
	return nil
}

func (s *service) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.repo.CountByStatus(ctx, status)
}

// Reindex rebuilds the search index from the database in batches.
func (s *service) Reindex(ctx context.Context, batchSize int) (ReindexResult, error) {
	var total ReindexResult
	if s.indexer == nil {
		return total, common.ErrServiceUnavailable.WithDetails("Customer search index is not configured.")
	}
	if err := s.indexer.EnsureIndex(ctx); err != nil {
		return total, fmt.Errorf("ensure customer index: %w", err)
	}
	err := s.repo.Scan(ctx, ListQuery{}, batchSize, func(batch []Customer) error {
		res, err := s.indexer.Index(ctx, batch)
		total.Indexed += res.Indexed
		total.Failed += res.Failed
		return err
	})
	if err != nil {
		s.logger.Error("Customer reindex stopped", zap.Error(err), zap.Int("indexed", total.Indexed))
		return total, err
	}
	s.logger.Info("Customer reindex finished", zap.Int("indexed", total.Indexed), zap.Int("failed", total.Failed))
	return total, nil
}
