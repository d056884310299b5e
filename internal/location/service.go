// File: internal/location/service.go
package location

import (
	"context"
	"strings"
	"sync/atomic"

	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/config"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Driver errors that are worth one more attempt when loading the tree.
var transientLoadErrors = []string{"database is locked", "bad connection", "connection reset"}

// Service defines location management and the hierarchy selector.
type Service interface {
	CreateWasa(ctx context.Context, actor common.Actor, req CreateWasaRequest) (*Wasa, error)
	GetWasa(ctx context.Context, id uuid.UUID) (*Wasa, error)
	ListWasas(ctx context.Context, q ListQuery) ([]Wasa, *common.Pagination, error)
	UpdateWasa(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateWasaRequest) (*Wasa, error)
	DeleteWasa(ctx context.Context, actor common.Actor, id uuid.UUID) error

	CreateZone(ctx context.Context, actor common.Actor, req CreateZoneRequest) (*Zone, error)
	GetZone(ctx context.Context, id uuid.UUID) (*Zone, error)
	ListZones(ctx context.Context, q ListQuery) ([]Zone, *common.Pagination, error)
	UpdateZone(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateZoneRequest) (*Zone, error)
	DeleteZone(ctx context.Context, actor common.Actor, id uuid.UUID) error

	CreateArea(ctx context.Context, actor common.Actor, req CreateAreaRequest) (*Area, error)
	GetArea(ctx context.Context, id uuid.UUID) (*Area, error)
	ListAreas(ctx context.Context, q ListQuery) ([]Area, *common.Pagination, error)
	UpdateArea(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateAreaRequest) (*Area, error)
	DeleteArea(ctx context.Context, actor common.Actor, id uuid.UUID) error

	Hierarchy(ctx context.Context, includeInactive bool) (*Hierarchy, error)
	Options(ctx context.Context, sel Selection, includeInactive bool) (*Options, error)
	Index(ctx context.Context) (*Index, error)
	ValidateChain(ctx context.Context, wasaID, zoneID, areaID *uuid.UUID) error
}

type service struct {
	repo   Repository
	cache  HierarchyCache
	audit  audit.Recorder
	logger *zap.Logger
	config *config.Config
	group  singleflight.Group
	// generation is bumped on every mutation. A load only writes the cache
	// when no mutation happened while it was reading.
	generation atomic.Uint64
}

// NewService creates a new location service. cache may be nil.
func NewService(repo Repository, cache HierarchyCache, auditRecorder audit.Recorder, logger *zap.Logger, cfg *config.Config) Service {
	return &service{
		repo:   repo,
		cache:  cache,
		audit:  auditRecorder,
		logger: logger.Named("location"),
		config: cfg,
	}
}

func makeCode(code, name string) string {
	if c := strings.TrimSpace(code); c != "" {
		return slug.Make(c)
	}
	return slug.Make(name)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// afterMutation records the audit entry and drops the cached tree.
func (s *service) afterMutation(ctx context.Context, actor common.Actor, action, entityType string, id uuid.UUID, changed []string) {
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: action, EntityType: entityType, EntityID: id.String(), ChangedFields: changed})
	s.invalidate(ctx)
}

func (s *service) invalidate(ctx context.Context) {
	s.generation.Add(1)
	s.group.Forget(hierarchyCacheKey)
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx); err != nil {
		s.logger.Warn("Failed to invalidate location hierarchy cache", zap.Error(err))
	}
}

// --- Wasa ---

func (s *service) CreateWasa(ctx context.Context, actor common.Actor, req CreateWasaRequest) (*Wasa, error) {
	wasa := &Wasa{
		Name:        strings.TrimSpace(req.Name),
		Code:        makeCode(req.Code, req.Name),
		Description: req.Description,
		IsActive:    boolOr(req.IsActive, true),
	}
	if err := s.repo.CreateWasa(ctx, wasa); err != nil {
		s.logger.Error("Failed to create WASA", zap.Error(err), zap.String("name", req.Name))
		return nil, err
	}
	s.afterMutation(ctx, actor, "wasa.create", "wasa", wasa.ID, []string{"name", "code", "description", "is_active"})
	s.logger.Info("WASA created successfully", zap.String("id", wasa.ID.String()), zap.String("code", wasa.Code))
	return wasa, nil
}

func (s *service) GetWasa(ctx context.Context, id uuid.UUID) (*Wasa, error) {
	return s.repo.FindWasaByID(ctx, id)
}

func (s *service) ListWasas(ctx context.Context, q ListQuery) ([]Wasa, *common.Pagination, error) {
	wasas, total, err := s.repo.ListWasas(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list WASAs", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve WASAs.")
	}
	return wasas, common.NewPagination(total, q.Page, q.Limit()), nil
}

func (s *service) UpdateWasa(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateWasaRequest) (*Wasa, error) {
	wasa, err := s.repo.FindWasaByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var changed []string
	if req.Name != nil {
		wasa.Name = strings.TrimSpace(*req.Name)
		changed = append(changed, "name")
	}
	if req.Code != nil {
		wasa.Code = slug.Make(*req.Code)
		changed = append(changed, "code")
	}
	if req.Description != nil {
		wasa.Description = req.Description
		changed = append(changed, "description")
	}
	if req.IsActive != nil {
		wasa.IsActive = *req.IsActive
		changed = append(changed, "is_active")
	}
	if err := s.repo.UpdateWasa(ctx, wasa); err != nil {
		s.logger.Error("Failed to update WASA", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	s.afterMutation(ctx, actor, "wasa.update", "wasa", id, changed)
	return wasa, nil
}

func (s *service) DeleteWasa(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if err := s.repo.DeleteWasa(ctx, id); err != nil {
		return err
	}
	s.afterMutation(ctx, actor, "wasa.delete", "wasa", id, nil)
	return nil
}

// --- Zone ---

func (s *service) CreateZone(ctx context.Context, actor common.Actor, req CreateZoneRequest) (*Zone, error) {
	if _, err := s.repo.FindWasaByID(ctx, req.WasaID); err != nil {
		return nil, parentError(err, "wasa_id", "The selected WASA does not exist.")
	}
	zone := &Zone{
		WasaID:   req.WasaID,
		Name:     strings.TrimSpace(req.Name),
		Code:     makeCode(req.Code, req.Name),
		IsActive: boolOr(req.IsActive, true),
	}
	if err := s.repo.CreateZone(ctx, zone); err != nil {
		s.logger.Error("Failed to create zone", zap.Error(err), zap.String("name", req.Name))
		return nil, err
	}
	s.afterMutation(ctx, actor, "zone.create", "zone", zone.ID, []string{"wasa_id", "name", "code", "is_active"})
	s.logger.Info("Zone created successfully", zap.String("id", zone.ID.String()), zap.String("code", zone.Code))
	return zone, nil
}

func (s *service) GetZone(ctx context.Context, id uuid.UUID) (*Zone, error) {
	return s.repo.FindZoneByID(ctx, id)
}

func (s *service) ListZones(ctx context.Context, q ListQuery) ([]Zone, *common.Pagination, error) {
	zones, total, err := s.repo.ListZones(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list zones", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve zones.")
	}
	return zones, common.NewPagination(total, q.Page, q.Limit()), nil
}

func (s *service) UpdateZone(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateZoneRequest) (*Zone, error) {
	zone, err := s.repo.FindZoneByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var changed []string
	if req.WasaID != nil && *req.WasaID != zone.WasaID {
		if _, err := s.repo.FindWasaByID(ctx, *req.WasaID); err != nil {
			return nil, parentError(err, "wasa_id", "The selected WASA does not exist.")
		}
		if err := s.refuseMove(ctx, "zone_id", id, "move zone to another WASA"); err != nil {
			return nil, err
		}
		zone.WasaID = *req.WasaID
		changed = append(changed, "wasa_id")
	}
	if req.Name != nil {
		zone.Name = strings.TrimSpace(*req.Name)
		changed = append(changed, "name")
	}
	if req.Code != nil {
		zone.Code = slug.Make(*req.Code)
		changed = append(changed, "code")
	}
	if req.IsActive != nil {
		zone.IsActive = *req.IsActive
		changed = append(changed, "is_active")
	}
	if err := s.repo.UpdateZone(ctx, zone); err != nil {
		s.logger.Error("Failed to update zone", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	s.afterMutation(ctx, actor, "zone.update", "zone", id, changed)
	return zone, nil
}

func (s *service) DeleteZone(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if err := s.repo.DeleteZone(ctx, id); err != nil {
		return err
	}
	s.afterMutation(ctx, actor, "zone.delete", "zone", id, nil)
	return nil
}

// --- Area ---

func (s *service) CreateArea(ctx context.Context, actor common.Actor, req CreateAreaRequest) (*Area, error) {
	if _, err := s.repo.FindZoneByID(ctx, req.ZoneID); err != nil {
		return nil, parentError(err, "zone_id", "The selected zone does not exist.")
	}
	area := &Area{
		ZoneID:   req.ZoneID,
		Name:     strings.TrimSpace(req.Name),
		Code:     makeCode(req.Code, req.Name),
		IsActive: boolOr(req.IsActive, true),
	}
	if err := s.repo.CreateArea(ctx, area); err != nil {
		s.logger.Error("Failed to create area", zap.Error(err), zap.String("name", req.Name))
		return nil, err
	}
	s.afterMutation(ctx, actor, "area.create", "area", area.ID, []string{"zone_id", "name", "code", "is_active"})
	s.logger.Info("Area created successfully", zap.String("id", area.ID.String()), zap.String("code", area.Code))
	return area, nil
}

func (s *service) GetArea(ctx context.Context, id uuid.UUID) (*Area, error) {
	return s.repo.FindAreaByID(ctx, id)
}

func (s *service) ListAreas(ctx context.Context, q ListQuery) ([]Area, *common.Pagination, error) {
	areas, total, err := s.repo.ListAreas(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list areas", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve areas.")
	}
	return areas, common.NewPagination(total, q.Page, q.Limit()), nil
}

func (s *service) UpdateArea(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateAreaRequest) (*Area, error) {
	area, err := s.repo.FindAreaByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var changed []string
	if req.ZoneID != nil && *req.ZoneID != area.ZoneID {
		if _, err := s.repo.FindZoneByID(ctx, *req.ZoneID); err != nil {
			return nil, parentError(err, "zone_id", "The selected zone does not exist.")
		}
		if err := s.refuseMove(ctx, "area_id", id, "move area to another zone"); err != nil {
			return nil, err
		}
		area.ZoneID = *req.ZoneID
		changed = append(changed, "zone_id")
	}
	if req.Name != nil {
		area.Name = strings.TrimSpace(*req.Name)
		changed = append(changed, "name")
	}
	if req.Code != nil {
		area.Code = slug.Make(*req.Code)
		changed = append(changed, "code")
	}
	if req.IsActive != nil {
		area.IsActive = *req.IsActive
		changed = append(changed, "is_active")
	}
	if err := s.repo.UpdateArea(ctx, area); err != nil {
		s.logger.Error("Failed to update area", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	s.afterMutation(ctx, actor, "area.update", "area", id, changed)
	return area, nil
}

func (s *service) DeleteArea(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if err := s.repo.DeleteArea(ctx, id); err != nil {
		return err
	}
	s.afterMutation(ctx, actor, "area.delete", "area", id, nil)
	return nil
}

// --- Hierarchy ---

// Hierarchy returns the location tree from the cache, loading it from the
// database on a miss. Concurrent misses share one load.
func (s *service) Hierarchy(ctx context.Context, includeInactive bool) (*Hierarchy, error) {
	h, err := s.fullHierarchy(ctx)
	if err != nil {
		return nil, err
	}
	if includeInactive {
		return h, nil
	}
	return h.ActiveOnly(), nil
}

func (s *service) fullHierarchy(ctx context.Context) (*Hierarchy, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("Hierarchy cache get failed, falling back to database", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	result, err, _ := s.group.Do(hierarchyCacheKey, func() (interface{}, error) {
		if s.cache != nil {
			if cached, err := s.cache.Get(ctx); err == nil && cached != nil {
				return cached, nil
			}
		}

		gen := s.generation.Load()
		var h *Hierarchy
		err := common.RetryOnce(ctx, func(ctx context.Context) error {
			wasas, zones, areas, err := s.repo.LoadAll(ctx)
			if err != nil {
				return err
			}
			h = buildHierarchy(wasas, zones, areas)
			return nil
		}, transientLoadErrors...)
		if err != nil {
			return nil, err
		}

		if s.cache != nil && s.generation.Load() == gen {
			if err := s.cache.Set(ctx, h); err != nil {
				s.logger.Warn("Failed to cache location hierarchy", zap.Error(err))
			} else if s.generation.Load() != gen {
				// A mutation landed between the check and the write.
				s.invalidate(ctx)
			}
		}
		return h, nil
	})
	if err != nil {
		s.logger.Error("Failed to load location hierarchy", zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not load the location hierarchy.")
	}
	return result.(*Hierarchy), nil
}

func (s *service) Options(ctx context.Context, sel Selection, includeInactive bool) (*Options, error) {
	h, err := s.Hierarchy(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	opts := h.Cascade(sel)
	return &opts, nil
}

func (s *service) Index(ctx context.Context) (*Index, error) {
	h, err := s.fullHierarchy(ctx)
	if err != nil {
		return nil, err
	}
	return NewIndex(h), nil
}

func (s *service) ValidateChain(ctx context.Context, wasaID, zoneID, areaID *uuid.UUID) error {
	idx, err := s.Index(ctx)
	if err != nil {
		return err
	}
	return idx.ValidateChain(wasaID, zoneID, areaID)
}

// refuseMove blocks re-parenting a zone or area while customers or agents
// carry it in their chain. Anything assigned below a zone also stores the
// zone itself, so checking the moved node's own column is enough.
func (s *service) refuseMove(ctx context.Context, column string, id uuid.UUID, action string) error {
	counts, err := s.repo.CountAssignments(ctx, column, id)
	if err != nil {
		s.logger.Error("Failed to check location assignments", zap.Error(err), zap.String("id", id.String()))
		return common.ErrInternalServer.WithDetails("Failed to check for location assignments.")
	}
	return counts.Conflict(action)
}

func parentError(err error, field, message string) error {
	if apiErr, ok := common.IsAPIError(err); ok && apiErr.StatusCode == common.ErrNotFound.StatusCode {
		return common.NewValidationAPIError(map[string]string{field: message})
	}
	return err
}
