// File: internal/dashboard/service.go
package dashboard

import (
	"context"

	"wasa_admin_backend/internal/approval"
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/location"
	"wasa_admin_backend/internal/meter"
	"wasa_admin_backend/internal/scoring"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StatusCounter is satisfied by the customer, meter, agent and scoring services.
type StatusCounter interface {
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type PendingCounter interface {
	CountPending(ctx context.Context, entityType string) (int64, error)
}

type CategoryCounter interface {
	CountCategories(ctx context.Context) (int64, error)
}

type HierarchyLoader interface {
	Hierarchy(ctx context.Context, includeInactive bool) (*location.Hierarchy, error)
}

// Sources groups the services the counters are read from.
type Sources struct {
	Customers StatusCounter
	Meters    StatusCounter
	Agents    StatusCounter
	Rulesets  StatusCounter
	Approvals PendingCounter
	Tariffs   CategoryCounter
	Locations HierarchyLoader
}

// Summary holds the counters visible to one role. Counters the role does
// not see are left out of the response.
type Summary struct {
	Role             string `json:"role"`
	Customers        *int64 `json:"customers,omitempty"`
	Meters           *int64 `json:"meters,omitempty"`
	ActiveMeters     *int64 `json:"active_meters,omitempty"`
	PendingApprovals *int64 `json:"pending_approvals,omitempty"`
	Agents           *int64 `json:"agents,omitempty"`
	Wasas            *int64 `json:"wasas,omitempty"`
	Zones            *int64 `json:"zones,omitempty"`
	Areas            *int64 `json:"areas,omitempty"`
	TariffCategories *int64 `json:"tariff_categories,omitempty"`
	RulesetsPending  *int64 `json:"rulesets_pending,omitempty"`
}

type counter int

const (
	countCustomers counter = iota
	countMeters
	countActiveMeters
	countPendingApprovals
	countAgents
	countLocations
	countTariffCategories
	countRulesetsPending
)

var roleCounters = map[string][]counter{
	common.RoleSuperAdmin: {
		countCustomers, countMeters, countActiveMeters, countPendingApprovals,
		countAgents, countLocations, countTariffCategories, countRulesetsPending,
	},
	common.RoleTariffAdmin:      {countTariffCategories, countRulesetsPending, countPendingApprovals},
	common.RoleCustomerAdmin:    {countCustomers, countMeters, countActiveMeters},
	common.RoleMeterReaderAdmin: {countMeters, countActiveMeters, countAgents},
	common.RoleApprovalAdmin:    {countPendingApprovals, countRulesetsPending},
	common.RoleGeneralAdmin:     {countAgents, countLocations, countCustomers, countRulesetsPending},
}

type Service interface {
	Summary(ctx context.Context, role string) (*Summary, error)
}

type service struct {
	src    Sources
	logger *zap.Logger
}

func NewService(src Sources, logger *zap.Logger) Service {
	return &service{src: src, logger: logger.Named("dashboard")}
}

func (s *service) Summary(ctx context.Context, role string) (*Summary, error) {
	counters, ok := roleCounters[role]
	if !ok {
		return nil, common.ErrForbidden.WithDetails("Your role has no dashboard.")
	}

	sum := &Summary{Role: role}
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counters {
		switch c {
		case countCustomers:
			sum.Customers = new(int64)
			g.Go(countInto(sum.Customers, func() (int64, error) { return s.src.Customers.CountByStatus(gctx, "") }))
		case countMeters:
			sum.Meters = new(int64)
			g.Go(countInto(sum.Meters, func() (int64, error) { return s.src.Meters.CountByStatus(gctx, "") }))
		case countActiveMeters:
			sum.ActiveMeters = new(int64)
			g.Go(countInto(sum.ActiveMeters, func() (int64, error) { return s.src.Meters.CountByStatus(gctx, meter.StatusActive) }))
		case countPendingApprovals:
			sum.PendingApprovals = new(int64)
			g.Go(countInto(sum.PendingApprovals, func() (int64, error) { return s.src.Approvals.CountPending(gctx, "") }))
		case countAgents:
			sum.Agents = new(int64)
			g.Go(countInto(sum.Agents, func() (int64, error) { return s.src.Agents.CountByStatus(gctx, "") }))
		case countTariffCategories:
			sum.TariffCategories = new(int64)
			g.Go(countInto(sum.TariffCategories, func() (int64, error) { return s.src.Tariffs.CountCategories(gctx) }))
		case countRulesetsPending:
			sum.RulesetsPending = new(int64)
			g.Go(countInto(sum.RulesetsPending, func() (int64, error) {
				return s.src.Rulesets.CountByStatus(gctx, scoring.StatusPendingApproval)
			}))
		case countLocations:
			sum.Wasas, sum.Zones, sum.Areas = new(int64), new(int64), new(int64)
			g.Go(func() error {
				h, err := s.src.Locations.Hierarchy(gctx, true)
				if err != nil {
					return err
				}
				*sum.Wasas = int64(len(h.Wasas))
				for _, w := range h.Wasas {
					*sum.Zones += int64(len(w.Zones))
					for _, z := range w.Zones {
						*sum.Areas += int64(len(z.Areas))
					}
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		if apiErr, ok := common.IsAPIError(err); ok {
			return nil, apiErr
		}
		s.logger.Error("Failed to load dashboard counters", zap.Error(err), zap.String("role", role))
		return nil, common.ErrInternalServer.WithDetails("Could not load dashboard summary.")
	}
	return sum, nil
}

func countInto(dst *int64, fn func() (int64, error)) func() error {
	return func() error {
		n, err := fn()
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

var (
	_ PendingCounter = approval.Service(nil)
	_ StatusCounter  = meter.Service(nil)
)
