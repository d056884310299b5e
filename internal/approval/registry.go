// File: internal/approval/registry.go
package approval

import (
	"context"
	"sort"
	"sync"

	"gorm.io/gorm"
)

// Applier carries out the decision on the entity an approval request points
// at. Both methods run inside the review transaction and must only use tx.
type Applier interface {
	// Apply is called when the request is approved.
	Apply(ctx context.Context, tx *gorm.DB, req *ApprovalRequest) error
	// Revert is called when the request is rejected, cancelled or expired.
	// req.Status already holds the final status.
	Revert(ctx context.Context, tx *gorm.DB, req *ApprovalRequest) error
}

// Registry maps entity types to their appliers. Modules register themselves
// when they are constructed.
type Registry struct {
	mu       sync.RWMutex
	appliers map[string]Applier
}

func NewRegistry() *Registry {
	return &Registry{appliers: make(map[string]Applier)}
}

func (r *Registry) Register(entityType string, a Applier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appliers[entityType] = a
}

func (r *Registry) Get(entityType string) (Applier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appliers[entityType]
	return a, ok
}

// EntityTypes lists the registered entity types in sorted order.
func (r *Registry) EntityTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.appliers))
	for k := range r.appliers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
