package position

import (
	"errors"
	"sort"
	"sync"

	"swap-sentinel/models"
)

// ErrDuplicatePosition is returned when a client order id is already tracked
var ErrDuplicatePosition = errors.New("position already registered")

// Registry owns the open positions keyed by client order id. All reads and
// writes go through its mutex; callers get copies.
type Registry struct {
	mu        sync.Mutex
	positions map[string]*models.Position
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{positions: make(map[string]*models.Position)}
}

// Add registers a freshly opened position
func (r *Registry) Add(p models.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.positions[p.ClientOrderID]; ok {
		return ErrDuplicatePosition
	}
	p.Closing = false
	r.positions[p.ClientOrderID] = &p
	return nil
}

// Get returns a copy of the position
func (r *Registry) Get(id string) (models.Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.positions[id]
	if !ok {
		return models.Position{}, false
	}
	return *p, true
}

// Update runs fn on the stored position under the registry lock
func (r *Registry) Update(id string, fn func(p *models.Position)) (models.Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.positions[id]
	if !ok {
		return models.Position{}, false
	}
	fn(p)
	return *p, true
}

// BeginClose marks the position as closing. It returns false when the
// position is gone or a close is already in flight.
func (r *Registry) BeginClose(id string) (models.Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.positions[id]
	if !ok || p.Closing {
		return models.Position{}, false
	}
	p.Closing = true
	return *p, true
}

// EndClose clears the closing mark after a failed close
func (r *Registry) EndClose(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.positions[id]; ok {
		p.Closing = false
	}
}

// Remove deletes the position and returns its last state
func (r *Registry) Remove(id string) (models.Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.positions[id]
	if !ok {
		return models.Position{}, false
	}
	delete(r.positions, id)
	return *p, true
}

// List returns copies ordered by open time
func (r *Registry) List() []models.Position {
	r.mu.Lock()
	out := make([]models.Position, 0, len(r.positions))
	for _, p := range r.positions {
		out = append(out, *p)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenTime.Equal(out[j].OpenTime) {
			return out[i].ClientOrderID < out[j].ClientOrderID
		}
		return out[i].OpenTime.Before(out[j].OpenTime)
	})
	return out
}

// IDs returns the tracked client order ids in open order
func (r *Registry) IDs() []string {
	list := r.List()
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.ClientOrderID
	}
	return ids
}

// Count returns the number of open positions
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.positions)
}
