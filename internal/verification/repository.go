package verification

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository stores properties under verification and their history.
type Repository interface {
	ListProperties(ctx context.Context) ([]*Property, error)
	// GetProperty returns nil, nil when the property does not exist.
	GetProperty(ctx context.Context, id int64) (*Property, error)
	// CreateProperty assigns an id when p.ID is zero and defaults a new
	// listing to PENDING with an empty checklist.
	CreateProperty(ctx context.Context, p *Property) error
	// UpdateProperty and DeleteProperty return ErrPropertyNotFound for unknown ids.
	UpdateProperty(ctx context.Context, p *Property) error
	DeleteProperty(ctx context.Context, id int64) error

	AppendEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, propertyID int64) ([]Event, error)
}

// memoryRepository keeps everything in process. Writes replace the whole
// record, so concurrent transitions on one property resolve as last write wins.
type memoryRepository struct {
	mu         sync.RWMutex
	properties map[int64]*Property
	events     map[int64][]Event
	nextID     int64
}

// NewMemoryRepository returns an empty in-process store.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		properties: make(map[int64]*Property),
		events:     make(map[int64][]Event),
	}
}

// NewSeededMemoryRepository returns an in-process store holding the sample listings.
func NewSeededMemoryRepository() Repository {
	repo := &memoryRepository{
		properties: make(map[int64]*Property),
		events:     make(map[int64][]Event),
	}
	for _, p := range SampleProperties() {
		repo.properties[p.ID] = p
		if p.ID > repo.nextID {
			repo.nextID = p.ID
		}
	}
	return repo
}

func (r *memoryRepository) ListProperties(ctx context.Context) ([]*Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Property, 0, len(r.properties))
	for _, p := range r.properties {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepository) GetProperty(ctx context.Context, id int64) (*Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.properties[id]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (r *memoryRepository) CreateProperty(ctx context.Context, p *Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.prepareNew(time.Now().UTC())
	if p.ID == 0 {
		r.nextID++
		p.ID = r.nextID
	} else if p.ID > r.nextID {
		r.nextID = p.ID
	}
	r.properties[p.ID] = p.Clone()
	return nil
}

func (r *memoryRepository) UpdateProperty(ctx context.Context, p *Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.properties[p.ID]; !ok {
		return ErrPropertyNotFound
	}
	r.properties[p.ID] = p.Clone()
	return nil
}

func (r *memoryRepository) DeleteProperty(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.properties[id]; !ok {
		return ErrPropertyNotFound
	}
	delete(r.properties, id)
	delete(r.events, id)
	return nil
}

func (r *memoryRepository) AppendEvent(ctx context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[e.PropertyID] = append(r.events[e.PropertyID], *e)
	return nil
}

func (r *memoryRepository) ListEvents(ctx context.Context, propertyID int64) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[propertyID]
	out := make([]Event, len(events))
	copy(out, events)
	return out, nil
}
