package history

import (
	"context"
	"sync"
)

// Registry hands out one history facade per user, created lazily on
// first use
type Registry struct {
	workouts   workoutsRepo
	activities activitiesRepo
	analyzer   *Analyzer

	mutex    sync.Mutex
	services map[int]*Service
}

func NewRegistry(workouts workoutsRepo, activities activitiesRepo, analyzer *Analyzer) *Registry {
	return &Registry{
		workouts:   workouts,
		activities: activities,
		analyzer:   analyzer,
		services:   map[int]*Service{},
	}
}

func (r *Registry) ForUser(userID int) *Service {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if service, ok := r.services[userID]; ok {
		return service
	}

	service := NewService(userID, r.workouts, r.activities, r.analyzer)
	r.services[userID] = service
	return service
}

// RefreshUser refreshes the user's facade, creating it if needed
func (r *Registry) RefreshUser(ctx context.Context, userID int) error {
	return r.ForUser(userID).Refresh(ctx)
}

// Close tears down all facades
func (r *Registry) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, service := range r.services {
		service.Close()
	}
	r.services = map[int]*Service{}
}
