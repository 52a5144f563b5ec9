package engine

import (
	"sync"

	"github.com/examina/examina-backend/internal/backend"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Registry hands out one Controller per user. Controllers live for as long
// as the process does; a completed controller is replaced lazily when the
// user starts the next exam.
type Registry struct {
	mu          sync.Mutex
	backend     backend.Backend
	log         zerolog.Logger
	controllers map[uuid.UUID]*Controller
}

func NewRegistry(b backend.Backend, log zerolog.Logger) *Registry {
	return &Registry{
		backend:     b,
		log:         log,
		controllers: make(map[uuid.UUID]*Controller),
	}
}

// For returns the user's controller, creating an idle one on first use.
func (r *Registry) For(userID uuid.UUID) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[userID]; ok {
		return c
	}
	c := NewController(r.backend, r.log)
	r.controllers[userID] = c
	return c
}

// Release resets and drops the user's controller, such as on logout.
func (r *Registry) Release(userID uuid.UUID) {
	r.mu.Lock()
	c, ok := r.controllers[userID]
	delete(r.controllers, userID)
	r.mu.Unlock()

	if ok {
		c.Reset()
	}
}

// Shutdown cancels every live timer. Called on process exit.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.controllers {
		c.Reset()
	}
	r.controllers = make(map[uuid.UUID]*Controller)
}
