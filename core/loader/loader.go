package loader

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Feature is a self-contained application module that registers its own routes.
type Feature interface {
	// Name returns a short identifier used in logs.
	Name() string
	// IsEnabled reports whether the feature should be loaded.
	IsEnabled() bool
	// Load registers routes and starts any background tasks.
	Load(app fiber.Router) error
}

// Stopper is implemented by features that run background tasks.
type Stopper interface {
	Stop()
}

// Manager holds the registry of available features.
type Manager struct {
	features []Feature
}

// NewManager creates an empty feature manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a feature to the registry.
func (m *Manager) Register(f Feature) {
	m.features = append(m.features, f)
}

// LoadAll loads every enabled feature into the Fiber app.
func (m *Manager) LoadAll(app fiber.Router) error {
	for _, f := range m.features {
		if !f.IsEnabled() {
			continue
		}
		if err := f.Load(app); err != nil {
			return fmt.Errorf("failed to load feature %s: %w", f.Name(), err)
		}
	}
	return nil
}

// StopAll stops every feature that runs background tasks.
// Called during graceful shutdown, in registration order.
func (m *Manager) StopAll() {
	for _, f := range m.features {
		if s, ok := f.(Stopper); ok {
			s.Stop()
		}
	}
}
