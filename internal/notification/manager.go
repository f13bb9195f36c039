package notification

import (
	"fmt"
	"sync"
)

var (
	instance *Registry
	once     sync.Once
	mu       sync.RWMutex
)

// Initialize sets up the global channel registry instance.
func Initialize(registry *Registry) {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		instance = registry
	})
}

// GetRegistry returns the global channel registry, or nil before Initialize.
func GetRegistry() *Registry {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// SetRegistryForTesting allows installing a custom registry in tests only.
// It returns an error if the registry is already initialized.
func SetRegistryForTesting(registry *Registry) error {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		return fmt.Errorf("notification registry already initialized")
	}
	instance = registry
	return nil
}

// IsInitialized checks whether the registry has been initialized.
func IsInitialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return instance != nil
}
