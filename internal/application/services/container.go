package services

import (
	"sync"

	"github.com/ReOpAu/react-starter-kit-sub002/pkg/config"
	apperrors "github.com/ReOpAu/react-starter-kit-sub002/pkg/errors"
)

// Container holds the process-wide AddressSearchService
type Container struct {
	mu           sync.Mutex
	instance     *AddressSearchService
	initializing bool
	// closed when the in-flight construction finishes
	done    chan struct{}
	initErr error
}

var defaultContainer = NewContainer()

// NewContainer creates an empty container
func NewContainer() *Container {
	return &Container{}
}

// DefaultContainer returns the container shared by the whole process
func DefaultContainer() *Container {
	return defaultContainer
}

// Initialize constructs the service. Later calls return the existing
// instance together with STATE_ALREADY_INITIALIZED.
func (c *Container) Initialize(deps AddressSearchDeps, cfg config.OrchestratorConfig) (*AddressSearchService, error) {
	return c.initialize(deps, cfg, true)
}

// GetOrInitialize returns the existing instance or constructs it
func (c *Container) GetOrInitialize(deps AddressSearchDeps, cfg config.OrchestratorConfig) (*AddressSearchService, error) {
	return c.initialize(deps, cfg, false)
}

// Instance returns the service or STATE_MISSING_DEPENDENCY before
// initialization
func (c *Container) Instance() (*AddressSearchService, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.instance == nil {
		return nil, apperrors.New(apperrors.CodeStateMissingDependency, apperrors.ErrorContext{Missing: "address_search_service"})
	}
	return c.instance, nil
}

// Reset drops the instance
func (c *Container) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.instance = nil
	c.initializing = false
	c.initErr = nil
	c.done = nil
}

func (c *Container) initialize(deps AddressSearchDeps, cfg config.OrchestratorConfig, strict bool) (*AddressSearchService, error) {
	c.mu.Lock()
	if c.instance != nil {
		instance := c.instance
		c.mu.Unlock()
		if !strict {
			return instance, nil
		}
		instance.logger.Warn().Msg("address search service already initialized")
		return instance, apperrors.New(apperrors.CodeStateAlreadyInitialized, apperrors.ErrorContext{})
	}
	if c.initializing {
		if strict {
			c.mu.Unlock()
			return nil, apperrors.New(apperrors.CodeStateAlreadyInitialized, apperrors.ErrorContext{Actual: "initializing"})
		}
		done := c.done
		c.mu.Unlock()
		return c.wait(done)
	}
	done := make(chan struct{})
	c.initializing = true
	c.done = done
	c.initErr = nil
	c.mu.Unlock()

	svc, err := NewAddressSearchService(deps, cfg)
	c.complete(done, svc, err)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// complete publishes the outcome of a construction and releases waiters
func (c *Container) complete(done chan struct{}, svc *AddressSearchService, err error) {
	c.mu.Lock()
	if c.done == done {
		c.initializing = false
		c.initErr = err
		if err == nil {
			c.instance = svc
		}
	}
	c.mu.Unlock()
	close(done)
}

// wait blocks until the construction owning done finishes
func (c *Container) wait(done chan struct{}) (*AddressSearchService, error) {
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.instance != nil {
		return c.instance, nil
	}
	if c.initErr != nil {
		return nil, c.initErr
	}
	return nil, apperrors.New(apperrors.CodeStateMissingDependency, apperrors.ErrorContext{Missing: "address_search_service"})
}
