package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/pkg/config"
	apperrors "github.com/ReOpAu/react-starter-kit-sub002/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeps(t *testing.T) AddressSearchDeps {
	env := newTestEnv(t)
	return AddressSearchDeps{
		Cache:  env.cache,
		States: env.states,
		Logger: zerolog.Nop(),
	}
}

func TestContainer_InstanceBeforeInitialize(t *testing.T) {
	c := NewContainer()

	_, err := c.Instance()
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStateMissingDependency))
}

func TestContainer_SecondInitializeReturnsExisting(t *testing.T) {
	c := NewContainer()
	deps := testDeps(t)
	cfg := config.DefaultOrchestratorConfig("test")

	first, err := c.Initialize(deps, cfg)
	require.NoError(t, err)

	second, err := c.Initialize(deps, cfg)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStateAlreadyInitialized))
	assert.Same(t, first, second)

	lazy, err := c.GetOrInitialize(deps, cfg)
	require.NoError(t, err)
	assert.Same(t, first, lazy)

	instance, err := c.Instance()
	require.NoError(t, err)
	assert.Same(t, first, instance)
}

func TestContainer_ConcurrentGetOrInitializeSharesInstance(t *testing.T) {
	c := NewContainer()
	deps := testDeps(t)
	cfg := config.DefaultOrchestratorConfig("test")

	first, err := c.GetOrInitialize(deps, cfg)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*AddressSearchService, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.GetOrInitialize(deps, cfg)
		}(i)
	}
	wg.Wait()

	for _, svc := range results {
		assert.Same(t, first, svc)
	}
}

// holdConstruction marks the container as mid-construction, the way the first
// caller leaves it while NewAddressSearchService runs
func holdConstruction(c *Container) chan struct{} {
	done := make(chan struct{})
	c.mu.Lock()
	c.initializing = true
	c.done = done
	c.mu.Unlock()
	return done
}

func TestContainer_GetOrInitializeWaitsForInFlightConstruction(t *testing.T) {
	c := NewContainer()
	deps := testDeps(t)
	cfg := config.DefaultOrchestratorConfig("test")
	done := holdConstruction(c)

	var (
		wg       sync.WaitGroup
		returned atomic.Int32
	)
	results := make([]*AddressSearchService, 8)
	errs := make([]error, len(results))
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrInitialize(deps, cfg)
			returned.Add(1)
		}(i)
	}

	assert.Never(t, func() bool { return returned.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	strict, err := c.Initialize(deps, cfg)
	assert.Nil(t, strict)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStateAlreadyInitialized))

	svc, err := NewAddressSearchService(deps, cfg)
	require.NoError(t, err)
	c.complete(done, svc, nil)
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Same(t, svc, results[i])
	}
	instance, err := c.Instance()
	require.NoError(t, err)
	assert.Same(t, svc, instance)
}

func TestContainer_GetOrInitializeSharesInFlightFailure(t *testing.T) {
	c := NewContainer()
	done := holdConstruction(c)

	cfg := config.DefaultOrchestratorConfig("test")

	result := make(chan error, 1)
	go func() {
		_, err := c.GetOrInitialize(AddressSearchDeps{}, cfg)
		result <- err
	}()
	assert.Never(t, func() bool { return len(result) > 0 }, 20*time.Millisecond, 5*time.Millisecond)

	c.complete(done, nil, apperrors.New(apperrors.CodeStateMissingDependency, apperrors.ErrorContext{Missing: "cache"}))

	select {
	case err := <-result:
		assert.True(t, apperrors.HasCode(err, apperrors.CodeStateMissingDependency))
	case <-time.After(time.Second):
		t.Fatal("GetOrInitialize did not return after construction failed")
	}

	svc, err := c.GetOrInitialize(testDeps(t), cfg)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestContainer_FailedInitializeCanBeRetried(t *testing.T) {
	c := NewContainer()

	_, err := c.Initialize(AddressSearchDeps{}, config.DefaultOrchestratorConfig("test"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStateMissingDependency))

	svc, err := c.Initialize(testDeps(t), config.DefaultOrchestratorConfig("test"))
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestContainer_Reset(t *testing.T) {
	c := NewContainer()
	_, err := c.Initialize(testDeps(t), config.DefaultOrchestratorConfig("test"))
	require.NoError(t, err)

	c.Reset()
	_, err = c.Instance()
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStateMissingDependency))
}
