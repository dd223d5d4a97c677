package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_SingletonAcrossConcurrentAccess(t *testing.T) {
	reset()
	defer reset()

	const n = 50
	results := make([]interface{}, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = EventBus()
		}(i)
	}
	wg.Wait()

	first := results[0]
	for _, r := range results {
		assert.Same(t, first, r)
	}
}

func TestMessageLog_ConstructsEventBusDependency(t *testing.T) {
	reset()
	defer reset()

	l := MessageLog()
	require.NotNil(t, l)
	assert.Same(t, EventBus(), EventBus())
}

func TestConfigureEventBus_PanicsAfterConstruction(t *testing.T) {
	reset()
	defer reset()

	EventBus()
	assert.Panics(t, func() {
		ConfigureEventBus()
	})
}

func TestGuard_PoisonedAfterPanicPropagatesOnNextUse(t *testing.T) {
	g := NewGuard(0)

	assert.Panics(t, func() {
		g.With(func(v *int) { panic("boom") })
	})

	assert.PanicsWithValue(t, "registry: guard is poisoned, a prior holder panicked while holding it", func() {
		g.With(func(v *int) { *v = 1 })
	})
}

func TestGuard_MutatesUnderExclusion(t *testing.T) {
	g := NewGuard(0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.With(func(v *int) { *v++ })
		}()
	}
	wg.Wait()

	var final int
	g.With(func(v *int) { final = *v })
	assert.Equal(t, 100, final)
}
