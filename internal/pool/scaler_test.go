package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrei-cloud/kokorod/internal/engine"
)

func TestScalerGrowsToMinSpare(t *testing.T) {
	f := engine.NewMockFactory()
	cfg := testConfig("h")
	cfg.Pools["h"] = Sizing{MinSpare: 2, MaxSize: 4, IdleTTL: time.Minute}
	cfg.ScaleInterval = 15 * time.Millisecond
	m := newTestManager(t, cfg, f)
	m.Start()

	require.Eventually(t, func() bool {
		return m.Stats()["h"].Idle == 2
	}, 3*time.Second, 5*time.Millisecond)

	// Converged: no churn on subsequent ticks.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, f.Created())
	assert.Equal(t, 0, f.Destroyed())
	assert.Equal(t, 2, m.Stats()["h"].Idle)
}

func TestStartPrewarmsToInitial(t *testing.T) {
	f := engine.NewMockFactory()
	cfg := testConfig("h")
	cfg.Pools["h"] = Sizing{Initial: 3, MinSpare: 1, MaxSize: 4, IdleTTL: time.Minute}
	cfg.ScaleInterval = 15 * time.Millisecond
	m := newTestManager(t, cfg, f)
	m.Start()

	require.Eventually(t, func() bool {
		return m.Stats()["h"].Idle == 3
	}, 3*time.Second, 5*time.Millisecond)

	// Spares above min_spare are overshoot, not an error: nothing is
	// retired before idle_ttl.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 3, m.Stats()["h"].Idle)
	assert.Equal(t, 0, f.Destroyed())
}

func TestIdleTTLExpiresSpares(t *testing.T) {
	f := engine.NewMockFactory()
	cfg := testConfig("h")
	cfg.Pools["h"] = Sizing{Initial: 3, MinSpare: 1, MaxSize: 4, IdleTTL: 60 * time.Millisecond}
	cfg.ScaleInterval = 15 * time.Millisecond
	m := newTestManager(t, cfg, f)
	m.Start()

	require.Eventually(t, func() bool {
		return m.Stats()["h"].Idle == 3
	}, 3*time.Second, 5*time.Millisecond)

	// Aged spares above min_spare are retired.
	require.Eventually(t, func() bool {
		st := m.Stats()["h"]
		return st.Idle == 1 && f.Destroyed() == 2
	}, 3*time.Second, 5*time.Millisecond)

	// The min_spare floor holds no matter how old the survivor gets.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, m.Stats()["h"].Idle)
	assert.Equal(t, 2, f.Destroyed())
}

func TestIdleTTLZero(t *testing.T) {
	t.Run("expires immediately above floor", func(t *testing.T) {
		f := engine.NewMockFactory()
		cfg := testConfig("h")
		cfg.Pools["h"] = Sizing{Initial: 2, MinSpare: 0, MaxSize: 4, IdleTTL: 0}
		cfg.ScaleInterval = 15 * time.Millisecond
		m := newTestManager(t, cfg, f)
		m.Start()

		require.Eventually(t, func() bool {
			return f.Created() == 2 && f.Destroyed() == 2 && m.Stats()["h"].Idle == 0
		}, 3*time.Second, 5*time.Millisecond)
	})

	t.Run("min spare floor still holds", func(t *testing.T) {
		f := engine.NewMockFactory()
		cfg := testConfig("h")
		cfg.Pools["h"] = Sizing{Initial: 2, MinSpare: 2, MaxSize: 4, IdleTTL: 0}
		cfg.ScaleInterval = 15 * time.Millisecond
		m := newTestManager(t, cfg, f)
		m.Start()

		require.Eventually(t, func() bool {
			return m.Stats()["h"].Idle == 2
		}, 3*time.Second, 5*time.Millisecond)
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, 2, m.Stats()["h"].Idle)
		assert.Equal(t, 0, f.Destroyed())
	})
}

func TestScalerReplacesBrokenPipeline(t *testing.T) {
	f := engine.NewMockFactory()
	cfg := testConfig("h")
	cfg.Pools["h"] = Sizing{Initial: 1, MinSpare: 1, MaxSize: 4, IdleTTL: time.Minute}
	cfg.ScaleInterval = 15 * time.Millisecond
	m := newTestManager(t, cfg, f)
	m.Start()

	require.Eventually(t, func() bool {
		return m.Stats()["h"].Idle == 1
	}, 3*time.Second, 5*time.Millisecond)

	l, err := m.Acquire(context.Background(), "h")
	require.NoError(t, err)
	m.ReleaseBroken(l)

	require.Eventually(t, func() bool {
		return f.Destroyed() == 1 && m.Stats()["h"].Idle == 1
	}, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, f.Created())
}

func TestWarmupSemaphoreBoundsConcurrency(t *testing.T) {
	f := engine.NewMockFactory()
	f.InitDelay = 30 * time.Millisecond
	cfg := testConfig("h")
	cfg.Pools["h"] = Sizing{Initial: 6, MinSpare: 1, MaxSize: 8, IdleTTL: time.Minute}
	cfg.MaxConcurrentWarmups = 2
	cfg.ScaleInterval = 15 * time.Millisecond
	m := newTestManager(t, cfg, f)
	m.Start()

	require.Eventually(t, func() bool {
		return f.Created() == 6
	}, 5*time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, f.MaxConcurrentBuilds(), 2,
		"warmup semaphore must bound simultaneous model loads")
	assert.Equal(t, 6, m.Stats()["h"].Idle)
}
