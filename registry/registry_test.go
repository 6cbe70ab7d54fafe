package registry

import (
	"sync"
	"testing"

	"github.com/hupe1980/rrouter/core"
	"github.com/hupe1980/rrouter/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, ErrEmptyRegistry)
	})

	t.Run("nil handler", func(t *testing.T) {
		_, err := New(map[policy.Kind]policy.Handler{policy.OnlyLocal: nil})
		assert.ErrorIs(t, err, ErrNilHandler)
	})

	t.Run("copies input", func(t *testing.T) {
		in := map[policy.Kind]policy.Handler{policy.OnlyLocal: policy.NewSequential(core.StepLocal)}
		m, err := New(in)
		require.NoError(t, err)

		delete(in, policy.OnlyLocal)

		_, ok := m.Resolve(policy.OnlyLocal)
		assert.True(t, ok)
		_, ok = m.Resolve(policy.OnlyRemote)
		assert.False(t, ok)
	})
}

func TestBuiltin(t *testing.T) {
	m := Builtin()
	assert.Equal(t, policy.Kinds(), m.Kinds())

	for _, k := range policy.Kinds() {
		h, ok := m.Resolve(k)
		require.True(t, ok, k.String())
		assert.Equal(t, k.Steps(), h.Steps())
	}

	_, ok := m.Resolve(policy.Kind(99))
	assert.False(t, ok)
}

func TestWith(t *testing.T) {
	base := Builtin()
	custom := policy.NewSequential(core.StepID(3), core.StepRemote)

	m, err := base.With(policy.Kind(10), custom)
	require.NoError(t, err)

	h, ok := m.Resolve(policy.Kind(10))
	require.True(t, ok)
	assert.Same(t, custom, h)

	_, ok = base.Resolve(policy.Kind(10))
	assert.False(t, ok, "original registry is unchanged")

	_, err = base.With(policy.OnlyLocal, nil)
	assert.ErrorIs(t, err, ErrNilHandler)
}

func TestNilMapResolve(t *testing.T) {
	var m *Map
	_, ok := m.Resolve(policy.OnlyLocal)
	assert.False(t, ok)
}

func TestDefault(t *testing.T) {
	resetDefault()
	t.Cleanup(resetDefault)

	_, err := Default()
	assert.ErrorIs(t, err, ErrNotInstalled)

	assert.ErrorIs(t, Install(nil), ErrNilRegistry)

	require.NoError(t, Install(Builtin()))
	assert.ErrorIs(t, Install(Builtin()), ErrAlreadyInstalled)

	r, err := Default()
	require.NoError(t, err)
	_, ok := r.Resolve(policy.RaceLocalAndRemote)
	assert.True(t, ok)
}

func TestDefault_ConcurrentInstall(t *testing.T) {
	resetDefault()
	t.Cleanup(resetDefault)

	const n = 16

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if Install(Builtin()) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, wins)
}
