package rrouter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/rrouter/config"
	"github.com/hupe1980/rrouter/core"
	"github.com/hupe1980/rrouter/internal/testutil"
	"github.com/hupe1980/rrouter/metrics"
	"github.com/hupe1980/rrouter/policy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type card = testutil.LoginCard

var admin = card{User: "admin", Pass: "root"}

func loginConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Parse([]byte(`
error_message: login failed
pool:
  size: 2
operations:
  login:
    policy: race_local_and_remote
  refresh:
    policy: fallback_local_then_remote
    timeout: 20ms
`))
	require.NoError(t, err)

	return cfg
}

func newRouter(t *testing.T, optFns ...func(o *Options)) *Router {
	t.Helper()

	r, err := New(optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	return r
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(func(o *Options) {
		o.Config = &config.Config{Logging: config.Logging{Level: "info", Format: "xml"}}
	})
	assert.Error(t, err)

	_, err = New(func(o *Options) { o.Registry = nil })
	assert.Error(t, err)
}

func TestKind(t *testing.T) {
	r := newRouter(t, func(o *Options) { o.Config = loginConfig(t) })

	kind, err := r.Kind("login")
	require.NoError(t, err)
	assert.Equal(t, policy.RaceLocalAndRemote, kind)

	kind, err = r.Kind("only_remote")
	require.NoError(t, err)
	assert.Equal(t, policy.OnlyRemote, kind)

	_, err = r.Kind("logout")
	assert.ErrorIs(t, err, config.ErrUnknownOperation)
}

func TestDo_LoginRace(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := newRouter(t, func(o *Options) {
		o.Config = loginConfig(t)
		o.Registerer = reg
	})

	local := Leaf(r, "login", core.StepLocal, func(context.Context, card) (string, error) {
		return "token-1", nil
	})
	remote := Leaf(r, "login", core.StepRemote, func(ctx context.Context, _ card) (string, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return "", errors.New("bad creds")
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	token, err := Do(context.Background(), r, "login", map[core.StepID]core.Strategy[card, string]{
		core.StepLocal:  local,
		core.StepRemote: remote,
	}, admin)

	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	local.Wait()
	remote.Wait()

	assert.InDelta(t, 1, promtest.ToFloat64(r.Metrics().Deliveries.WithLabelValues("login", metrics.OutcomeSuccess)), 0)
}

func TestDo_Failure(t *testing.T) {
	r := newRouter(t, func(o *Options) { o.Config = loginConfig(t) })

	_, err := Do(context.Background(), r, "login", map[core.StepID]core.Strategy[card, string]{
		core.StepLocal:  testutil.Failing[card, string]("miss"),
		core.StepRemote: testutil.Failing[card, string]("bad creds"),
	}, admin)

	require.ErrorIs(t, err, ErrFailed)

	var fe *FailureError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "login", fe.Operation)
	assert.Equal(t, "bad creds", fe.Message)
}

func TestDo_ConfiguredTimeout(t *testing.T) {
	r := newRouter(t, func(o *Options) { o.Config = loginConfig(t) })

	slow := func(ctx context.Context, _ card) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	local := Leaf(r, "refresh", core.StepLocal, slow)
	remote := Leaf(r, "refresh", core.StepRemote, slow)

	_, err := Do(context.Background(), r, "refresh", map[core.StepID]core.Strategy[card, string]{
		core.StepLocal:  local,
		core.StepRemote: remote,
	}, admin)

	var fe *FailureError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, context.DeadlineExceeded.Error(), fe.Message)

	local.Wait()
	remote.Wait()
}

func TestDo_ContextDeadline(t *testing.T) {
	r := newRouter(t)

	leaf := Leaf(r, "only_local", core.StepLocal, func(ctx context.Context, _ card) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Do(ctx, r, "only_local", map[core.StepID]core.Strategy[card, string]{core.StepLocal: leaf}, admin)

	assert.True(t, errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrFailed), err)
	leaf.Wait()
}

func TestDo_UnknownOperation(t *testing.T) {
	r := newRouter(t)

	_, err := Do(context.Background(), r, "logout", map[core.StepID]core.Strategy[card, string]{
		core.StepLocal: testutil.Succeeding[card]("x"),
	}, admin)

	assert.ErrorIs(t, err, config.ErrUnknownOperation)
}

func TestNewProxy_ClosedByRouter(t *testing.T) {
	r, err := New(func(o *Options) { o.Config = loginConfig(t) })
	require.NoError(t, err)

	local := testutil.NewLeaf[card, string]()
	rec := testutil.NewRecorder[string]()

	p, err := NewProxy(r, "login", map[core.StepID]core.Strategy[card, string]{core.StepLocal: local}, core.Callback[string](rec))
	require.NoError(t, err)

	p.Request(admin)
	require.Equal(t, 1, local.Starts())
	assert.Equal(t, "login", p.State().Name)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	assert.True(t, p.State().Destroyed)
	assert.True(t, local.Destroyed())

	local.Succeed(0, "late")
	assert.Zero(t, rec.Count())

	_, err = NewProxy(r, "login", map[core.StepID]core.Strategy[card, string]{core.StepLocal: local}, core.Callback[string](rec))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewProxy_ErrorMessageFromConfig(t *testing.T) {
	r := newRouter(t, func(o *Options) { o.Config = loginConfig(t) })
	rec := testutil.NewRecorder[string]()

	p, err := NewProxy(r, "refresh", map[core.StepID]core.Strategy[card, string]{
		core.StepID(7): testutil.Succeeding[card]("unused"),
	}, core.Callback[string](rec))
	require.NoError(t, err)

	p.Request(admin)

	assert.Equal(t, []string{"login failed"}, rec.Failures())
}

func guardedConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Parse([]byte(`
operations:
  verify:
    policy: only_remote
    breaker:
      max_failures: 2
      open_timeout: 1m
  throttled:
    policy: only_remote
    rate_limit: 0.001
`))
	require.NoError(t, err)

	return cfg
}

func TestLeaf_BreakerSharedAcrossLeaves(t *testing.T) {
	r := newRouter(t, func(o *Options) { o.Config = guardedConfig(t) })

	var calls atomic.Int32

	var messages []string

	for i := 0; i < 4; i++ {
		remote := Leaf(r, "verify", core.StepRemote, func(context.Context, card) (string, error) {
			calls.Add(1)
			return "", errors.New("backend down")
		})

		_, err := Do(context.Background(), r, "verify", map[core.StepID]core.Strategy[card, string]{
			core.StepRemote: remote,
		}, admin)
		remote.Wait()

		var fe *FailureError
		require.ErrorAs(t, err, &fe)
		messages = append(messages, fe.Message)
	}

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{
		"backend down",
		"backend down",
		gobreaker.ErrOpenState.Error(),
		gobreaker.ErrOpenState.Error(),
	}, messages)
}

func TestLeaf_BreakerPerStep(t *testing.T) {
	r := newRouter(t, func(o *Options) { o.Config = guardedConfig(t) })

	for i := 0; i < 2; i++ {
		remote := Leaf(r, "verify", core.StepRemote, func(context.Context, card) (string, error) {
			return "", errors.New("backend down")
		})
		_, err := Do(context.Background(), r, "verify", map[core.StepID]core.Strategy[card, string]{
			core.StepRemote: remote,
		}, admin)
		remote.Wait()
		require.ErrorIs(t, err, ErrFailed)
	}

	local := Leaf(r, "verify", core.StepLocal, func(context.Context, card) (string, error) {
		return "token-1", nil
	})
	t.Cleanup(local.Wait)

	_, err := Do(context.Background(), r, "only_local", map[core.StepID]core.Strategy[card, string]{
		core.StepLocal: local,
	}, admin)
	require.NoError(t, err)
}

func TestLeaf_RateLimitSharedAcrossLeaves(t *testing.T) {
	r := newRouter(t, func(o *Options) { o.Config = guardedConfig(t) })

	var calls atomic.Int32

	run := func() error {
		remote := Leaf(r, "throttled", core.StepRemote, func(context.Context, card) (string, error) {
			calls.Add(1)
			return "token-2", nil
		})
		defer remote.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_, err := Do(ctx, r, "throttled", map[core.StepID]core.Strategy[card, string]{
			core.StepRemote: remote,
		}, admin)

		return err
	}

	require.NoError(t, run())

	// the single token is spent; the next wait would outlast the deadline
	err := run()
	require.ErrorIs(t, err, ErrFailed)
	assert.Equal(t, int32(1), calls.Load())
}
