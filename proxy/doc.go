// Package proxy implements the Request Proxy, the component that owns one
// logical operation's lifecycle.
//
// A Proxy is bound to a policy kind, a set of leaf strategies keyed by step
// and a terminal callback. Every Request either coalesces into an identical
// operation that is still running, or supersedes the previous operation and
// dispatches a new one. Leaf completions are normalized by a converter,
// merged by the policy handler and eventually produce exactly one callback
// invocation per request that was not superseded.
//
// Concurrency Model:
//   - One mutex per Proxy linearizes dispatch, merge, reset and destroy
//   - Leaf Start calls and callback invocations run after the mutex is
//     released, so leaves may report synchronously and callbacks may call
//     Request again
//   - Every request generation gets its own context; reports carrying an
//     older generation are dropped as stale
//
// Example:
//
//	p, err := proxy.New(policy.RaceLocalAndRemote,
//	    map[core.StepID]core.Strategy[Login, Token]{
//	        core.StepLocal:  cacheLeaf,
//	        core.StepRemote: apiLeaf,
//	    },
//	    core.CallbackFuncs[Token]{Success: onToken, Failure: onError},
//	    proxy.WithRegistry(registry.Builtin()),
//	)
//	if err != nil {
//	    return err
//	}
//	defer p.Destroy()
//
//	p.Request(Login{User: "admin", Pass: "root"})
package proxy
