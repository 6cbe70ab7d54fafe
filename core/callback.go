package core

// Callback receives the single terminal result of a request.
type Callback[R any] interface {
	OnSuccess(result R)
	OnFailure(message string)
}

// CallbackFuncs adapts plain functions to the Callback interface.
// Nil functions are ignored.
type CallbackFuncs[R any] struct {
	Success func(result R)
	Failure func(message string)
}

// OnSuccess implements Callback.
func (f CallbackFuncs[R]) OnSuccess(result R) {
	if f.Success != nil {
		f.Success(result)
	}
}

// OnFailure implements Callback.
func (f CallbackFuncs[R]) OnFailure(message string) {
	if f.Failure != nil {
		f.Failure(message)
	}
}
