package tap

import "fmt"

// Result is the outcome of running an action: either a value or an error.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the action succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Run calls action and captures its return values. A panic is converted
// into an error so a single broken check cannot abort a test run.
func Run[T any](action func() (T, error)) (res Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			res = Result[T]{Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	value, err := action()
	return Result[T]{Value: value, Err: err}
}
