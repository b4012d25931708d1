// pkg/fetcher/errors.go
package fetcher

import "fmt"

// FetchExhaustedError means every retry attempt against the upstream
// board API failed. It is the only fatal failure class in the pipeline:
// with no data there is nothing to repair or caveat around.
type FetchExhaustedError struct {
	Board    string
	Attempts int
	Err      error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("fetch exhausted after %d attempt(s) for board %s: %v",
		e.Attempts, e.Board, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error {
	return e.Err
}
