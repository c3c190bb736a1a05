package esi

import "fmt"

// FetchError is the single failure type both fetchers surface: transport
// errors, timeouts, non-2xx statuses, and malformed bodies all end up here.
// There are no retries — a fetch either returns a full dataset or one of
// these.
type FetchError struct {
	Op  string // "price history" or "order book"
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
