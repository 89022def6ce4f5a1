package reconcile

import "fmt"

// ProviderError reports a failed embedding request for one document
type ProviderError struct {
	Identity string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding %s: %v", e.Identity, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StoreError reports a failed store call. Identity is empty for calls that
// are not about a single document (schema setup, listing, flushing).
type StoreError struct {
	Op       string
	Identity string
	Err      error
}

func (e *StoreError) Error() string {
	if e.Identity == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Identity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
