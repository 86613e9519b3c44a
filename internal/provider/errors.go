package provider

import "fmt"

// ProviderError is a structured failure reported by the model service itself:
// rate limits, server faults, invalid requests. Recoverable at the session
// layer, which degrades it into a synthetic response unless configured to raise.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when the provider did not attach an HTTP status
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s provider error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient: rate limiting,
// overload, or a server-side fault.
func (e *ProviderError) Retryable() bool {
	switch e.StatusCode {
	case 429, 500, 502, 503, 504, 529:
		return true
	}
	return false
}

// TransportError is a network-layer failure: connection reset, timeout,
// a stream cut off mid-response. Recoverable the same way as ProviderError.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
