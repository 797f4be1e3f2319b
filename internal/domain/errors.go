package domain

import "errors"

var (
	// ErrServiceAuth signals rejected credentials at an external service.
	ErrServiceAuth = errors.New("service authentication failed")
	// ErrServiceTimeout signals an external call exceeding its deadline.
	ErrServiceTimeout = errors.New("service timeout")
	// ErrServiceUnreachable signals a transport-level connection failure.
	ErrServiceUnreachable = errors.New("service unreachable")
	// ErrServiceResponse signals a malformed or unexpected upstream payload.
	ErrServiceResponse = errors.New("unexpected service response")
)
