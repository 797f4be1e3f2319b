package health

import "context"

// StorePinger checks cache store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ConnectionTester checks an external service's reachability.
type ConnectionTester interface {
	TestConnection(ctx context.Context) (bool, string)
	Configured() bool
}
