package oracle

import "fmt"

// ConfigError means the oracle is unusable as configured. A run must fail
// fast on this before starting any path.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("oracle configuration error: %s", e.Reason)
}

// ConnectionError means the decision call could not reach the oracle or the
// transport failed mid-flight. It terminates only the owning path.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("oracle connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError means the oracle answered but the response could not be
// interpreted as a decision at all. It terminates only the owning path.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("oracle protocol error: %s", e.Reason)
}
