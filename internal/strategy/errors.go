package strategy

import "fmt"

// ConfigError reports a strategy that cannot be built from its options.
type ConfigError struct {
	Strategy Kind  // Strategy is the requested strategy
	Err      error // Err is the underlying cause
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configure %s key material: %v", e.Strategy, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// GenerationError reports a failure while generating one item.
type GenerationError struct {
	Index    int   // Index is the failing item, or -1 for the shared key pair
	Strategy Kind  // Strategy is the strategy in use
	Err      error // Err is the underlying cause
}

func (e *GenerationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("generate shared %s key pair: %v", e.Strategy, e.Err)
	}

	return fmt.Sprintf("generate item %d with %s key material: %v", e.Index, e.Strategy, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
