package kvstore

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// Stores call them on hot paths.
type Hooks interface {
	// A key or value could not be encoded or decoded.
	// op ∈ {"get", "set"}, part ∈ {"key", "value", "prior"}
	CodecFailure(op, part string, err error)

	// The wrapped backend failed (closed, cancelled, I/O).
	BackendFailure(op string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) CodecFailure(string, string, error) {}
func (NopHooks) BackendFailure(string, error)       {}
