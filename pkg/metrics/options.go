package metrics

// settings holds construction-time configuration for a Manager.
type settings struct {
	namespace string
}

// Option applies a configuration option when building a Manager.
type Option func(*settings)

// WithNamespace overrides the metric namespace.
func WithNamespace(ns string) Option {
	return func(s *settings) {
		if ns != "" {
			s.namespace = ns
		}
	}
}
