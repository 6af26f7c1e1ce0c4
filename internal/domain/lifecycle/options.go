package lifecycle

// Option applies a configuration option to the Guard.
type Option func(*Guard)

// WithApplied seeds the guard with references already consumed.
func WithApplied(s Set) Option {
	return func(g *Guard) {
		for key := range s {
			g.applied[key] = struct{}{}
		}
	}
}
