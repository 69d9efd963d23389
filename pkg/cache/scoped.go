package cache

// ScopedKeyer wraps a Keyer with a prefix so independent contexts (per
// project, per user) keep separate cache namespaces in one store.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. The prefix is prepended to
// all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ScoreKey generates a prefixed score content key.
func (k *ScopedKeyer) ScoreKey(content []byte) string {
	return k.prefix + k.inner.ScoreKey(content)
}

// PlanKey generates a prefixed plan key.
func (k *ScopedKeyer) PlanKey(scoreHash string, opts PlanKeyOpts) string {
	return k.prefix + k.inner.PlanKey(scoreHash, opts)
}
