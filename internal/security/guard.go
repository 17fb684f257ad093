package security

import "sync/atomic"

// Guard holds the active Validator and lets the policy be replaced while
// commands are being checked.
type Guard struct {
	current atomic.Pointer[Validator]
}

// NewGuard starts with v.
func NewGuard(v *Validator) *Guard {
	g := &Guard{}
	g.current.Store(v)
	return g
}

// Validate checks command against the current policy.
func (g *Guard) Validate(command string) Decision {
	return g.current.Load().Validate(command)
}

// Swap installs v for subsequent checks.
func (g *Guard) Swap(v *Validator) {
	g.current.Store(v)
}
