package command

// Scope is where an enable/disable/reset directive applies.
type Scope string

const (
	// ScopeThisRunner applies to the build step currently running.
	ScopeThisRunner Scope = "runner"

	// ScopeNextRunner applies from the next build step on, for that step only.
	ScopeNextRunner Scope = "next-runner"

	// ScopeBuild applies until the build finishes.
	ScopeBuild Scope = "build"
)

// DefaultScope is used when a message carries no (or an unknown) scope.
const DefaultScope = ScopeThisRunner

var scopes = []Scope{ScopeThisRunner, ScopeNextRunner, ScopeBuild}

// Scopes returns all scopes in declaration order.
func Scopes() []Scope {
	out := make([]Scope, len(scopes))
	copy(out, scopes)
	return out
}

// ResolveScope maps a raw attribute value to a Scope. The comparison is
// exact and case-sensitive; anything unrecognised yields def.
func ResolveScope(raw string, def Scope) Scope {
	for _, s := range scopes {
		if string(s) == raw {
			return s
		}
	}
	return def
}

// String implements fmt.Stringer.
func (s Scope) String() string { return string(s) }
