package phase

import (
	"fmt"
	"strings"
)

// Scope names how much of the delivery sequence a plan executes.
type Scope string

const (
	ScopePolicy     Scope = "policy"
	ScopeFrontend   Scope = "frontend"
	ScopeServerCore Scope = "server-core"
	ScopeFull       Scope = "full"
)

// DefaultScope is used when a plan is registered without a scope.
const DefaultScope = ScopeFull

// String returns the scope identifier
func (s Scope) String() string {
	return string(s)
}

// scopeLast is the last phase each scope includes; membership is the prefix
// of Order ending there.
var scopeLast = map[Scope]Phase{
	ScopePolicy:     Policy,
	ScopeFrontend:   Frontend,
	ScopeServerCore: ServerCore,
	ScopeFull:       E2E,
}

// Scopes lists all scopes from narrowest to widest.
var Scopes = []Scope{ScopePolicy, ScopeFrontend, ScopeServerCore, ScopeFull}

// ParseScope validates a scope identifier. The empty string yields
// DefaultScope.
func ParseScope(s string) (Scope, error) {
	sc := Scope(strings.TrimSpace(s))
	if sc == "" {
		return DefaultScope, nil
	}
	if _, ok := scopeLast[sc]; !ok {
		names := make([]string, len(Scopes))
		for i, v := range Scopes {
			names[i] = string(v)
		}
		return "", fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownScope, s, strings.Join(names, ", "))
	}
	return sc, nil
}

// ForScope returns the ordered phases a scope includes. Unknown scopes
// include nothing.
func ForScope(s Scope) []Phase {
	last, ok := scopeLast[s]
	if !ok {
		return nil
	}
	end := Index(last)
	out := make([]Phase, end+1)
	copy(out, Order[:end+1])
	return out
}

// InScope reports whether p belongs to scope s
func InScope(p Phase, s Scope) bool {
	for _, q := range ForScope(s) {
		if q == p {
			return true
		}
	}
	return false
}

// First returns the first phase of a scope, or None for an empty scope.
func First(s Scope) Phase {
	return Next(None, s)
}

// Next returns the phase following current within scope s. A None current
// yields the first phase of the scope; the last phase of the scope, or a
// phase outside it, yields None.
func Next(current Phase, s Scope) Phase {
	phases := ForScope(s)
	if len(phases) == 0 {
		return None
	}
	if current == None {
		return phases[0]
	}
	for i, p := range phases {
		if p == current {
			if i+1 < len(phases) {
				return phases[i+1]
			}
			return None
		}
	}
	return None
}
