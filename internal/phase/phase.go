// Package phase holds the static catalogue of delivery phases and the rule
// that maps a scope to the ordered subset of phases it includes.
//
// The catalogue is immutable: phase order is fixed at compile time and every
// scope is a prefix of that order, so narrower scopes are always contained in
// wider ones with relative order preserved.
package phase

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Phase identifies one stage of the delivery sequence. The zero value means
// "no phase".
type Phase string

const (
	None            Phase = ""
	Contract        Phase = "contract"
	Policy          Phase = "policy"
	Frontend        Phase = "frontend"
	ServerCore      Phase = "server-core"
	ServerImplement Phase = "server-implement"
	Infra           Phase = "infra"
	E2E             Phase = "e2e"
)

// String returns the phase identifier
func (p Phase) String() string {
	return string(p)
}

// Mode is an optional execution hint attached to a phase.
type Mode string

const (
	ModeNone       Mode = ""
	ModeParallel   Mode = "parallel"
	ModeSequential Mode = "sequential"
)

// Info holds catalogue metadata about a phase
type Info struct {
	Phase   Phase
	Name    string
	Runbook string // Runbook identifier (filename without extension)
	Mode    Mode
	// Known is false for the fallback entries Lookup builds.
	Known bool
}

// Order is the total order of all phases.
var Order = []Phase{
	Contract,
	Policy,
	Frontend,
	ServerCore,
	ServerImplement,
	Infra,
	E2E,
}

// Registry maps phases to their metadata
var Registry = map[Phase]Info{
	Contract: {
		Phase:   Contract,
		Name:    "API Contract",
		Runbook: "01-contract",
		Known:   true,
	},
	Policy: {
		Phase:   Policy,
		Name:    "Domain Policy",
		Runbook: "02-policy",
		Known:   true,
	},
	Frontend: {
		Phase:   Frontend,
		Name:    "Frontend",
		Runbook: "03-frontend",
		Mode:    ModeParallel,
		Known:   true,
	},
	ServerCore: {
		Phase:   ServerCore,
		Name:    "Server Core",
		Runbook: "04-server-core",
		Known:   true,
	},
	ServerImplement: {
		Phase:   ServerImplement,
		Name:    "Server Implementation",
		Runbook: "05-server-implement",
		Mode:    ModeParallel,
		Known:   true,
	},
	Infra: {
		Phase:   Infra,
		Name:    "Infrastructure",
		Runbook: "06-infra",
		Known:   true,
	},
	E2E: {
		Phase:   E2E,
		Name:    "End-to-End Tests",
		Runbook: "07-e2e",
		Mode:    ModeSequential,
		Known:   true,
	},
}

// Errors returned when parsing caller-supplied tags.
var (
	ErrUnknownPhase = errors.New("unknown phase")
	ErrUnknownScope = errors.New("unknown scope")
)

// Parse validates a phase identifier. The empty string parses to None.
func Parse(s string) (Phase, error) {
	p := Phase(strings.TrimSpace(s))
	if p == None {
		return None, nil
	}
	if _, ok := Registry[p]; !ok {
		return None, fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownPhase, s, joinPhases(Order))
	}
	return p, nil
}

// Lookup returns the catalogue entry for a phase. Unregistered identifiers
// get a fallback entry whose name is derived from the raw identifier, so
// presenters never fail on a stray tag.
func Lookup(p Phase) Info {
	if info, ok := Registry[p]; ok {
		return info
	}
	return Info{Phase: p, Name: DisplayName(p)}
}

// DisplayName returns the human name for a phase, title-casing unknown
// identifiers ("data-migration" -> "Data Migration").
func DisplayName(p Phase) string {
	if info, ok := Registry[p]; ok {
		return info.Name
	}
	if p == None {
		return "none"
	}
	words := strings.ReplaceAll(string(p), "-", " ")
	return cases.Title(language.English).String(words)
}

// Index returns the position of p in Order, or -1.
func Index(p Phase) int {
	for i, o := range Order {
		if o == p {
			return i
		}
	}
	return -1
}

func joinPhases(phases []Phase) string {
	parts := make([]string, len(phases))
	for i, p := range phases {
		parts[i] = string(p)
	}
	return strings.Join(parts, ", ")
}
