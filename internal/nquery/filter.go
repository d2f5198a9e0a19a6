package nquery

import (
	"strings"

	"github.com/sparkmeter/nquery/internal/nomad"
)

// matches reports whether stub, taken from the prefix listing, passes every filter in args.
// The agent already matched the prefix; it's checked again here, ignoring case, so that a listing
// that isn't strictly by prefix can't widen the result.
func (args *QueryArgs) matches(stub *nomad.JobStub) bool {
	return hasPrefixFold(stub.ID, args.Prefix) &&
		matchesMarker(args.Parameterized, stub.ParameterizedJob) &&
		matchesMarker(args.Periodic, stub.Periodic) &&
		args.matchesStatusAndType(stub)
}

// matchesStatusAndType applies the filters that also restrict dispatched jobs.
func (args *QueryArgs) matchesStatusAndType(stub *nomad.JobStub) bool {
	if args.Status != "" && !strings.EqualFold(args.Status, stub.Status) {
		return false
	}
	if args.Type != "" && !strings.EqualFold(args.Type, stub.Type) {
		return false
	}
	return true
}

// A nil want matches either value.
func matchesMarker(want *bool, marker nomad.Marker) bool {
	return want == nil || *want == bool(marker)
}

func hasPrefixFold(s string, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func jobKey(stub *nomad.JobStub) string {
	return stub.Namespace + "/" + stub.ID
}
