package ruleengine

import (
	"fmt"
	"net/netip"

	"github.com/rafaeljc/mimir/internal/strategy"
)

// addressData is the compiled form of the remoteAddress strategy.
type addressData struct {
	exact    map[string]struct{}
	prefixes []netip.Prefix
}

// RemoteAddressEvaluator implements the remoteAddress strategy: the context
// address must equal a listed address or fall inside a listed CIDR range.
type RemoteAddressEvaluator struct{}

func (e *RemoteAddressEvaluator) Eval(data any, input EvaluationInput) (bool, error) {
	d, ok := data.(addressData)
	if !ok {
		return false, fmt.Errorf("invalid strategy data type: expected addressData, got %T", data)
	}

	raw, ok := input.Value(strategy.FieldRemoteAddress)
	if !ok {
		return false, nil
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		// Malformed addresses never match.
		return false, nil
	}
	addr = addr.Unmap()

	if _, found := d.exact[addr.String()]; found {
		return true, nil
	}
	for _, p := range d.prefixes {
		if p.Contains(addr) {
			return true, nil
		}
	}
	return false, nil
}
