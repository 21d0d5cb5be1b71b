package gate

// Decision is the outcome of a policy check. Reason explains a denial and is
// meant to be surfaced to the caller.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow returns a positive decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny returns a negative decision with the given reason.
func Deny(reason string) Decision { return Decision{Reason: reason} }

// Err returns nil when allowed and a *DeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}
