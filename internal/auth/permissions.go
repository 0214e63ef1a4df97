package auth

// CanAccess decides whether a caller with the given role may invoke an
// operation restricted to the allowed roles. It is a pure function of its
// inputs (no I/O, no state) and returns ErrForbidden on deny.
//
// The role comes from verified token claims, so it reflects the role at
// the most recent token issuance, not a live directory lookup.
func CanAccess(role Role, allowed ...Role) error {
	for _, a := range allowed {
		if role == a {
			return nil
		}
	}
	return ErrForbidden
}
