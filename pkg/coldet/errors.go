package coldet

import "errors"

// Collision errors.
var (
	// ErrInconsistency reports a usage-order violation: querying a mesh that was
	// never finalized, adding triangles after Finalize, or finalizing twice.
	ErrInconsistency = errors.New("coldet: inconsistent mesh state")

	// ErrTimeout reports that CollidesWith ran out of its time budget before
	// reaching a definitive answer.
	ErrTimeout = errors.New("coldet: collision time budget exceeded")
)
