package settlement

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a settlement request. Settled, Rejected
// and Expired are terminal: a terminal request is immutable.
type Status string

const (
	StatusProposed  Status = "proposed"
	StatusAttesting Status = "attesting"
	StatusSettled   Status = "settled"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusSettled, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

var (
	// ErrNotFound indicates no settlement request exists under the identifier.
	ErrNotFound = errors.New("settlement request not found")

	// ErrDuplicateAttestation indicates the validator already voted on the request.
	ErrDuplicateAttestation = errors.New("validator already attested")

	// ErrWrongState indicates the operation is invalid for the request's
	// current state, e.g. attesting a settled request.
	ErrWrongState = errors.New("invalid settlement state for operation")

	// ErrUnknownDestination indicates the destination account is not
	// registered. Settlement never auto-provisions a destination.
	ErrUnknownDestination = errors.New("destination account not registered")
)

// Request is the unit of cross-bank transfer coordination. Attestations map
// validator identities to their vote; votes accumulate commutatively and
// order of arrival never affects the outcome.
type Request struct {
	ID            string
	Seq           int64
	OriginBank    string
	OriginAccount string
	DestBank      string
	DestAccount   string
	Amount        int64
	Quorum        int
	Attestations  map[string]bool
	Status        Status
	Reason        string
	CreatedAt     time.Time
	ResolvedAt    time.Time
}

// Tally counts approvals and rejections recorded so far.
func (r Request) Tally() (approvals, rejections int) {
	for _, approved := range r.Attestations {
		if approved {
			approvals++
		} else {
			rejections++
		}
	}
	return approvals, rejections
}

// Clone returns a deep copy so callers never share the attestation map.
func (r Request) Clone() Request {
	attestations := make(map[string]bool, len(r.Attestations))
	for validator, vote := range r.Attestations {
		attestations[validator] = vote
	}
	r.Attestations = attestations
	return r
}
