package coordinator

import "evoting-backend/internal/ledger"

// State is the position of a vote attempt in its state machine. Confirmed,
// Failed and Diverged are terminal.
type State string

const (
	StateIdle             State = "Idle"
	StateIdentityVerified State = "IdentityVerified"
	StateAuthorized       State = "Authorized"
	StateLedgerSubmitted  State = "LedgerSubmitted"
	StateConfirmed        State = "Confirmed"
	StateFailed           State = "Failed"
	StateDiverged         State = "Diverged"
)

// FailureReason is a stable kind the presentation layer can branch on. Raw
// ledger payloads never travel with it.
type FailureReason string

const (
	ReasonNone                FailureReason = ""
	ReasonVoterUnknown        FailureReason = "VoterUnknown"
	ReasonIdentityMismatch    FailureReason = "IdentityMismatch"
	ReasonElectionNotOpen     FailureReason = "ElectionNotOpen"
	ReasonAuthorizationFailed FailureReason = "AuthorizationFailed"
	ReasonLedgerRejected      FailureReason = "LedgerRejected"
	ReasonLedgerUnavailable   FailureReason = "LedgerUnavailable"
	ReasonIndexUnavailable    FailureReason = "IndexUnavailable"
)

// Result is what the vote-casting caller receives. TxRef is set whenever the
// chain holds the vote, including the Diverged state: the vote IS cast even
// when the index write failed.
type Result struct {
	AttemptID string
	State     State
	Reason    FailureReason
	TxRef     ledger.TxRef
}

func (r *Result) Confirmed() bool { return r.State == StateConfirmed }

// Recorded reports whether the chain accepted the ballot, regardless of the
// index outcome.
func (r *Result) Recorded() bool {
	return r.State == StateConfirmed || r.State == StateDiverged
}
