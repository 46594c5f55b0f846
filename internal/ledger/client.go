// Package ledger defines the boundary to the append-only chain that is the
// sole authority for "has this voter voted", plus the concrete client for the
// voting contract.
package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/core/types"
)

// TxRef identifies an accepted vote transaction on the chain.
type TxRef string

func (r TxRef) Empty() bool { return r == "" }

// Status is the chain's answer for one voter. CandidateID is populated when
// Voted is true; reconciliation re-derives missing index rows from it.
type Status struct {
	Voted       bool
	CandidateID string
	TxRef       TxRef
}

var (
	// ErrAlreadyVoted means the chain holds a vote for this voter. Fatal,
	// surfaced verbatim to the caller.
	ErrAlreadyVoted = errors.New("voter has already voted")
	// ErrMalformed means the submission was rejected for shape or signature.
	ErrMalformed = errors.New("vote submission rejected as malformed")
	// ErrUnavailable means the chain could not be reached; retryable with an
	// idempotency check first.
	ErrUnavailable = errors.New("ledger unavailable")
)

// Client is the boundary the coordinator and scanner run against. The
// contract-backed implementation lives in this package; tests substitute
// fakes.
type Client interface {
	// SubmitVote writes (voterId, candidateId, tag) to the chain and returns
	// the transaction reference once accepted.
	SubmitVote(ctx context.Context, voterID, candidateID string, tag []byte) (TxRef, error)

	// VoteStatus reports whether the chain already holds a vote for the
	// voter, with the original transaction reference when it does.
	VoteStatus(ctx context.Context, voterID string) (Status, error)

	// HeadBlockNumber returns the current chain head.
	HeadBlockNumber(ctx context.Context) (uint64, error)

	// BlockByNumber fetches one block with its transactions.
	BlockByNumber(ctx context.Context, number uint64) (*types.Block, error)
}
