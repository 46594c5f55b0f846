// Package index is the off-chain mirror of ledger vote records plus the
// voter identity store. It is always subordinate to the chain: every vote row
// here must reference an accepted chain transaction.
package index

import (
	"context"
	"errors"
)

var (
	// ErrDuplicateVoter means an identity row already exists for the voter id.
	ErrDuplicateVoter = errors.New("voter already registered")
	// ErrNotFound means no row matched.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable means the store could not be reached or written. For vote
	// records this is recoverable via reconciliation, never a user-visible
	// failure of the vote itself.
	ErrUnavailable = errors.New("index unavailable")
)

type Store interface {
	// vote records
	RecordVote(ctx context.Context, record *VoteRecord) error
	HasVote(ctx context.Context, voterID string) (bool, error)
	VoteByVoter(ctx context.Context, voterID string) (*VoteRecord, error)
	VoteCountsByCandidate(ctx context.Context) (map[string]int64, error)

	// voter identities
	RegisterIdentity(ctx context.Context, identity *VoterIdentity) error
	ReplaceIdentity(ctx context.Context, identity *VoterIdentity) error
	IdentityByVoter(ctx context.Context, voterID string) (*VoterIdentity, error)
	RegisteredVoterIDs(ctx context.Context) ([]string, error)

	// election setup
	SaveElection(ctx context.Context, election *Election) error
	CurrentElection(ctx context.Context) (*Election, error)
	SaveCandidate(ctx context.Context, candidate *Candidate) error
	Candidates(ctx context.Context) ([]*Candidate, error)
}
