package coordinator

import (
	"context"
	"errors"
	"time"

	"evoting-backend/internal/biometric"
	"evoting-backend/internal/index"
	"evoting-backend/internal/ledger"

	"github.com/ethereum/go-ethereum/core/types"
)

type fakeExtractor struct {
	descriptor biometric.Descriptor
	err        error
	calls      int
}

func (f *fakeExtractor) ExtractDescriptor(ctx context.Context, image []byte) (biometric.Descriptor, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.descriptor, nil
}

type fakeStore struct {
	identities map[string]*index.VoterIdentity
	votes      map[string]*index.VoteRecord
	election   *index.Election

	recordVoteErr      error
	currentElectionErr error
	recordVoteCalls    int
	hasVoteCalls       int
	voteByVoter        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		identities: make(map[string]*index.VoterIdentity),
		votes:      make(map[string]*index.VoteRecord),
	}
}

func (f *fakeStore) RecordVote(ctx context.Context, record *index.VoteRecord) error {
	f.recordVoteCalls++
	if f.recordVoteErr != nil {
		return f.recordVoteErr
	}
	if _, ok := f.votes[record.VoterID]; ok {
		return nil
	}
	if record.ConfirmedAt == 0 {
		record.ConfirmedAt = time.Now().Unix()
	}
	f.votes[record.VoterID] = record
	return nil
}

func (f *fakeStore) HasVote(ctx context.Context, voterID string) (bool, error) {
	f.hasVoteCalls++
	_, ok := f.votes[voterID]
	return ok, nil
}

func (f *fakeStore) VoteByVoter(ctx context.Context, voterID string) (*index.VoteRecord, error) {
	f.voteByVoter++
	record, ok := f.votes[voterID]
	if !ok {
		return nil, index.ErrNotFound
	}
	return record, nil
}

func (f *fakeStore) RegisterIdentity(ctx context.Context, identity *index.VoterIdentity) error {
	if _, ok := f.identities[identity.VoterID]; ok {
		return index.ErrDuplicateVoter
	}
	f.identities[identity.VoterID] = identity
	return nil
}

func (f *fakeStore) ReplaceIdentity(ctx context.Context, identity *index.VoterIdentity) error {
	f.identities[identity.VoterID] = identity
	return nil
}

func (f *fakeStore) IdentityByVoter(ctx context.Context, voterID string) (*index.VoterIdentity, error) {
	identity, ok := f.identities[voterID]
	if !ok || identity.Invalidated {
		return nil, index.ErrNotFound
	}
	return identity, nil
}

func (f *fakeStore) RegisteredVoterIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.identities))
	for id := range f.identities {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) SaveElection(ctx context.Context, election *index.Election) error {
	f.election = election
	return nil
}

func (f *fakeStore) CurrentElection(ctx context.Context) (*index.Election, error) {
	if f.currentElectionErr != nil {
		return nil, f.currentElectionErr
	}
	if f.election == nil {
		return nil, index.ErrNotFound
	}
	return f.election, nil
}

func (f *fakeStore) VoteCountsByCandidate(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, record := range f.votes {
		counts[record.CandidateID]++
	}
	return counts, nil
}

func (f *fakeStore) SaveCandidate(ctx context.Context, candidate *index.Candidate) error { return nil }

func (f *fakeStore) Candidates(ctx context.Context) ([]*index.Candidate, error) { return nil, nil }

type fakeLedger struct {
	accepted  map[string]ledger.Status
	submitErr error
	statusErr error

	// submitLandsDespiteErr simulates the ambiguous outcome: the submit call
	// errors but the chain holds a vote afterwards. landedCandidate, when set,
	// is the candidate the chain holds, as when a racing process voted first.
	submitLandsDespiteErr ledger.TxRef
	landedCandidate       string

	submitCalls int
	statusCalls int
	nextTxRef   ledger.TxRef
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accepted:  make(map[string]ledger.Status),
		nextTxRef: "0xabc123",
	}
}

func (f *fakeLedger) SubmitVote(ctx context.Context, voterID, candidateID string, tag []byte) (ledger.TxRef, error) {
	f.submitCalls++
	if f.submitErr != nil {
		if f.submitLandsDespiteErr != "" {
			landed := candidateID
			if f.landedCandidate != "" {
				landed = f.landedCandidate
			}
			f.accepted[voterID] = ledger.Status{Voted: true, CandidateID: landed, TxRef: f.submitLandsDespiteErr}
		}
		return "", f.submitErr
	}
	if status, ok := f.accepted[voterID]; ok && status.Voted {
		return "", ledger.ErrAlreadyVoted
	}
	f.accepted[voterID] = ledger.Status{Voted: true, CandidateID: candidateID, TxRef: f.nextTxRef}
	return f.nextTxRef, nil
}

func (f *fakeLedger) VoteStatus(ctx context.Context, voterID string) (ledger.Status, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return ledger.Status{}, f.statusErr
	}
	return f.accepted[voterID], nil
}

func (f *fakeLedger) HeadBlockNumber(ctx context.Context) (uint64, error) {
	return 0, errors.New("not used")
}

func (f *fakeLedger) BlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	return nil, errors.New("not used")
}

func openElection() *index.Election {
	now := time.Now().Unix()
	return &index.Election{
		ElectionID: "e1",
		Title:      "General Election",
		StartTime:  now - 3600,
		EndTime:    now + 3600,
	}
}

func closedElection() *index.Election {
	now := time.Now().Unix()
	return &index.Election{
		ElectionID: "e0",
		Title:      "Past Election",
		StartTime:  now - 7200,
		EndTime:    now - 3600,
	}
}
