package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	return store
}

func TestRecordVoteFirstConfirmationWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordVote(ctx, &VoteRecord{
		VoterID:     "V1",
		CandidateID: "C7",
		Tag:         []byte{1, 2, 3},
		TxRef:       "0xfirst",
	}))

	// A replayed commit must not overwrite the original confirmation.
	require.NoError(t, store.RecordVote(ctx, &VoteRecord{
		VoterID:     "V1",
		CandidateID: "C9",
		Tag:         []byte{4, 5, 6},
		TxRef:       "0xsecond",
	}))

	record, err := store.VoteByVoter(ctx, "V1")
	require.NoError(t, err)
	assert.Equal(t, "0xfirst", record.TxRef)
	assert.Equal(t, "C7", record.CandidateID)
}

func TestRecordVoteRejectsEmptyTxRef(t *testing.T) {
	store := newTestStore(t)

	err := store.RecordVote(context.Background(), &VoteRecord{
		VoterID:     "V1",
		CandidateID: "C7",
		Tag:         []byte{1},
	})
	assert.Error(t, err, "an index row without a chain transaction would be a phantom vote")
}

func TestHasVote(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	has, err := store.HasVote(ctx, "V1")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.RecordVote(ctx, &VoteRecord{
		VoterID:     "V1",
		CandidateID: "C7",
		Tag:         []byte{1},
		TxRef:       "0xabc",
	}))

	has, err = store.HasVote(ctx, "V1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestVoteCountsByCandidate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	counts, err := store.VoteCountsByCandidate(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)

	require.NoError(t, store.RecordVote(ctx, &VoteRecord{VoterID: "V1", CandidateID: "C1", Tag: []byte{1}, TxRef: "0x1"}))
	require.NoError(t, store.RecordVote(ctx, &VoteRecord{VoterID: "V2", CandidateID: "C1", Tag: []byte{1}, TxRef: "0x2"}))
	require.NoError(t, store.RecordVote(ctx, &VoteRecord{VoterID: "V3", CandidateID: "C2", Tag: []byte{1}, TxRef: "0x3"}))

	// A replayed commit for V1 must not inflate the tally.
	require.NoError(t, store.RecordVote(ctx, &VoteRecord{VoterID: "V1", CandidateID: "C2", Tag: []byte{1}, TxRef: "0x4"}))

	counts, err = store.VoteCountsByCandidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"C1": 2, "C2": 1}, counts)
}

func TestRegisterIdentityDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterIdentity(ctx, &VoterIdentity{VoterID: "V1", Descriptor: []byte("d1")}))

	err := store.RegisterIdentity(ctx, &VoterIdentity{VoterID: "V1", Descriptor: []byte("d2")})
	assert.ErrorIs(t, err, ErrDuplicateVoter)

	identity, err := store.IdentityByVoter(ctx, "V1")
	require.NoError(t, err)
	assert.Equal(t, []byte("d1"), identity.Descriptor, "the original descriptor is write-once")
}

func TestReplaceIdentitySupersedesOldRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterIdentity(ctx, &VoterIdentity{VoterID: "V1", Descriptor: []byte("d1")}))
	require.NoError(t, store.ReplaceIdentity(ctx, &VoterIdentity{VoterID: "V1", Descriptor: []byte("d2")}))

	identity, err := store.IdentityByVoter(ctx, "V1")
	require.NoError(t, err)
	assert.Equal(t, []byte("d2"), identity.Descriptor)
}

func TestIdentityByVoterIgnoresInvalidatedRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterIdentity(ctx, &VoterIdentity{
		VoterID:     "V1",
		Descriptor:  []byte("d1"),
		Invalidated: true,
	}))

	_, err := store.IdentityByVoter(ctx, "V1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisteredVoterIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterIdentity(ctx, &VoterIdentity{VoterID: "V1", Descriptor: []byte("d")}))
	require.NoError(t, store.RegisterIdentity(ctx, &VoterIdentity{VoterID: "V2", Descriptor: []byte("d")}))
	require.NoError(t, store.RegisterIdentity(ctx, &VoterIdentity{VoterID: "V3", Descriptor: []byte("d"), Invalidated: true}))

	ids, err := store.RegisteredVoterIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"V1", "V2"}, ids)
}

func TestCurrentElectionPrefersOpenWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Unix()

	require.NoError(t, store.SaveElection(ctx, &Election{
		ElectionID: "past",
		Title:      "Past",
		StartTime:  now - 7200,
		EndTime:    now - 3600,
	}))
	require.NoError(t, store.SaveElection(ctx, &Election{
		ElectionID: "open",
		Title:      "Open",
		StartTime:  now - 60,
		EndTime:    now + 3600,
	}))

	election, err := store.CurrentElection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "open", election.ElectionID)
	assert.Equal(t, ElectionOpen, election.StatusAt(time.Now()))
}

func TestElectionStatusAt(t *testing.T) {
	election := &Election{StartTime: 1000, EndTime: 2000}

	assert.Equal(t, ElectionScheduled, election.StatusAt(time.Unix(500, 0)))
	assert.Equal(t, ElectionOpen, election.StatusAt(time.Unix(1000, 0)))
	assert.Equal(t, ElectionOpen, election.StatusAt(time.Unix(1999, 0)))
	assert.Equal(t, ElectionClosed, election.StatusAt(time.Unix(2000, 0)))
}

func TestCandidates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCandidate(ctx, &Candidate{CandidateID: "C2", Name: "B", Party: "P2"}))
	require.NoError(t, store.SaveCandidate(ctx, &Candidate{CandidateID: "C1", Name: "A", Party: "P1"}))

	// Metadata is immutable once saved.
	require.NoError(t, store.SaveCandidate(ctx, &Candidate{CandidateID: "C1", Name: "Changed"}))

	candidates, err := store.Candidates(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "C1", candidates[0].CandidateID)
	assert.Equal(t, "A", candidates[0].Name)
}
