package coordinator

import (
	"context"
	"errors"
	"time"

	"evoting-backend/internal/authsig"
	"evoting-backend/internal/biometric"
	"evoting-backend/internal/index"
	"evoting-backend/internal/ledger"
	"evoting-backend/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VoteRequest is what the vote-casting caller supplies: the live capture, the
// selected candidate and the voter's session authorization key. The key is
// never persisted here.
type VoteRequest struct {
	VoterID          string
	CandidateID      string
	LiveImage        []byte
	AuthorizationKey []byte
}

// CastVote runs one vote attempt to a terminal state. Attempts for the same
// voter are serialized; the returned Result carries the terminal state, the
// failure kind when failed, and the chain transaction reference whenever the
// chain holds the vote.
func (c *Coordinator) CastVote(ctx context.Context, request VoteRequest) *Result {
	lock := c.voterLock(request.VoterID)
	lock.Lock()
	defer lock.Unlock()

	result := &Result{
		AttemptID: uuid.NewString(),
		State:     StateIdle,
	}

	logger.Info("vote attempt started",
		zap.String("attempt", result.AttemptID),
		zap.String("voter", request.VoterID),
		zap.String("candidate", request.CandidateID))

	// Identity first. On any extraction failure or mismatch the attempt dies
	// here, before a single ledger or index vote call.
	identity, err := c.store.IdentityByVoter(ctx, request.VoterID)
	if errors.Is(err, index.ErrNotFound) {
		return c.fail(result, ReasonVoterUnknown, "voter has no registered identity", nil)
	}
	if err != nil {
		return c.fail(result, ReasonIndexUnavailable, "identity lookup failed", err)
	}

	stored, err := biometric.UnmarshalDescriptor(identity.Descriptor)
	if err != nil {
		return c.fail(result, ReasonIdentityMismatch, "stored descriptor unreadable", err)
	}

	live, err := c.biometrics.ExtractDescriptor(ctx, request.LiveImage)
	if err != nil {
		return c.fail(result, ReasonIdentityMismatch, "live descriptor extraction failed", err)
	}

	matched, err := biometric.Match(stored, live, c.threshold)
	if err != nil || !matched {
		return c.fail(result, ReasonIdentityMismatch, "live descriptor does not match registration", err)
	}
	result.State = StateIdentityVerified

	// Fast idempotency pre-check. The chain stays the authority; this only
	// avoids a wasted submission and confusing downstream errors.
	if done := c.shortCircuitPriorVote(ctx, request.VoterID, result); done {
		return result
	}

	election, err := c.store.CurrentElection(ctx)
	if errors.Is(err, index.ErrUnavailable) {
		// An unreachable index is not a closed election.
		return c.fail(result, ReasonIndexUnavailable, "election lookup failed", err)
	}
	if err != nil || election.StatusAt(time.Now()) != index.ElectionOpen {
		return c.fail(result, ReasonElectionNotOpen, "election is not open", err)
	}

	payload := authsig.NewPayload(request.VoterID, request.CandidateID)
	tag, err := authsig.Sign(request.AuthorizationKey, payload)
	if err != nil {
		return c.fail(result, ReasonAuthorizationFailed, "payload signing failed", err)
	}
	if !authsig.Verify(request.AuthorizationKey, tag, payload) {
		// A tag that fails local verification means tampering somewhere
		// between signing and submission.
		return c.fail(result, ReasonAuthorizationFailed, "authorization tag failed local verification", nil)
	}
	result.State = StateAuthorized

	txRef, resolved, submitErr := c.submit(ctx, request.VoterID, request.CandidateID, tag)
	if submitErr != nil {
		return c.failFromSubmit(result, submitErr)
	}
	result.State = StateLedgerSubmitted
	result.TxRef = txRef

	record := &index.VoteRecord{
		VoterID:     request.VoterID,
		CandidateID: request.CandidateID,
		Tag:         tag,
		TxRef:       string(txRef),
	}
	if resolved != nil {
		// The chain already held a vote, possibly from a racing process.
		// The index must mirror what the chain accepted, not this request.
		record.CandidateID = resolved.CandidateID
		record.Tag = []byte{}
	}
	c.confirm(ctx, result, record)
	return result
}

// submit writes the vote to the chain. An unavailable/timeout outcome is
// ambiguous, the write may have landed; it is resolved by re-querying chain
// state, never by blindly retrying the submission. When resolution finds an
// accepted vote the chain's status is returned so the caller records what the
// chain holds.
func (c *Coordinator) submit(ctx context.Context, voterID, candidateID string, tag []byte) (ledger.TxRef, *ledger.Status, error) {
	submitCtx, cancel := c.boundedCtx(ctx)
	defer cancel()

	txRef, err := c.ledger.SubmitVote(submitCtx, voterID, candidateID, tag)
	if err == nil {
		return txRef, nil, nil
	}

	if errors.Is(err, ledger.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ledger.ErrAlreadyVoted) {
		statusCtx, cancelStatus := c.boundedCtx(ctx)
		defer cancelStatus()

		status, statusErr := c.ledger.VoteStatus(statusCtx, voterID)
		if statusErr == nil && status.Voted {
			logger.Warn("ambiguous submit resolved as accepted",
				zap.String("voter", voterID), zap.String("tx", string(status.TxRef)))
			return status.TxRef, &status, nil
		}
	}

	return "", nil, err
}

// confirm performs the index write that follows a successful chain write. An
// index failure leaves the attempt Diverged: the vote stands on the chain and
// reconciliation repairs the gap later.
func (c *Coordinator) confirm(ctx context.Context, result *Result, record *index.VoteRecord) {
	indexCtx, cancel := c.boundedCtx(ctx)
	defer cancel()

	if err := c.store.RecordVote(indexCtx, record); err != nil {
		logger.Error("vote confirmed on chain but index write failed; divergence recorded",
			zap.String("attempt", result.AttemptID),
			zap.String("voter", record.VoterID),
			zap.String("tx", record.TxRef),
			zap.Error(err))
		result.State = StateDiverged
		return
	}

	result.State = StateConfirmed
	logger.Info("vote confirmed",
		zap.String("attempt", result.AttemptID),
		zap.String("voter", record.VoterID),
		zap.String("tx", record.TxRef))
}

// shortCircuitPriorVote detects a vote the chain already accepted for this
// voter and terminates the attempt with the ORIGINAL transaction reference,
// repairing the index row when it is missing.
func (c *Coordinator) shortCircuitPriorVote(ctx context.Context, voterID string, result *Result) bool {
	if record, err := c.store.VoteByVoter(ctx, voterID); err == nil {
		result.State = StateConfirmed
		result.TxRef = ledger.TxRef(record.TxRef)
		logger.Info("vote already recorded, short-circuiting",
			zap.String("attempt", result.AttemptID), zap.String("tx", record.TxRef))
		return true
	}

	statusCtx, cancel := c.boundedCtx(ctx)
	defer cancel()

	status, err := c.ledger.VoteStatus(statusCtx, voterID)
	if err != nil || !status.Voted {
		return false
	}

	result.TxRef = status.TxRef
	c.confirm(ctx, result, &index.VoteRecord{
		VoterID:     voterID,
		CandidateID: status.CandidateID,
		Tag:         []byte{},
		TxRef:       string(status.TxRef),
	})
	return true
}

func (c *Coordinator) failFromSubmit(result *Result, err error) *Result {
	switch {
	case errors.Is(err, ledger.ErrAlreadyVoted), errors.Is(err, ledger.ErrMalformed):
		return c.fail(result, ReasonLedgerRejected, "chain rejected the submission", err)
	default:
		return c.fail(result, ReasonLedgerUnavailable, "chain could not be reached", err)
	}
}

func (c *Coordinator) fail(result *Result, reason FailureReason, message string, err error) *Result {
	logger.Warn("vote attempt failed",
		zap.String("attempt", result.AttemptID),
		zap.String("reason", string(reason)),
		zap.String("detail", message),
		zap.Error(err))
	result.State = StateFailed
	result.Reason = reason
	return result
}
