package coordinator

import (
	"context"

	"evoting-backend/internal/index"
	"evoting-backend/internal/logger"

	"go.uber.org/zap"
)

// Reconcile repairs divergence for the given voters: wherever the chain holds
// a vote the index lacks, the missing index row is re-derived from chain
// state. The chain itself is never altered. Returns the number of rows
// repaired.
func (c *Coordinator) Reconcile(ctx context.Context, voterIDs []string) (int, error) {
	repaired := 0

	for _, voterID := range voterIDs {
		if ctx.Err() != nil {
			return repaired, ctx.Err()
		}

		hasRecord, err := c.store.HasVote(ctx, voterID)
		if err != nil {
			return repaired, err
		}
		if hasRecord {
			continue
		}

		statusCtx, cancel := c.boundedCtx(ctx)
		status, err := c.ledger.VoteStatus(statusCtx, voterID)
		cancel()
		if err != nil {
			logger.Warn("reconcile: chain status query failed", zap.String("voter", voterID), zap.Error(err))
			continue
		}
		if !status.Voted {
			continue
		}

		err = c.store.RecordVote(ctx, &index.VoteRecord{
			VoterID:     voterID,
			CandidateID: status.CandidateID,
			Tag:         []byte{},
			TxRef:       string(status.TxRef),
		})
		if err != nil {
			logger.Error("reconcile: index repair failed", zap.String("voter", voterID), zap.Error(err))
			continue
		}

		repaired++
		logger.Info("reconcile: index row re-derived from chain",
			zap.String("voter", voterID), zap.String("tx", string(status.TxRef)))
	}

	return repaired, nil
}

// ReconcileAll runs Reconcile over every registered voter. Used by the
// background repair loop.
func (c *Coordinator) ReconcileAll(ctx context.Context) (int, error) {
	voterIDs, err := c.store.RegisteredVoterIDs(ctx)
	if err != nil {
		return 0, err
	}
	return c.Reconcile(ctx, voterIDs)
}
