// Package scanner reconstructs recent chain activity for an address by
// walking blocks backward from the head. It is a bounded, best-effort view:
// matching transactions older than the block budget are not found, callers
// needing completeness must use the off-chain index instead.
package scanner

import (
	"context"

	"evoting-backend/internal/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// BlockReader is the slice of the ledger client the scanner needs.
type BlockReader interface {
	HeadBlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number uint64) (*types.Block, error)
}

// TransactionRecord is one matching historical transaction, derived and never
// persisted.
type TransactionRecord struct {
	BlockNumber uint64
	From        string
	To          string
	TxHash      string
}

type Scanner struct {
	reader BlockReader
}

func New(reader BlockReader) *Scanner {
	return &Scanner{reader: reader}
}

// Scan is one in-flight backward walk. Records are produced lazily;
// SkippedBlocks is valid once the records channel has been closed.
type Scan struct {
	records chan TransactionRecord
	skipped int
}

func (s *Scan) Records() <-chan TransactionRecord { return s.records }

// SkippedBlocks counts blocks that were missing or unreadable mid-scan and
// were skipped rather than aborting the walk.
func (s *Scan) SkippedBlocks() int { return s.skipped }

// Start walks backward from the current head, one block at a time, emitting
// transactions where the address appears as sender or recipient. The walk
// stops after maxBlocks examined blocks or maxResults matches, whichever
// comes first. Cancelling the context stops the walk promptly; whatever was
// already emitted stands.
func (s *Scanner) Start(ctx context.Context, address string, maxBlocks, maxResults int) *Scan {
	scan := &Scan{records: make(chan TransactionRecord)}

	go func() {
		defer close(scan.records)

		head, err := s.reader.HeadBlockNumber(ctx)
		if err != nil {
			logger.Error("history scan: cannot resolve head block", zap.Error(err))
			return
		}

		target := common.HexToAddress(address)
		emitted := 0

		for i := 0; i < maxBlocks && emitted < maxResults; i++ {
			if ctx.Err() != nil {
				logger.Debug("history scan cancelled", zap.Int("emitted", emitted))
				return
			}

			number := head - uint64(i)

			block, err := s.reader.BlockByNumber(ctx, number)
			if err != nil || block == nil {
				logger.Warn("history scan: skipping unreadable block",
					zap.Uint64("block", number), zap.Error(err))
				scan.skipped++
				if number == 0 {
					break
				}
				continue
			}

			for _, tx := range block.Transactions() {
				if emitted >= maxResults {
					break
				}

				record, ok := matchTransaction(tx, target, number)
				if !ok {
					continue
				}

				select {
				case scan.records <- record:
					emitted++
				case <-ctx.Done():
					return
				}
			}

			if number == 0 {
				break
			}
		}
	}()

	return scan
}

func matchTransaction(tx *types.Transaction, target common.Address, blockNumber uint64) (TransactionRecord, bool) {
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		// Unattributable sender; it can still match as recipient.
		from = common.Address{}
	}

	to := tx.To()

	matches := from == target || (to != nil && *to == target)
	if !matches {
		return TransactionRecord{}, false
	}

	record := TransactionRecord{
		BlockNumber: blockNumber,
		From:        from.Hex(),
		TxHash:      tx.Hash().Hex(),
	}
	if to != nil {
		record.To = to.Hex()
	}

	return record, true
}

// Collect runs a scan to completion and gathers the bounded, most-recent-first
// result set, along with the number of skipped blocks.
func (s *Scanner) Collect(ctx context.Context, address string, maxBlocks, maxResults int) ([]TransactionRecord, int) {
	scan := s.Start(ctx, address, maxBlocks, maxResults)

	records := make([]TransactionRecord, 0, maxResults)
	for record := range scan.Records() {
		records = append(records, record)
	}

	return records, scan.SkippedBlocks()
}
