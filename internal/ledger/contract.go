package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"evoting-backend/internal/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// votingABI covers the contract surface this backend touches. The voter id is
// indexed as its keccak hash, which is how VoteStatus recovers the original
// transaction from the event log.
const votingABI = `[
	{"type":"function","name":"castVote","stateMutability":"nonpayable","inputs":[{"name":"voterId","type":"string"},{"name":"candidateId","type":"string"},{"name":"signature","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"getVoter","stateMutability":"view","inputs":[{"name":"voterId","type":"string"}],"outputs":[{"name":"hasVoted","type":"bool"},{"name":"candidateId","type":"string"}]},
	{"type":"event","name":"VoteCast","inputs":[{"name":"voterId","type":"bytes32","indexed":true},{"name":"candidateId","type":"string","indexed":false},{"name":"signature","type":"bytes","indexed":false}],"anonymous":false}
]`

// ContractClient implements Client against the deployed voting contract.
type ContractClient struct {
	eth          *ethclient.Client
	contract     *bind.BoundContract
	contractAddr common.Address
	opts         *bind.TransactOpts
	voteCastID   common.Hash
}

func NewContractClient(rpcURL, contractAddress, privateKeyHex string, chainID int64) (*ContractClient, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(votingABI))
	if err != nil {
		return nil, fmt.Errorf("parse voting contract abi: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse submitter private key: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}

	addr := common.HexToAddress(contractAddress)
	return &ContractClient{
		eth:          eth,
		contract:     bind.NewBoundContract(addr, parsed, eth, eth, eth),
		contractAddr: addr,
		opts:         opts,
		voteCastID:   parsed.Events["VoteCast"].ID,
	}, nil
}

func (c *ContractClient) SubmitVote(ctx context.Context, voterID, candidateID string, tag []byte) (TxRef, error) {
	opts := *c.opts
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, "castVote", voterID, candidateID, tag)
	if err != nil {
		return "", classifySubmitError(err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		logger.Error("vote transaction not mined", zap.String("tx", tx.Hash().Hex()), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		// Reverted. The chain state tells already-voted apart from malformed.
		status, statusErr := c.VoteStatus(ctx, voterID)
		if statusErr == nil && status.Voted {
			return "", ErrAlreadyVoted
		}
		return "", ErrMalformed
	}

	return TxRef(tx.Hash().Hex()), nil
}

func (c *ContractClient) VoteStatus(ctx context.Context, voterID string) (Status, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getVoter", voterID)
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	hasVoted, ok := out[0].(bool)
	if !ok || !hasVoted {
		return Status{}, nil
	}
	candidateID, _ := out[1].(string)

	txRef, err := c.findVoteTransaction(ctx, voterID)
	if err != nil {
		return Status{}, err
	}

	return Status{Voted: true, CandidateID: candidateID, TxRef: txRef}, nil
}

// findVoteTransaction recovers the accepted transaction hash from the
// VoteCast event indexed by the voter id hash.
func (c *ContractClient) findVoteTransaction(ctx context.Context, voterID string) (TxRef, error) {
	voterTopic := crypto.Keccak256Hash([]byte(voterID))

	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{c.contractAddr},
		Topics:    [][]common.Hash{{c.voteCastID}, {voterTopic}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(logs) == 0 {
		logger.Warn("chain reports voter as voted but no VoteCast event found", zap.String("voter", voterID))
		return "", nil
	}

	// The contract accepts at most one vote per voter; the first event is
	// the accepted one.
	return TxRef(logs[0].TxHash.Hex()), nil
}

func (c *ContractClient) HeadBlockNumber(ctx context.Context) (uint64, error) {
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return head, nil
}

func (c *ContractClient) BlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	block, err := c.eth.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return block, nil
}

func classifySubmitError(err error) error {
	message := err.Error()
	switch {
	case strings.Contains(message, "already voted"):
		return ErrAlreadyVoted
	case strings.Contains(message, "execution reverted"):
		return ErrMalformed
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
