package coordinator

import (
	"context"
	"fmt"

	"evoting-backend/internal/authsig"
	"evoting-backend/internal/index"
	"evoting-backend/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registration is returned to the registration collaborator. The
// authorization key belongs to the voter's client session and is not kept
// here.
type Registration struct {
	VoterID          string
	AuthorizationKey []byte
}

// RegisterVoter captures the voter's descriptor and creates the identity
// record. Exactly one face must be present in the image; any extraction
// failure aborts with nothing written. An empty voterID gets a fresh one
// assigned.
func (c *Coordinator) RegisterVoter(ctx context.Context, voterID string, image []byte) (*Registration, error) {
	if voterID == "" {
		voterID = uuid.NewString()
	}

	descriptor, err := c.biometrics.ExtractDescriptor(ctx, image)
	if err != nil {
		logger.Warn("registration capture rejected", zap.String("voter", voterID), zap.Error(err))
		return nil, err
	}

	stored, err := descriptor.Marshal()
	if err != nil {
		return nil, fmt.Errorf("serialize descriptor: %w", err)
	}

	storeCtx, cancel := c.boundedCtx(ctx)
	defer cancel()

	err = c.store.RegisterIdentity(storeCtx, &index.VoterIdentity{
		VoterID:    voterID,
		Descriptor: stored,
	})
	if err != nil {
		return nil, err
	}

	key, err := authsig.GenerateKey()
	if err != nil {
		return nil, err
	}

	logger.Info("voter registered", zap.String("voter", voterID))
	return &Registration{VoterID: voterID, AuthorizationKey: key}, nil
}

// ReregisterVoter recaptures the descriptor for an existing voter, superseding
// the previous registration and issuing a fresh authorization key. Vote
// records are untouched: one vote per voter holds across re-registration.
func (c *Coordinator) ReregisterVoter(ctx context.Context, voterID string, image []byte) (*Registration, error) {
	lookupCtx, cancelLookup := c.boundedCtx(ctx)
	_, err := c.store.IdentityByVoter(lookupCtx, voterID)
	cancelLookup()
	if err != nil {
		return nil, err
	}

	descriptor, err := c.biometrics.ExtractDescriptor(ctx, image)
	if err != nil {
		logger.Warn("re-registration capture rejected", zap.String("voter", voterID), zap.Error(err))
		return nil, err
	}

	stored, err := descriptor.Marshal()
	if err != nil {
		return nil, fmt.Errorf("serialize descriptor: %w", err)
	}

	storeCtx, cancel := c.boundedCtx(ctx)
	defer cancel()

	err = c.store.ReplaceIdentity(storeCtx, &index.VoterIdentity{
		VoterID:    voterID,
		Descriptor: stored,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("voter re-registered", zap.String("voter", voterID))

	key, err := authsig.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Registration{VoterID: voterID, AuthorizationKey: key}, nil
}
