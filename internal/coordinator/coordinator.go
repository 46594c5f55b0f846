// Package coordinator runs a vote attempt from identity verification through
// the dual-ledger commit: the chain write always precedes the off-chain index
// write, and a vote the chain accepted is never reported lost because the
// index lagged behind.
package coordinator

import (
	"context"
	"sync"
	"time"

	"evoting-backend/internal/biometric"
	"evoting-backend/internal/index"
	"evoting-backend/internal/ledger"
)

// DescriptorSource derives a live descriptor from a captured image.
// *biometric.Service satisfies it.
type DescriptorSource interface {
	ExtractDescriptor(ctx context.Context, image []byte) (biometric.Descriptor, error)
}

type Coordinator struct {
	biometrics  DescriptorSource
	store       index.Store
	ledger      ledger.Client
	threshold   float64
	callTimeout time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Coordinator)

// WithCallTimeout bounds every external call (ledger submit, status query,
// index write) made by the coordinator.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) { c.callTimeout = timeout }
}

// WithMatchThreshold overrides the deployment matching threshold. It must be
// the same value the registration capture used.
func WithMatchThreshold(threshold float64) Option {
	return func(c *Coordinator) { c.threshold = threshold }
}

func New(biometrics DescriptorSource, store index.Store, ledgerClient ledger.Client, options ...Option) *Coordinator {
	c := &Coordinator{
		biometrics:  biometrics,
		store:       store,
		ledger:      ledgerClient,
		threshold:   biometric.DefaultThreshold,
		callTimeout: 15 * time.Second,
		locks:       make(map[string]*sync.Mutex),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// voterLock serializes attempts per voter: an attempt must reach a terminal
// state before the next one for the same voter starts. Attempts for different
// voters proceed independently.
func (c *Coordinator) voterLock(voterID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[voterID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[voterID] = lock
	}
	return lock
}

func (c *Coordinator) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.callTimeout)
}
