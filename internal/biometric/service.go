package biometric

import (
	"context"
	"sync"

	"evoting-backend/internal/logger"

	"go.uber.org/zap"
)

// Extractor produces a face descriptor from a captured image. Exactly one
// face must be present in the image; zero or several are rejected, picking one
// arbitrarily could bind the vote to the wrong identity.
type Extractor interface {
	ExtractDescriptor(ctx context.Context, image []byte) (Descriptor, error)
}

// Loader prepares the recognition model. Loading is expensive and must happen
// at most once per process.
type Loader interface {
	LoadModel(ctx context.Context) error
}

// Service wraps an Extractor with a once-only model initialization latch.
// Concurrent callers all wait for the same load and observe the same
// completed-or-failed outcome; a failed load is sticky and reported as
// ErrModelUnavailable.
type Service struct {
	extractor Extractor
	loader    Loader

	loadOnce sync.Once
	loadErr  error
}

func NewService(extractor Extractor, loader Loader) *Service {
	return &Service{extractor: extractor, loader: loader}
}

func (s *Service) ensureModel(ctx context.Context) error {
	s.loadOnce.Do(func() {
		if s.loader == nil {
			return
		}
		logger.Debug("loading face recognition model...")
		if err := s.loader.LoadModel(ctx); err != nil {
			logger.Error("face recognition model load failed", zap.Error(err))
			s.loadErr = ErrModelUnavailable
			return
		}
		logger.Debug("loading face recognition model... done")
	})
	return s.loadErr
}

// ExtractDescriptor derives a descriptor from the image, initializing the
// model on first use.
func (s *Service) ExtractDescriptor(ctx context.Context, image []byte) (Descriptor, error) {
	if err := s.ensureModel(ctx); err != nil {
		return nil, err
	}

	descriptor, err := s.extractor.ExtractDescriptor(ctx, image)
	if err != nil {
		return nil, err
	}

	if err := descriptor.Validate(); err != nil {
		logger.Error("extractor returned malformed descriptor", zap.Error(err))
		return nil, ErrModelUnavailable
	}

	return descriptor, nil
}
