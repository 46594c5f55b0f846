package biometric

import "errors"

// Extraction failures are stable kinds so callers can render guidance without
// parsing message text. All of them abort the surrounding flow; none is
// retried with relaxed parameters.
var (
	ErrNoFaceDetected        = errors.New("no face detected")
	ErrMultipleFacesDetected = errors.New("multiple faces detected")
	ErrModelUnavailable      = errors.New("face model unavailable")
)
