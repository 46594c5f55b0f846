package biometric

import (
	"encoding/json"
	"fmt"
	"math"
)

// DescriptorLength is the vector size produced by the recognition model.
const DescriptorLength = 128

// DefaultThreshold is the default matching distance. Lower is stricter. The
// deployment must use the same value at registration capture and at vote time.
const DefaultThreshold = 0.6

// Descriptor is a fixed-length face embedding, compared by euclidean distance.
type Descriptor []float64

func (d Descriptor) Validate() error {
	if len(d) != DescriptorLength {
		return fmt.Errorf("descriptor has %d components, want %d", len(d), DescriptorLength)
	}
	return nil
}

// EuclideanDistance is symmetric; it fails on length mismatch rather than
// truncating, a wrong-length comparison must never pass as a match.
func EuclideanDistance(a, b Descriptor) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("descriptor length mismatch: %d vs %d", len(a), len(b))
	}

	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}

	return math.Sqrt(sum), nil
}

// Match reports whether two descriptors belong to the same person under the
// given threshold: distance strictly less than threshold.
func Match(a, b Descriptor, threshold float64) (bool, error) {
	distance, err := EuclideanDistance(a, b)
	if err != nil {
		return false, err
	}
	return distance < threshold, nil
}

// Marshal serializes a descriptor for storage alongside the voter record.
func (d Descriptor) Marshal() ([]byte, error) {
	return json.Marshal([]float64(d))
}

func UnmarshalDescriptor(data []byte) (Descriptor, error) {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode stored descriptor: %w", err)
	}
	return Descriptor(values), nil
}
