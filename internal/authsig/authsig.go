// Package authsig produces and checks the keyed authorization tag that binds
// a ballot to a (voter, candidate, time) triple. The tag proves knowledge of
// the voter's session secret over the exact payload; it is checked locally
// before submission and again by the ledger contract.
package authsig

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// KeySize is the size of a voter authorization key in bytes.
const KeySize = 32

// payloadVersion tags the canonical encoding. Any change to the field set or
// separators must bump this so tags can never collide across formats.
const payloadVersion = "v1"

const fieldSeparator = "|"

// Payload is the logical object being authorized. Timestamp carries
// millisecond precision; the encoding is byte-identical between signer and
// verifier.
type Payload struct {
	VoterID     string
	CandidateID string
	Timestamp   time.Time
}

func NewPayload(voterID, candidateID string) Payload {
	return Payload{
		VoterID:     voterID,
		CandidateID: candidateID,
		Timestamp:   time.Now(),
	}
}

// Encode renders the canonical serialization: version, voter, candidate,
// unix-millisecond timestamp, separated by a fixed delimiter. Identifier
// fields must not contain the delimiter.
func (p Payload) Encode() ([]byte, error) {
	if p.VoterID == "" || p.CandidateID == "" {
		return nil, fmt.Errorf("payload missing voter or candidate id")
	}
	if strings.Contains(p.VoterID, fieldSeparator) || strings.Contains(p.CandidateID, fieldSeparator) {
		return nil, fmt.Errorf("payload identifiers must not contain %q", fieldSeparator)
	}

	encoded := fmt.Sprintf("%s%s%s%s%s%s%d",
		payloadVersion, fieldSeparator,
		p.VoterID, fieldSeparator,
		p.CandidateID, fieldSeparator,
		p.Timestamp.UnixMilli())

	return []byte(encoded), nil
}

// GenerateKey creates a fresh authorization key for a voter session. The key
// never leaves the voter's client in a real deployment; the server only ever
// sees tags.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate authorization key: %w", err)
	}
	return key, nil
}

// Sign computes the authorization tag: HMAC-SHA256 over the canonical payload
// encoding. Deterministic, the same (key, payload) always yields the same tag.
func Sign(key []byte, payload Payload) ([]byte, error) {
	encoded, err := payload.Encode()
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(encoded)
	return mac.Sum(nil), nil
}

// Verify recomputes the tag and compares in constant time with respect to tag
// content.
func Verify(key, tag []byte, payload Payload) bool {
	expected, err := Sign(key, payload)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, tag)
}
