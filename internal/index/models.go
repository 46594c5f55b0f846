package index

import "time"

// ElectionStatus drives whether the coordinator accepts new votes.
type ElectionStatus string

const (
	ElectionScheduled ElectionStatus = "Scheduled"
	ElectionOpen      ElectionStatus = "Open"
	ElectionClosed    ElectionStatus = "Closed"
)

// VoterIdentity binds a voter id to the descriptor captured at registration.
// The descriptor is write-once; re-registration invalidates the old row and
// creates a new one.
type VoterIdentity struct {
	VoterID     string `gorm:"primaryKey"`
	Descriptor  []byte `gorm:"not null"`
	CreatedAt   int64  `gorm:"not null"`
	Invalidated bool   `gorm:"default:false"`
}

// VoteRecord mirrors one accepted ledger vote. TxRef is never empty, an index
// row without a chain transaction would be a phantom vote.
type VoteRecord struct {
	VoterID     string `gorm:"primaryKey"`
	CandidateID string `gorm:"not null"`
	Tag         []byte `gorm:"not null"`
	TxRef       string `gorm:"not null"`
	ConfirmedAt int64  `gorm:"not null"`
}

type Election struct {
	ElectionID string `gorm:"primaryKey"`
	Title      string `gorm:"not null"`
	StartTime  int64  `gorm:"not null"`
	EndTime    int64  `gorm:"not null"`
}

// StatusAt derives the election phase from its window.
func (e *Election) StatusAt(now time.Time) ElectionStatus {
	ts := now.Unix()
	switch {
	case ts < e.StartTime:
		return ElectionScheduled
	case ts >= e.EndTime:
		return ElectionClosed
	default:
		return ElectionOpen
	}
}

// Candidate metadata is immutable once an election starts.
type Candidate struct {
	CandidateID string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Party       string
	Bio         string
}
