package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"evoting-backend/internal/logger"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger.Debug("initializing database...", zap.String("path", path))

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	err = db.AutoMigrate(
		&VoterIdentity{},
		&VoteRecord{},
		&Election{},
		&Candidate{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) RecordVote(ctx context.Context, record *VoteRecord) error {
	logger.Debug("recording vote...", zap.String("voter", record.VoterID), zap.String("tx", record.TxRef))

	if record.TxRef == "" {
		return fmt.Errorf("vote record for %s has no ledger transaction reference", record.VoterID)
	}
	if record.ConfirmedAt == 0 {
		record.ConfirmedAt = time.Now().Unix()
	}

	// The first confirmation wins; a replayed commit for the same voter is a
	// no-op rather than an overwrite.
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "voter_id"}},
		DoNothing: true,
	}).Create(record).Error
	if err != nil {
		logger.Error("recording vote failed", zap.String("voter", record.VoterID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	logger.Debug("recording vote... done")
	return nil
}

func (s *SQLiteStore) HasVote(ctx context.Context, voterID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&VoteRecord{}).Where("voter_id = ?", voterID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) VoteByVoter(ctx context.Context, voterID string) (*VoteRecord, error) {
	var record VoteRecord
	err := s.db.WithContext(ctx).Where("voter_id = ?", voterID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &record, nil
}

// VoteCountsByCandidate tallies confirmed votes per candidate. The tally is a
// read over the mirror; candidates without votes are absent from the map.
func (s *SQLiteStore) VoteCountsByCandidate(ctx context.Context) (map[string]int64, error) {
	type tally struct {
		CandidateID string
		Count       int64
	}

	var rows []tally
	err := s.db.WithContext(ctx).
		Model(&VoteRecord{}).
		Select("candidate_id, count(*) as count").
		Group("candidate_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.CandidateID] = row.Count
	}
	return counts, nil
}

func (s *SQLiteStore) RegisterIdentity(ctx context.Context, identity *VoterIdentity) error {
	logger.Debug("registering voter identity...", zap.String("voter", identity.VoterID))

	if identity.CreatedAt == 0 {
		identity.CreatedAt = time.Now().Unix()
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "voter_id"}},
		DoNothing: true,
	}).Create(identity)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateVoter
	}

	logger.Debug("registering voter identity... done")
	return nil
}

// ReplaceIdentity supports re-registration: the stored descriptor itself is
// never mutated, the old row is superseded wholesale.
func (s *SQLiteStore) ReplaceIdentity(ctx context.Context, identity *VoterIdentity) error {
	logger.Debug("replacing voter identity...", zap.String("voter", identity.VoterID))

	if identity.CreatedAt == 0 {
		identity.CreatedAt = time.Now().Unix()
	}
	identity.Invalidated = false

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "voter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"descriptor", "created_at", "invalidated"}),
	}).Create(identity).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	logger.Debug("replacing voter identity... done")
	return nil
}

func (s *SQLiteStore) IdentityByVoter(ctx context.Context, voterID string) (*VoterIdentity, error) {
	var identity VoterIdentity
	err := s.db.WithContext(ctx).
		Where("voter_id = ? and invalidated = ?", voterID, false).
		First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &identity, nil
}

func (s *SQLiteStore) RegisteredVoterIDs(ctx context.Context) ([]string, error) {
	var voterIDs []string
	err := s.db.WithContext(ctx).
		Model(&VoterIdentity{}).
		Where("invalidated = ?", false).
		Pluck("voter_id", &voterIDs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return voterIDs, nil
}

func (s *SQLiteStore) SaveElection(ctx context.Context, election *Election) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "election_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "start_time", "end_time"}),
	}).Create(election).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// CurrentElection returns the election whose window covers now, or the most
// recently scheduled one.
func (s *SQLiteStore) CurrentElection(ctx context.Context) (*Election, error) {
	now := time.Now().Unix()

	var election Election
	err := s.db.WithContext(ctx).
		Where("start_time <= ? and end_time > ?", now, now).
		Order("start_time desc").
		First(&election).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.WithContext(ctx).Order("start_time desc").First(&election).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &election, nil
}

func (s *SQLiteStore) SaveCandidate(ctx context.Context, candidate *Candidate) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "candidate_id"}},
		DoNothing: true,
	}).Create(candidate).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Candidates(ctx context.Context) ([]*Candidate, error) {
	var candidates []*Candidate
	err := s.db.WithContext(ctx).Order("candidate_id").Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return candidates, nil
}
